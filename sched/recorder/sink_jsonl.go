package recorder

import (
	"encoding/json"
	"os"
	"sync"
)

// JSONLSink appends events as line-delimited JSON to a local file.
// The reference implementation of the append-only sink contract.
type JSONLSink struct {
	mu sync.Mutex
	f  *os.File
}

// NewJSONLSink opens (or creates) path for appending.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLSink{f: f}, nil
}

// Append implements Sink.
func (s *JSONLSink) Append(event Event) error {
	buf, err := json.Marshal(event)
	if err != nil {
		return err
	}
	buf = append(buf, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.f.Write(buf)
	return err
}

// Close implements Sink.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
