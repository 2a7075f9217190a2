package recorder

import (
	"encoding/binary"
	"encoding/json"
	"os"

	"go.etcd.io/bbolt"
)

// BoltSink persists events into a bbolt bucket keyed by a monotonic
// sequence number. Suits single-writer deployments that want the event
// history queryable after the fact without an external database.
type BoltSink struct {
	db     *bbolt.DB
	bucket string
}

// NewBoltSink opens (or creates) the database file and the events bucket.
func NewBoltSink(file string, mode os.FileMode, bucket string) (*BoltSink, error) {
	db, err := bbolt.Open(file, mode, nil)
	if err != nil {
		return nil, err
	}
	s := &BoltSink{db: db, bucket: bucket}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Append implements Sink.
func (s *BoltSink) Append(event Event) error {
	buf, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return b.Put(key[:], buf)
	})
}

// Count returns the number of persisted events.
func (s *BoltSink) Count() (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(s.bucket)).ForEach(func(_, _ []byte) error {
			count++
			return nil
		})
	})
	if err != nil {
		return -1, err
	}
	return count, nil
}

// List returns all persisted events in append order.
func (s *BoltSink) List() ([]Event, error) {
	var events []Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(s.bucket)).ForEach(func(_, v []byte) error {
			var ev Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return err
			}
			events = append(events, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Close implements Sink.
func (s *BoltSink) Close() error {
	return s.db.Close()
}
