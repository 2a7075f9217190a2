// Package recorder provides deterministic hashing and fire-and-forget event
// emission for routing, feedback and optimization decisions. The recorder
// never blocks the decision path and never surfaces sink failures: events
// are dropped when the sink is full or unavailable.
package recorder

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event is a flat record handed to the sink. Minimum fields are ts,
// eventType and id; everything else depends on the event type.
type Event map[string]any

// Sink persists events. Implementations may block; the recorder isolates
// callers from sink latency through its internal queue.
type Sink interface {
	Append(event Event) error
	Close() error
}

// Recorder queues events to a sink on a background goroutine.
// All methods are safe on a nil receiver, so callers that run without a
// sink do not need to guard every LogEvent call.
type Recorder struct {
	sink  Sink
	ch    chan Event
	done  chan struct{}
	close sync.Once

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

// New starts a recorder draining into sink. buffer is the queue depth;
// events beyond it are dropped, not queued.
func New(sink Sink, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		sink: sink,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Recorder) drain() {
	defer close(r.done)
	for ev := range r.ch {
		if err := r.sink.Append(ev); err != nil {
			// Sink failure is off the decision path. Drop and move on.
			logrus.Debugf("recorder: sink append failed, dropping event: %v", err)
			r.noteDrop()
		}
	}
}

func (r *Recorder) noteDrop() {
	r.mu.Lock()
	r.dropped++
	r.mu.Unlock()
}

// Dropped returns the number of events lost to queue overflow or sink
// failure since construction.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// LogEvent stamps the event with ts and id and enqueues it. Never blocks
// and never returns an error; a full queue drops the event.
func (r *Recorder) LogEvent(fields Event) {
	if r == nil || fields == nil {
		return
	}
	ev := make(Event, len(fields)+2)
	for k, v := range fields {
		ev[k] = v
	}
	ev["ts"] = time.Now().UnixMilli()
	ev["id"] = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.dropped++
		return
	}
	select {
	case r.ch <- ev:
	default:
		logrus.Debugf("recorder: queue full, dropping %v event", ev["eventType"])
		r.dropped++
	}
}

// Close flushes queued events and closes the sink. Safe to call more than
// once; LogEvent after Close drops silently.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.close.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.ch)
		<-r.done
		if err := r.sink.Close(); err != nil {
			logrus.Debugf("recorder: sink close failed: %v", err)
		}
	})
}
