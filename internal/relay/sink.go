// Package relay forwards SDK callbacks to the host as one-way events.
package relay

import "sync"

// Sink is the host end of an event stream.
type Sink interface {
	Success(payload any)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(payload any)

func (f SinkFunc) Success(payload any) { f(payload) }

// Poster runs a task on the main execution context.
type Poster interface {
	Post(fn func()) bool
}

// sinkSlot holds at most one attached sink.
type sinkSlot struct {
	mu   sync.RWMutex
	sink Sink
}

func (s *sinkSlot) set(sink Sink) {
	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()
}

func (s *sinkSlot) get() Sink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sink
}

// deliver posts payload to whatever sink is attached when the task
// runs on the main context. It reports whether the task was queued.
func deliver(p Poster, slot *sinkSlot, payload any) bool {
	return p.Post(func() {
		if sink := slot.get(); sink != nil {
			sink.Success(payload)
		}
	})
}
