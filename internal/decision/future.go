// Package decision holds the one-shot boolean future used by the
// notification handshake.
package decision

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Future is resolved at most once. Waiters that time out see false.
type Future struct {
	id   string
	once sync.Once
	done chan struct{}

	mu    sync.Mutex
	value bool
}

func New() *Future {
	return &Future{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

func (f *Future) ID() string {
	return f.id
}

// Resolve sets the value. Only the first call has any effect; it
// reports whether this call was the one that resolved f.
func (f *Future) Resolve(v bool) bool {
	resolved := false
	f.once.Do(func() {
		f.mu.Lock()
		f.value = v
		f.mu.Unlock()
		close(f.done)
		resolved = true
	})
	return resolved
}

// Resolved reports whether Resolve has been called.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks up to timeout. ok is false when the timeout elapsed
// first, in which case value is always false.
func (f *Future) Await(timeout time.Duration) (value bool, ok bool) {
	if timeout <= 0 {
		if !f.Resolved() {
			return false, false
		}
		return f.get(), true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.get(), true
	case <-timer.C:
		// a resolve may have raced the timer
		if f.Resolved() {
			return f.get(), true
		}
		return false, false
	}
}

func (f *Future) get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}
