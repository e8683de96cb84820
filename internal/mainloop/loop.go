// Package mainloop is the single execution context every host-bound
// event is delivered on.
package mainloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrStopped = errors.New("mainloop: stopped")

// Loop runs posted tasks one at a time, in the order they were posted.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

func New(logger *slog.Logger) *Loop {
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and returns false once the loop
// has been stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run consumes the queue until ctx is done or Stop is called. Tasks
// still queued at stop are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	for {
		fn, ok := l.next()
		if ok {
			l.exec(fn)
			continue
		}

		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.wake:
			if l.isStopped() {
				return
			}
		}
	}
}

// Flush blocks until every task posted before the call has run.
func (l *Loop) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !l.Post(func() { close(barrier) }) {
		return ErrStopped
	}

	select {
	case <-barrier:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("mainloop task panicked", "panic", r)
		}
	}()
	fn()
}
