package loop

import (
	"context"
	"sync"
	"time"
)

// Loop is a single-threaded cooperative task queue. Tasks run one at a time
// on whichever goroutine drives the loop; Post is safe from any goroutine.
type Loop struct {
	clock  Clock
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// New creates a loop using clock for delayed tasks. A nil clock means RealClock.
func New(clock Clock) *Loop {
	if clock == nil {
		clock = RealClock{}
	}
	return &Loop{
		clock: clock,
		wake:  make(chan struct{}, 1),
	}
}

// Clock returns the loop's clock.
func (l *Loop) Clock() Clock {
	return l.clock
}

// Post queues fn to run at the next tick. It returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
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

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunPending runs queued tasks until the queue is empty, including tasks
// posted by the tasks themselves. It returns the number of tasks run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Run drives the loop until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Close refuses further posts and wakes Run so it can return. Tasks already
// queued are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Handle is a scheduled task that can be cancelled from the loop.
type Handle struct {
	mu        sync.Mutex
	stopper   Stopper
	cancelled bool
}

// Cancel stops future firings. A firing already queued on the loop is dropped.
func (h *Handle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = true
	if h.stopper != nil {
		h.stopper.Stop()
	}
}

func (h *Handle) isCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// AfterFunc runs fn on the loop once, after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Handle {
	h := &Handle{}
	h.mu.Lock()
	h.stopper = l.clock.AfterFunc(d, func() {
		l.Post(func() {
			if !h.isCancelled() {
				fn()
			}
		})
	})
	h.mu.Unlock()
	return h
}

// Every runs fn on the loop every d until cancelled.
func (l *Loop) Every(d time.Duration, fn func()) *Handle {
	h := &Handle{}
	var arm func()
	arm = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.cancelled {
			return
		}
		h.stopper = l.clock.AfterFunc(d, func() {
			arm()
			l.Post(func() {
				if !h.isCancelled() {
					fn()
				}
			})
		})
	}
	arm()
	return h
}
