package loop

import (
	"context"
	"sync"
)

// Loop is a FIFO task queue executed by a single goroutine at a time.
type Loop struct {
	mu       sync.Mutex
	tasks    []func()
	inflight int
	wake     chan struct{}
}

// New creates an idle Loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues task to run after every task already queued. It is safe to
// call from any goroutine, including from a task running on the loop.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Flush()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Flush runs queued tasks, including ones they post, until the queue is
// empty. It returns the number of tasks run. Work still in flight under
// Await is not waited for.
func (l *Loop) Flush() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		task()
		n++
	}
}

// Settle runs tasks until the queue is empty and no Await is in flight.
// It must not be called while Run is active.
func (l *Loop) Settle(ctx context.Context) error {
	for {
		l.Flush()

		l.mu.Lock()
		idle := len(l.tasks) == 0 && l.inflight == 0
		l.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Pending returns the number of queued tasks plus in-flight awaits.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks) + l.inflight
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from a task running on the same loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await runs op on a new goroutine and posts then(result, err) to l when it
// returns. Call it from the loop.
func Await[T any](l *Loop, op func() (T, error), then func(T, error)) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	go func() {
		v, err := op()
		l.mu.Lock()
		l.inflight--
		l.tasks = append(l.tasks, func() { then(v, err) })
		l.mu.Unlock()
		l.signal()
	}()
}
