// Package eventloop serializes controller work onto one goroutine. Network calls run off
// the loop and report back through Post, so session state is only ever touched by the loop.
package eventloop

import (
	"context"
	"sync"
	"time"
)

// Stopper cancels a scheduled callback and reports whether it was still pending. A
// callback already handed to the loop may still run; callers that need a hard guarantee
// check their own generation.
type Stopper interface {
	Stop() bool
}

type Loop interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// Go runs work off the loop and then queues done on it.
	Go(work func(), done func())
	// AfterFunc queues fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Stopper
	Now() time.Time
}

var _ Stopper = (*time.Timer)(nil)

// Runner is the production Loop. Once Run returns, Post drops its function instead of
// blocking the caller.
type Runner struct {
	queue    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func NewRunner(buffer int) *Runner {
	return &Runner{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes queued functions until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	defer r.stopOnce.Do(func() { close(r.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-r.queue:
			fn()
		}
	}
}

// Done is closed when Run has returned.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) Post(fn func()) {
	select {
	case r.queue <- fn:
	case <-r.done:
	}
}

func (r *Runner) Go(work func(), done func()) {
	go func() {
		work()
		if done != nil {
			r.Post(done)
		}
	}()
}

func (r *Runner) AfterFunc(d time.Duration, fn func()) Stopper {
	return time.AfterFunc(d, func() { r.Post(fn) })
}

func (r *Runner) Now() time.Time { return time.Now() }
