package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopClosed is returned when posting to a closed loop.
var ErrLoopClosed = errors.New("scheduler loop is closed")

// call is a function posted to a Loop.
type call struct {
	fn     func() error
	result chan error
}

// Loop owns a Queue and runs it, together with posted work, on a single
// goroutine. Document mutations posted through Do never interleave with
// background tokenization.
//
// Usage:
//
//	loop := NewLoop(queue)
//	go loop.Run(ctx)
//	defer loop.Close()
//
//	err := loop.Do(ctx, func() error {
//	    doc.Insert(pos, text)
//	    return nil
//	})
type Loop struct {
	q      *Queue
	posts  chan *call
	closed atomic.Bool
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the loop's logger.
func WithLoopLogger(l *slog.Logger) LoopOption {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithQueueSize sets how many posted calls may be buffered.
func WithQueueSize(n int) LoopOption {
	return func(lp *Loop) {
		if n > 0 {
			lp.posts = make(chan *call, n)
		}
	}
}

// NewLoop creates a loop running q.
func NewLoop(q *Queue, opts ...LoopOption) *Loop {
	lp := &Loop{
		q:      q,
		posts:  make(chan *call, 64),
		done:   make(chan struct{}),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(lp)
	}
	return lp
}

// Queue returns the loop's queue.
func (lp *Loop) Queue() *Queue {
	return lp.q
}

// Run processes posted calls and due timers until ctx is cancelled or the
// loop is closed. Timer delays are measured in wall-clock time.
func (lp *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		lp.q.RunDue()

		wait := time.Hour
		if next, ok := lp.q.Next(); ok {
			wait = max(time.Until(next), 0)
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			lp.drain(ctx.Err())
			return ctx.Err()
		case <-lp.done:
			lp.drain(ErrLoopClosed)
			return nil
		case c := <-lp.posts:
			c.result <- lp.exec(c)
			close(c.result)
		case <-lp.q.Wake():
		case <-timer.C:
		}
	}
}

// exec runs one posted call with panic recovery.
func (lp *Loop) exec(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			lp.logger.Error("posted call panicked", "panic", r)
			err = fmt.Errorf("scheduler: posted call panicked: %v", r)
		}
	}()
	return c.fn()
}

func (lp *Loop) drain(err error) {
	for {
		select {
		case c := <-lp.posts:
			c.result <- err
			close(c.result)
		default:
			return
		}
	}
}

// Do runs fn on the loop goroutine and waits for it.
func (lp *Loop) Do(ctx context.Context, fn func() error) error {
	if lp.closed.Load() {
		return ErrLoopClosed
	}
	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-lp.done:
		return ErrLoopClosed
	case lp.posts <- c:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-c.result:
		return err
	case <-lp.done:
		select {
		case err := <-c.result:
			return err
		default:
			return ErrLoopClosed
		}
	}
}

// Post queues fn without waiting. It reports whether fn was accepted.
func (lp *Loop) Post(fn func()) bool {
	if lp.closed.Load() {
		return false
	}
	c := &call{fn: func() error { fn(); return nil }, result: make(chan error, 1)}
	select {
	case lp.posts <- c:
		return true
	default:
		return false
	}
}

// Close stops the loop. Pending posted calls fail with ErrLoopClosed.
func (lp *Loop) Close() {
	lp.closeOnce.Do(func() {
		lp.closed.Store(true)
		close(lp.done)
	})
}
