package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	ErrNotRunning = errors.New("async: loop is not running")
	ErrLoopUsed   = errors.New("async: loop already used")
	ErrTaskPanic  = errors.New("async: task panicked")
)

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// Loop drives exactly one task to completion. A Loop is single-use.
type Loop struct {
	events chan func()
	quit   chan struct{}
	after  func(time.Duration) <-chan time.Time
	state  atomic.Int32
}

// Option configures a Loop.
type Option func(*Loop)

// WithAfter replaces time.After as the clock behind Sleep.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(l *Loop) {
		l.after = after
	}
}

// NewLoop creates an idle loop.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		events: make(chan func(), 16),
		quit:   make(chan struct{}),
		after:  time.After,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Running reports whether a task is currently being driven.
func (l *Loop) Running() bool {
	return l.state.Load() == stateRunning
}

// Run starts task and processes completion events on the calling goroutine
// until the task returns. The task's error is returned as-is; a panic in the
// task is converted to an error wrapping ErrTaskPanic.
func (l *Loop) Run(ctx context.Context, task func(context.Context) error) error {
	if !l.state.CompareAndSwap(stateIdle, stateRunning) {
		return ErrLoopUsed
	}
	defer func() {
		l.state.Store(stateStopped)
		close(l.quit)
	}()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrTaskPanic, r)
			}
		}()
		done <- task(ctx)
	}()

	for {
		select {
		case ev := <-l.events:
			ev()
		case err := <-done:
			return err
		}
	}
}

// post hands a completion to the loop goroutine. Completions arriving after
// the task has finished are dropped.
func (l *Loop) post(ev func()) {
	select {
	case l.events <- ev:
	case <-l.quit:
	}
}

// Go runs fn on the I/O substrate and returns a future the loop resolves
// with fn's outcome.
func Go[T any](l *Loop, fn func() (T, error)) *Future[T] {
	if !l.Running() {
		return Rejected[T](ErrNotRunning)
	}
	f := newFuture[T]()
	go func() {
		v, err := call(fn)
		l.post(func() { f.resolve(v, err) })
	}()
	return f
}

// Sleep returns a future the loop resolves once d has elapsed on the loop's
// clock.
func Sleep(l *Loop, d time.Duration) *Future[struct{}] {
	if !l.Running() {
		return Rejected[struct{}](ErrNotRunning)
	}
	f := newFuture[struct{}]()
	fired := l.after(d)
	go func() {
		<-fired
		l.post(func() { f.resolve(struct{}{}, nil) })
	}()
	return f
}

func call[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return fn()
}
