// Package async runs one task on a single logical thread over blocking I/O.
//
// Blocking work is submitted with Go and observed with Await. The I/O runs on
// its own goroutine; its completion is posted back to the Loop, which resolves
// the Future on the loop goroutine and thereby resumes the waiting task. Await
// and Sleep are the only suspension points a task has.
package async

// Future is the pending outcome of one operation. It completes exactly once,
// either with a value or with an error.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Rejected returns a future already completed with err.
func Rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}

// Resolved returns a future already completed with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, nil)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Done returns a channel that is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (f *Future[T]) Result() (T, error) {
	return f.val, f.err
}

// Await suspends the calling task until f completes and returns its outcome
// in place.
func Await[T any](f *Future[T]) (T, error) {
	<-f.done
	return f.val, f.err
}
