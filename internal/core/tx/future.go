package tx

import (
	"context"
	"sync"
)

// Future is the pending result of a reply-expecting operation. It is
// completed exactly once; later completions are ignored.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	completed bool
	value     T
	err       error
	callbacks []func(T, error)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already holding v.
func Completed[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// Failed returns a future already holding err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

// complete stores the result and runs callbacks on the calling goroutine.
// It reports whether this call was the one that completed the future.
func (f *Future[T]) complete(v T, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.value, f.err = v, err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(v, err)
	}
	return true
}

// Done is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has completed.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future completes or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the future completes.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// OnComplete registers fn to run with the result. If the future is already
// complete fn runs immediately on the caller's goroutine.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	fn(v, err)
}

// Then derives a future whose result is fn applied to src's result.
func Then[S, T any](src *Future[S], fn func(S, error) (T, error)) *Future[T] {
	dst := newFuture[T]()
	src.OnComplete(func(v S, err error) {
		dst.complete(fn(v, err))
	})
	return dst
}
