// Package assets loads map and tileset files off the asset filesystem without
// blocking the frame loop. Every load is a Future that the renderer polls once
// per frame; loads are deduplicated by path so concurrent requesters share one
// read.
package assets

import (
	"context"
	"errors"
	"sync"
)

// ErrPending is returned by Future.Result while the load is still in flight.
var ErrPending = errors.New("asset pending")

// Future is the handle of an asynchronous load.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns an already completed future.
func Resolved[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, err)
	return f
}

// Go runs fn on its own goroutine and returns its future.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		f.resolve(fn())
	}()
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Ready reports whether the load has finished, successfully or not.
func (f *Future[T]) Ready() bool {
	if f == nil {
		return false
	}
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result never blocks: it returns ErrPending until the load completes.
func (f *Future[T]) Result() (T, error) {
	var zero T
	if f == nil {
		return zero, ErrPending
	}
	select {
	case <-f.done:
		return f.val, f.err
	default:
		return zero, ErrPending
	}
}

// Value returns the loaded value, or false if the load is pending or failed.
func (f *Future[T]) Value() (T, bool) {
	v, err := f.Result()
	return v, err == nil
}

// Wait blocks until the load completes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	if f == nil {
		return zero, ErrPending
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Done is closed when the load completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
