// Package engine models the remote compute engine as a graph of deferred
// handles. Building a handle never touches data; only Materialize evaluates.
package engine

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/irbid-geoai/geoai-monitor/internal/errors"
)

// Deferred is a lazy value of type T.
type Deferred[T any] struct {
	label string
	eval  func(ctx context.Context) (T, error)
}

// Defer wraps an evaluation function without calling it.
func Defer[T any](label string, eval func(ctx context.Context) (T, error)) Deferred[T] {
	return Deferred[T]{label: label, eval: eval}
}

// Constant returns a handle that evaluates to v.
func Constant[T any](label string, v T) Deferred[T] {
	return Defer(label, func(context.Context) (T, error) { return v, nil })
}

// Failed returns a handle whose evaluation reports err. Builders use it to
// defer validation failures to the materialization point.
func Failed[T any](label string, err error) Deferred[T] {
	return Defer(label, func(context.Context) (T, error) {
		var zero T
		return zero, err
	})
}

func (d Deferred[T]) Label() string {
	return d.label
}

func (d Deferred[T]) evaluate(ctx context.Context) (T, error) {
	var zero T
	if d.eval == nil {
		return zero, apperrors.NewInternalError(fmt.Sprintf("handle %q was never built", d.label), nil)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return d.eval(ctx)
}

// Map derives a handle by applying fn to the value of d.
func Map[T, U any](d Deferred[T], label string, fn func(T) (U, error)) Deferred[U] {
	return Defer(label, func(ctx context.Context) (U, error) {
		v, err := d.evaluate(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// Combine derives a handle from two others, evaluated left then right.
func Combine[A, B, U any](a Deferred[A], b Deferred[B], label string, fn func(A, B) (U, error)) Deferred[U] {
	return Defer(label, func(ctx context.Context) (U, error) {
		var zero U
		av, err := a.evaluate(ctx)
		if err != nil {
			return zero, err
		}
		bv, err := b.evaluate(ctx)
		if err != nil {
			return zero, err
		}
		return fn(av, bv)
	})
}

// All collects several handles of the same type, evaluated in order.
func All[T any](label string, ds ...Deferred[T]) Deferred[[]T] {
	return Defer(label, func(ctx context.Context) ([]T, error) {
		out := make([]T, 0, len(ds))
		for _, d := range ds {
			v, err := d.evaluate(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}

// Gather is All with the handles evaluated concurrently, at most workers at a
// time (NumCPU when workers <= 0). The first failure cancels the rest.
func Gather[T any](label string, workers int, ds ...Deferred[T]) Deferred[[]T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return Defer(label, func(ctx context.Context) ([]T, error) {
		out := make([]T, len(ds))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, d := range ds {
			g.Go(func() error {
				v, err := d.evaluate(gctx)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Then chains a handle whose construction depends on the value of d.
func Then[T, U any](d Deferred[T], label string, fn func(T) Deferred[U]) Deferred[U] {
	return Defer(label, func(ctx context.Context) (U, error) {
		v, err := d.evaluate(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v).evaluate(ctx)
	})
}
