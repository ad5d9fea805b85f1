package notify

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Coalescer collapses concurrent re-reads of the same key into one call.
// Late arrivals share the in-flight result instead of issuing their own read.
type Coalescer[T any] struct {
	group singleflight.Group
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call's result. ctx only bounds the wait; the shared
// call runs to completion for the other waiters.
func (c *Coalescer[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}
