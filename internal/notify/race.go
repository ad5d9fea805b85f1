package notify

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Watcher blocks until it observes a value or fails. It must return promptly
// once ctx is cancelled.
type Watcher[T any] func(ctx context.Context) (T, error)

// ErrNoWatchers is returned by First when called without watchers
var ErrNoWatchers = errors.New("notify: no watchers")

var errWon = errors.New("watcher won")

// First runs every watcher concurrently and returns the first value observed.
// The remaining watchers are cancelled and have all returned before First
// does. A failing watcher does not cancel its siblings; only when every
// watcher has failed are their errors returned, joined.
func First[T any](ctx context.Context, watchers ...Watcher[T]) (T, error) {
	var zero T
	if len(watchers) == 0 {
		return zero, ErrNoWatchers
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		once   sync.Once
		result T
		mu     sync.Mutex
		errs   []error
	)
	for _, watch := range watchers {
		g.Go(func() error {
			v, err := watch(gctx)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}

			won := false
			once.Do(func() {
				result = v
				won = true
			})
			if won {
				return errWon
			}
			return nil
		})
	}

	if err := g.Wait(); errors.Is(err, errWon) {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, errors.Join(errs...)
}
