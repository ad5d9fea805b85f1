package notify

import (
	"context"
	"errors"
	"time"

	"github.com/mcoot/bingoroom/internal/model"
)

// ErrSubscriptionClosed is returned by a push watcher whose subscription
// ended before the awaited condition was observed
var ErrSubscriptionClosed = errors.New("notify: subscription closed")

// Check re-reads authoritative state. ok reports whether the awaited
// condition holds; an error means the state is not yet known.
type Check[T any] func(ctx context.Context) (v T, ok bool, err error)

// PushWatcher waits for signals on the room's subjects and re-runs check on
// each one. It checks once right after subscribing so a change that landed
// before the subscription is not missed.
func PushWatcher[T any](sub Subscriber, code model.RoomCode, check Check[T], subjects ...model.Subject) Watcher[T] {
	return func(ctx context.Context) (T, error) {
		var zero T

		s, err := sub.Subscribe(ctx, code, subjects...)
		if err != nil {
			return zero, err
		}
		defer s.Close()

		if v, ok, err := check(ctx); err == nil && ok {
			return v, nil
		}

		for {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case _, open := <-s.C:
				if !open {
					return zero, ErrSubscriptionClosed
				}
				drain(s.C)
				if v, ok, err := check(ctx); err == nil && ok {
					return v, nil
				}
			}
		}
	}
}

// PollWatcher re-runs check every interval until it reports ok
func PollWatcher[T any](interval time.Duration, check Check[T]) Watcher[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-ticker.C:
				if v, ok, err := check(ctx); err == nil && ok {
					return v, nil
				}
			}
		}
	}
}

// drain discards queued signals so a burst triggers a single re-read
func drain(ch <-chan model.ChangeEvent) {
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		default:
			return
		}
	}
}
