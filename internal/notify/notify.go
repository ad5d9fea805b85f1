// Package notify carries best-effort "something changed" signals between the
// writers of a room and everyone watching it.
//
// Signals may be dropped, duplicated or reordered. Receivers never apply a
// signal's payload; they re-read the affected collection.
package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/bingoroom/internal/model"
)

// SubscriptionBuffer is the per-subscriber queue size. Signals that do not
// fit are dropped.
const SubscriptionBuffer = 16

// Publisher announces that a room collection changed
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// Subscriber delivers change signals for one room. An empty subjects list
// subscribes to every subject.
type Subscriber interface {
	Subscribe(ctx context.Context, code model.RoomCode, subjects ...model.Subject) (*Subscription, error)
}

// Bus is a complete notification backend
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription is a live stream of change signals. C is closed once the
// subscription ends, either through Close or its context being cancelled.
type Subscription struct {
	C <-chan model.ChangeEvent

	once   sync.Once
	cancel func()
}

// NewSubscription wraps a channel and the function that tears it down.
// cancel must eventually close ch.
func NewSubscription(ch <-chan model.ChangeEvent, cancel func()) *Subscription {
	return &Subscription{C: ch, cancel: cancel}
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Wants reports whether a subscription for subjects accepts subject
func Wants(subjects []model.Subject, subject model.Subject) bool {
	return len(subjects) == 0 || slices.Contains(subjects, subject)
}

// Offer delivers event without blocking. Returns false if the buffer was full.
func Offer(ch chan<- model.ChangeEvent, event model.ChangeEvent) bool {
	select {
	case ch <- event:
		return true
	default:
		return false
	}
}

// Discard is a bus that accepts every publish and never delivers anything
var Discard Bus = discard{}

type discard struct{}

func (discard) Publish(context.Context, model.ChangeEvent) error { return nil }

func (discard) Subscribe(ctx context.Context, _ model.RoomCode, _ ...model.Subject) (*Subscription, error) {
	ch := make(chan model.ChangeEvent)
	sub := NewSubscription(ch, func() { close(ch) })
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

func (discard) Close() error { return nil }

// Announce publishes a change signal for a write that already succeeded.
// Failures are logged and swallowed; watchers fall back to polling.
func Announce(ctx context.Context, pub Publisher, logger *slog.Logger, event model.ChangeEvent) {
	if err := pub.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish change signal",
			slog.String("room", string(event.RoomCode)),
			slog.String("subject", string(event.Subject)),
			slog.String("error", err.Error()))
	}
}
