package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
)

type subscriber struct {
	subjects []model.Subject
	ch       chan model.ChangeEvent
}

// Bus fans change signals out to in-process subscribers
type Bus struct {
	mu     sync.RWMutex
	subs   map[model.RoomCode]map[*subscriber]struct{}
	closed bool
	logger *slog.Logger
}

// Ensure Bus implements the interface
var _ notify.Bus = (*Bus)(nil)

// New creates an in-process bus
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[model.RoomCode]map[*subscriber]struct{}),
		logger: logger.With(slog.String("component", "notify")),
	}
}

// Publish delivers the event to every matching subscriber whose buffer has room
func (b *Bus) Publish(ctx context.Context, event model.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for sub := range b.subs[event.RoomCode] {
		if !notify.Wants(sub.subjects, event.Subject) {
			continue
		}
		if !notify.Offer(sub.ch, event) {
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Warn("change signal dropped - subscriber buffer full",
			slog.String("room", string(event.RoomCode)),
			slog.String("subject", string(event.Subject)),
			slog.Int("dropped", dropped))
	}
	return nil
}

// Subscribe registers a subscriber for one room until ctx ends or Close is called
func (b *Bus) Subscribe(ctx context.Context, code model.RoomCode, subjects ...model.Subject) (*notify.Subscription, error) {
	sub := &subscriber{
		subjects: subjects,
		ch:       make(chan model.ChangeEvent, notify.SubscriptionBuffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return notify.NewSubscription(sub.ch, func() {}), nil
	}
	if b.subs[code] == nil {
		b.subs[code] = make(map[*subscriber]struct{})
	}
	b.subs[code][sub] = struct{}{}
	b.mu.Unlock()

	s := notify.NewSubscription(sub.ch, func() { b.remove(code, sub) })
	context.AfterFunc(ctx, s.Close)
	return s, nil
}

func (b *Bus) remove(code model.RoomCode, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[code][sub]; !ok {
		return
	}
	delete(b.subs[code], sub)
	if len(b.subs[code]) == 0 {
		delete(b.subs, code)
	}
	close(sub.ch)
}

// SubscriberCount returns the number of live subscriptions for a room
func (b *Bus) SubscriberCount(code model.RoomCode) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[code])
}

// Close ends every subscription
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for code, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.subs, code)
	}
	return nil
}
