package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
)

const channelPrefix = "bingoroom:events"

// channelName returns the pub/sub channel for a room
func channelName(code model.RoomCode) string {
	return fmt.Sprintf("%s:%s", channelPrefix, code)
}

// Bus carries change signals over Redis pub/sub, one channel per room
type Bus struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure Bus implements the interface
var _ notify.Bus = (*Bus)(nil)

// New creates a bus on an existing client. The client is owned by the caller.
func New(client *redis.Client, logger *slog.Logger) *Bus {
	return &Bus{
		client: client,
		logger: logger.With(slog.String("component", "notify")),
	}
}

func (b *Bus) Publish(ctx context.Context, event model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelName(event.RoomCode), data).Err()
}

func (b *Bus) Subscribe(ctx context.Context, code model.RoomCode, subjects ...model.Subject) (*notify.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channelName(code))

	// Wait for the subscription to be confirmed so no publish after this
	// call returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan model.ChangeEvent, notify.SubscriptionBuffer)
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event model.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("invalid change signal", slog.String("error", err.Error()))
					continue
				}
				if event.RoomCode != code || !notify.Wants(subjects, event.Subject) {
					continue
				}
				if !notify.Offer(out, event) {
					b.logger.Warn("change signal dropped - subscriber buffer full",
						slog.String("room", string(code)))
				}
			}
		}
	}()

	sub := notify.NewSubscription(out, func() {
		cancel()
		_ = pubsub.Close()
		<-done
	})
	context.AfterFunc(ctx, sub.Close)
	return sub, nil
}

// Close is a no-op; the shared client is closed by its owner
func (b *Bus) Close() error {
	return nil
}
