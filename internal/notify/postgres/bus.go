package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
)

// Channel is the single NOTIFY channel every room shares
const Channel = "bingoroom_events"

// Bus carries change signals over Postgres LISTEN/NOTIFY. Each subscription
// holds its own connection because LISTEN is connection-scoped.
type Bus struct {
	pool   *pgxpool.Pool
	dsn    string
	logger *slog.Logger
}

// Ensure Bus implements the interface
var _ notify.Bus = (*Bus)(nil)

// New connects a publishing pool to dsn
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Bus, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Bus{
		pool:   pool,
		dsn:    dsn,
		logger: logger.With(slog.String("component", "notify")),
	}, nil
}

func (b *Bus) Publish(ctx context.Context, event model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = b.pool.Exec(ctx, "SELECT pg_notify($1, $2)", Channel, string(data))
	return err
}

func (b *Bus) Subscribe(ctx context.Context, code model.RoomCode, subjects ...model.Subject) (*notify.Subscription, error) {
	conn, err := pgx.Connect(ctx, b.dsn)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, err
	}

	out := make(chan model.ChangeEvent, notify.SubscriptionBuffer)
	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer conn.Close(context.Background())
		for {
			n, err := conn.WaitForNotification(subCtx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					b.logger.Warn("listen connection lost",
						slog.String("room", string(code)),
						slog.String("error", err.Error()))
				}
				return
			}
			var event model.ChangeEvent
			if err := json.Unmarshal([]byte(n.Payload), &event); err != nil {
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
	}()

	return notify.NewSubscription(out, func() {
		cancel()
		<-done
	}), nil
}

// Close releases the publishing pool
func (b *Bus) Close() error {
	b.pool.Close()
	return nil
}
