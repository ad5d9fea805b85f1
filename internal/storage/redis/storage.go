package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying client so the notification bus can share it
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func transient(err error) error {
	return fmt.Errorf("%w: %w", model.ErrTransient, err)
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, roomKey(room.Code), data, s.cfg.RoomTTL).Result()
	if err != nil {
		return transient(err)
	}
	if !ok {
		return model.ErrCodeConflict
	}
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	room, err := s.getRoom(ctx, s.client, code)
	if err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		return nil, transient(err)
	}
	return room, err
}

func (s *Storage) getRoom(ctx context.Context, c redis.Cmdable, code model.RoomCode) (*model.Room, error) {
	data, err := c.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) SetHostIfUnset(ctx context.Context, code model.RoomCode, name string) (bool, error) {
	return s.updateRoom(ctx, code, func(room *model.Room) bool {
		if room.HasHost() {
			return false
		}
		room.HostName = name
		return true
	})
}

func (s *Storage) SetStarted(ctx context.Context, code model.RoomCode) (bool, error) {
	return s.updateRoom(ctx, code, func(room *model.Room) bool {
		if room.Started {
			return false
		}
		room.Started = true
		return true
	})
}

// updateRoom applies mutate under WATCH so that concurrent writers cannot
// both observe the old value. mutate returns false to leave the room as is.
func (s *Storage) updateRoom(ctx context.Context, code model.RoomCode, mutate func(*model.Room) bool) (bool, error) {
	key := roomKey(code)

	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		changed := false
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			room, err := s.getRoom(ctx, tx, code)
			if err != nil {
				return err
			}
			if !mutate(room) {
				return nil
			}

			data, err := json.Marshal(room)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, redis.KeepTTL)
				return nil
			})
			if err == nil {
				changed = true
			}
			return err
		}, key)

		switch {
		case err == nil:
			return changed, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, model.ErrRoomNotFound):
			return false, err
		default:
			return false, transient(err)
		}
	}
	return false, transient(redis.TxFailedErr)
}

// Roster operations

func (s *Storage) AddPlayer(ctx context.Context, player *model.Player) error {
	return s.push(ctx, playersKey(player.RoomCode), player)
}

func (s *Storage) ListPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	players, err := list[model.Player](ctx, s.client, playersKey(code))
	if err != nil {
		return nil, err
	}
	storage.SortByJoinedAt(players)
	return players, nil
}

// Result operations

func (s *Storage) AddResult(ctx context.Context, result *model.Result) error {
	return s.push(ctx, resultsKey(result.RoomCode), result)
}

func (s *Storage) ListResults(ctx context.Context, code model.RoomCode) ([]*model.Result, error) {
	return list[model.Result](ctx, s.client, resultsKey(code))
}

// push appends a JSON entry to a list, keeping the list TTL in step with the room
func (s *Storage) push(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	if s.cfg.RoomTTL > 0 {
		pipe.Expire(ctx, key, s.cfg.RoomTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return transient(err)
	}
	return nil
}

func list[T any](ctx context.Context, c redis.Cmdable, key string) ([]*T, error) {
	values, err := c.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, transient(err)
	}

	out := make([]*T, 0, len(values))
	for _, val := range values {
		var item T
		if err := json.Unmarshal([]byte(val), &item); err != nil {
			continue // Skip invalid data
		}
		out = append(out, &item)
	}
	return out, nil
}
