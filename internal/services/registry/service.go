package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/bingoroom/internal/dependencies/clock"
	"github.com/mcoot/bingoroom/internal/dependencies/random"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
	"github.com/mcoot/bingoroom/internal/storage"
)

// MaxCreateAttempts bounds code regeneration when generated codes collide
const MaxCreateAttempts = 5

// Service creates rooms and owns their shared flags
type Service struct {
	storage   storage.Storage
	publisher notify.Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
}

// New creates a new registry service
func New(
	storage storage.Storage,
	publisher notify.Publisher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:   storage,
		publisher: publisher,
		clock:     clock,
		random:    random,
		logger:    logger.With(slog.String("component", "registry")),
	}
}

// CreateRoom creates a room with a freshly generated code and seed,
// regenerating on collision up to MaxCreateAttempts times
func (s *Service) CreateRoom(ctx context.Context) (*model.Room, error) {
	for attempt := 1; attempt <= MaxCreateAttempts; attempt++ {
		code := model.RoomCode(s.random.String(model.RoomCodeLength, model.RoomCodeAlphabet))
		seed := s.random.String(model.SeedLength, model.SeedAlphabet)

		room, err := s.CreateRoomWithCode(ctx, code, seed)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, model.ErrCodeConflict) {
			return nil, err
		}
		s.logger.Info("room code collision, regenerating",
			slog.String("room", string(code)),
			slog.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("%w: no free code after %d attempts", model.ErrRoomCreateFailed, MaxCreateAttempts)
}

// CreateRoomWithCode creates a room with the given code and seed. Returns
// model.ErrCodeConflict if the code is already taken.
func (s *Service) CreateRoomWithCode(ctx context.Context, code model.RoomCode, seed string) (*model.Room, error) {
	room := &model.Room{
		Code:      code,
		Seed:      seed,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("room created", slog.String("room", string(code)))
	s.announce(ctx, code, model.OpInsert)
	return room, nil
}

// GetRoom retrieves a room by code
func (s *Service) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return s.storage.GetRoom(ctx, code)
}

// SetHost records name as host if no host is set. The returned flag reports
// whether this call won.
func (s *Service) SetHost(ctx context.Context, code model.RoomCode, name string) (bool, error) {
	won, err := s.storage.SetHostIfUnset(ctx, code, name)
	if err != nil {
		return false, err
	}
	if won {
		s.logger.Info("host elected",
			slog.String("room", string(code)),
			slog.String("host", name))
		s.announce(ctx, code, model.OpUpdate)
	}
	return won, nil
}

// SetStarted marks the room started. Repeated calls succeed without
// publishing again.
func (s *Service) SetStarted(ctx context.Context, code model.RoomCode) error {
	changed, err := s.storage.SetStarted(ctx, code)
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("room started", slog.String("room", string(code)))
		s.announce(ctx, code, model.OpUpdate)
	}
	return nil
}

func (s *Service) announce(ctx context.Context, code model.RoomCode, op model.Op) {
	notify.Announce(ctx, s.publisher, s.logger, model.ChangeEvent{
		Subject:  model.SubjectRoom,
		Op:       op,
		RoomCode: code,
		At:       s.clock.Now(),
	})
}
