package roster

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/bingoroom/internal/dependencies/clock"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
	"github.com/mcoot/bingoroom/internal/storage"
)

// Service manages who has joined each room
type Service struct {
	storage   storage.Storage
	publisher notify.Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

// New creates a new roster service
func New(storage storage.Storage, publisher notify.Publisher, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With(slog.String("component", "roster")),
	}
}

// Join adds a player to an existing room. Names are trimmed and need not be
// unique; every call appends a new entry.
func (s *Service) Join(ctx context.Context, code model.RoomCode, rawName string) (*model.Player, error) {
	name, err := model.ValidateDisplayName(rawName)
	if err != nil {
		return nil, err
	}
	if _, err := s.storage.GetRoom(ctx, code); err != nil {
		return nil, err
	}

	player := &model.Player{
		ID:          model.PlayerID(uuid.NewString()),
		RoomCode:    code,
		DisplayName: name,
		JoinedAt:    s.clock.Now(),
	}
	if err := s.storage.AddPlayer(ctx, player); err != nil {
		return nil, err
	}

	s.logger.Info("player joined",
		slog.String("room", string(code)),
		slog.String("player_id", string(player.ID)),
		slog.String("name", name))
	notify.Announce(ctx, s.publisher, s.logger, model.ChangeEvent{
		Subject:  model.SubjectRoster,
		Op:       model.OpInsert,
		RoomCode: code,
		At:       player.JoinedAt,
	})
	return player, nil
}

// List returns the room's players ordered by join time
func (s *Service) List(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx, code)
}
