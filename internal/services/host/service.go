package host

import (
	"context"
	"log/slog"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/services/registry"
)

// Service elects exactly one host per room and gates the start on it
type Service struct {
	registry *registry.Service
	logger   *slog.Logger
}

// New creates a new host election service
func New(registry *registry.Service, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		logger:   logger.With(slog.String("component", "host")),
	}
}

// Claim tries to make name the host of the room. A started room makes the
// caller a late joiner. When the room already has a host, or another claim
// wins the race, the authoritative host is returned. Only the caller whose
// conditional write lands is host, even if its name matches the stored one.
func (s *Service) Claim(ctx context.Context, code model.RoomCode, name string) (*model.HostClaim, error) {
	name, err := model.ValidateDisplayName(name)
	if err != nil {
		return nil, err
	}
	room, err := s.registry.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Started {
		return &model.HostClaim{Started: true, HostName: room.HostName}, nil
	}
	if room.HasHost() {
		return &model.HostClaim{HostName: room.HostName}, nil
	}

	won, err := s.registry.SetHost(ctx, code, name)
	if err != nil {
		return nil, err
	}
	if won {
		return &model.HostClaim{IsHost: true, HostName: name}, nil
	}

	// Lost the race; the winner's write is authoritative
	room, err = s.registry.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	s.logger.Info("host claim lost",
		slog.String("room", string(code)),
		slog.String("name", name),
		slog.String("host", room.HostName))
	return &model.HostClaim{Started: room.Started, HostName: room.HostName}, nil
}

// Start starts the room on behalf of name. Only the stored host name may
// start; what the caller believes about its own role is not consulted.
func (s *Service) Start(ctx context.Context, code model.RoomCode, name string) error {
	name, err := model.ValidateDisplayName(name)
	if err != nil {
		return err
	}
	room, err := s.registry.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if !room.IsHost(name) {
		s.logger.Warn("start rejected: not host",
			slog.String("room", string(code)),
			slog.String("name", name),
			slog.String("host", room.HostName))
		return model.ErrNotHost
	}
	return s.registry.SetStarted(ctx, code)
}
