package session

import (
	"context"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
	"github.com/mcoot/bingoroom/internal/services/host"
	"github.com/mcoot/bingoroom/internal/services/registry"
	"github.com/mcoot/bingoroom/internal/services/results"
	"github.com/mcoot/bingoroom/internal/services/roster"
)

// Backend is everything a session needs from the room services. Every call
// may fail; a failed read means "not yet known".
type Backend interface {
	notify.Subscriber

	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	Join(ctx context.Context, code model.RoomCode, name string) (*model.Player, error)
	ClaimHost(ctx context.Context, code model.RoomCode, name string) (*model.HostClaim, error)
	Start(ctx context.Context, code model.RoomCode, name string) error
	ListPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error)
	SubmitResult(ctx context.Context, result *model.Result) (*model.Result, error)
	Leaderboard(ctx context.Context, code model.RoomCode) (*results.Leaderboard, error)
}

// LocalBackend calls the services in-process
type LocalBackend struct {
	Registry *registry.Service
	Roster   *roster.Service
	Host     *host.Service
	Results  *results.Service
	Bus      notify.Subscriber
}

// Ensure LocalBackend implements Backend
var _ Backend = (*LocalBackend)(nil)

func (b *LocalBackend) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return b.Registry.GetRoom(ctx, code)
}

func (b *LocalBackend) Join(ctx context.Context, code model.RoomCode, name string) (*model.Player, error) {
	return b.Roster.Join(ctx, code, name)
}

func (b *LocalBackend) ClaimHost(ctx context.Context, code model.RoomCode, name string) (*model.HostClaim, error) {
	return b.Host.Claim(ctx, code, name)
}

func (b *LocalBackend) Start(ctx context.Context, code model.RoomCode, name string) error {
	return b.Host.Start(ctx, code, name)
}

func (b *LocalBackend) ListPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	return b.Roster.List(ctx, code)
}

func (b *LocalBackend) SubmitResult(ctx context.Context, result *model.Result) (*model.Result, error) {
	return b.Results.Submit(ctx, result)
}

func (b *LocalBackend) Leaderboard(ctx context.Context, code model.RoomCode) (*results.Leaderboard, error) {
	return b.Results.Leaderboard(ctx, code)
}

func (b *LocalBackend) Subscribe(ctx context.Context, code model.RoomCode, subjects ...model.Subject) (*notify.Subscription, error) {
	return b.Bus.Subscribe(ctx, code, subjects...)
}
