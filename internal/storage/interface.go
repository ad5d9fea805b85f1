package storage

import (
	"context"

	"github.com/mcoot/bingoroom/internal/model"
)

// Storage persists rooms, roster entries and results.
//
// Every invariant the room lifecycle relies on (unique code, single host,
// started once) is enforced with a single-row conditional write; no
// operation spans more than one record transactionally.
type Storage interface {
	// Room operations

	// CreateRoom inserts a new room. Returns model.ErrCodeConflict if the
	// code is taken; an existing room is never overwritten.
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	// SetHostIfUnset records name as host only if no host is set yet.
	// Returns false when another host already holds the room.
	SetHostIfUnset(ctx context.Context, code model.RoomCode, name string) (bool, error)
	// SetStarted flips the started flag. Returns true only for the call
	// that changed it.
	SetStarted(ctx context.Context, code model.RoomCode) (bool, error)

	// Roster operations
	AddPlayer(ctx context.Context, player *model.Player) error
	// ListPlayers returns players ordered by JoinedAt ascending, ties in
	// insertion order
	ListPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error)

	// Result operations
	AddResult(ctx context.Context, result *model.Result) error
	// ListResults returns results in insertion order
	ListResults(ctx context.Context, code model.RoomCode) ([]*model.Result, error)

	Close() error
}
