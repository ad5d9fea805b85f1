package memory

import (
	"context"
	"sync"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	rooms   map[model.RoomCode]*model.Room
	players map[model.RoomCode][]*model.Player
	results map[model.RoomCode][]*model.Result
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:   make(map[model.RoomCode]*model.Room),
		players: make(map[model.RoomCode][]*model.Player),
		results: make(map[model.RoomCode][]*model.Result),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return model.ErrCodeConflict
	}
	stored := *room
	s.rooms[room.Code] = &stored
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	copied := *room
	return &copied, nil
}

func (s *Storage) SetHostIfUnset(ctx context.Context, code model.RoomCode, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return false, model.ErrRoomNotFound
	}
	if room.HasHost() {
		return false, nil
	}
	room.HostName = name
	return true, nil
}

func (s *Storage) SetStarted(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return false, model.ErrRoomNotFound
	}
	if room.Started {
		return false, nil
	}
	room.Started = true
	return true, nil
}

// Roster operations

func (s *Storage) AddPlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *player
	s.players[player.RoomCode] = append(s.players[player.RoomCode], &stored)
	return nil
}

func (s *Storage) ListPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]*model.Player, 0, len(s.players[code]))
	for _, p := range s.players[code] {
		copied := *p
		players = append(players, &copied)
	}
	storage.SortByJoinedAt(players)
	return players, nil
}

// Result operations

func (s *Storage) AddResult(ctx context.Context, result *model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *result
	s.results[result.RoomCode] = append(s.results[result.RoomCode], &stored)
	return nil
}

func (s *Storage) ListResults(ctx context.Context, code model.RoomCode) ([]*model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*model.Result, 0, len(s.results[code]))
	for _, r := range s.results[code] {
		copied := *r
		results = append(results, &copied)
	}
	return results, nil
}

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}
