// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/storage"
)

// Suite runs the storage conformance tests. Embed it in a backend test suite
// and set NewStorage to build a fresh, empty backend per test.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
	base    time.Time
}

func (s *Suite) SetupTest() {
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
	s.base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.Storage != nil {
		_ = s.Storage.Close()
	}
}

func (s *Suite) createRoom(code model.RoomCode) *model.Room {
	room := &model.Room{Code: code, Seed: "x7q" + string(code), CreatedAt: s.base}
	s.Require().NoError(s.Storage.CreateRoom(s.Ctx, room))
	return room
}

func (s *Suite) player(id string, code model.RoomCode, name string, offset time.Duration) *model.Player {
	return &model.Player{
		ID:          model.PlayerID(id),
		RoomCode:    code,
		DisplayName: name,
		JoinedAt:    s.base.Add(offset),
	}
}

// Room tests

func (s *Suite) TestCreateAndGetRoom() {
	s.createRoom("AB12CD")

	room, err := s.Storage.GetRoom(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("AB12CD"), room.Code)
	s.Equal("x7qAB12CD", room.Seed)
	s.False(room.Started)
	s.False(room.HasHost())
}

func (s *Suite) TestGetRoomNotFound() {
	_, err := s.Storage.GetRoom(s.Ctx, "NOPE42")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestCreateRoomConflictDoesNotOverwrite() {
	s.createRoom("AB12CD")

	err := s.Storage.CreateRoom(s.Ctx, &model.Room{Code: "AB12CD", Seed: "other"})
	s.ErrorIs(err, model.ErrCodeConflict)

	room, err := s.Storage.GetRoom(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Equal("x7qAB12CD", room.Seed)
}

func (s *Suite) TestSetHostFirstWriterWins() {
	s.createRoom("AB12CD")

	won, err := s.Storage.SetHostIfUnset(s.Ctx, "AB12CD", "Max")
	s.Require().NoError(err)
	s.True(won)

	won, err = s.Storage.SetHostIfUnset(s.Ctx, "AB12CD", "Lewis")
	s.Require().NoError(err)
	s.False(won)

	room, err := s.Storage.GetRoom(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Equal("Max", room.HostName)
}

func (s *Suite) TestSetHostConcurrentHasSingleWinner() {
	s.createRoom("AB12CD")

	const contenders = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			won, err := s.Storage.SetHostIfUnset(s.Ctx, "AB12CD", name)
			if err == nil && won {
				mu.Lock()
				wins = append(wins, name)
				mu.Unlock()
			}
		}(fmt.Sprintf("player-%d", i))
	}
	wg.Wait()

	s.Require().Len(wins, 1)
	room, err := s.Storage.GetRoom(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Equal(wins[0], room.HostName)
}

func (s *Suite) TestSetHostRoomNotFound() {
	_, err := s.Storage.SetHostIfUnset(s.Ctx, "NOPE42", "Max")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestSetStartedOnlyOnce() {
	s.createRoom("AB12CD")

	changed, err := s.Storage.SetStarted(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.Storage.SetStarted(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.False(changed)

	room, err := s.Storage.GetRoom(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.True(room.Started)
}

func (s *Suite) TestSetStartedRoomNotFound() {
	_, err := s.Storage.SetStarted(s.Ctx, "NOPE42")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Roster tests

func (s *Suite) TestListPlayersOrderedByJoinedAt() {
	s.createRoom("AB12CD")

	// Inserted out of join order
	s.Require().NoError(s.Storage.AddPlayer(s.Ctx, s.player("p2", "AB12CD", "Lewis", 2*time.Second)))
	s.Require().NoError(s.Storage.AddPlayer(s.Ctx, s.player("p1", "AB12CD", "Max", time.Second)))
	s.Require().NoError(s.Storage.AddPlayer(s.Ctx, s.player("p3", "AB12CD", "Charles", 3*time.Second)))

	players, err := s.Storage.ListPlayers(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Require().Len(players, 3)
	s.Equal([]string{"Max", "Lewis", "Charles"}, names(players))
}

func (s *Suite) TestListPlayersTiesKeepInsertionOrder() {
	s.createRoom("AB12CD")

	for i, name := range []string{"Max", "Max", "Lando"} {
		p := s.player(fmt.Sprintf("p%d", i), "AB12CD", name, 0)
		s.Require().NoError(s.Storage.AddPlayer(s.Ctx, p))
	}

	players, err := s.Storage.ListPlayers(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Equal([]string{"Max", "Max", "Lando"}, names(players))
	s.Equal(model.PlayerID("p0"), players[0].ID)
	s.Equal(model.PlayerID("p1"), players[1].ID)
}

func (s *Suite) TestListPlayersIsolatedPerRoom() {
	s.createRoom("AB12CD")
	s.createRoom("ZZ99ZZ")
	s.Require().NoError(s.Storage.AddPlayer(s.Ctx, s.player("p1", "AB12CD", "Max", 0)))
	s.Require().NoError(s.Storage.AddPlayer(s.Ctx, s.player("p2", "ZZ99ZZ", "Lewis", 0)))

	players, err := s.Storage.ListPlayers(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Equal([]string{"Max"}, names(players))
}

func (s *Suite) TestListPlayersEmpty() {
	s.createRoom("AB12CD")

	players, err := s.Storage.ListPlayers(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Empty(players)
}

// Result tests

func (s *Suite) TestResultsKeepInsertionOrderAndDuplicates() {
	s.createRoom("AB12CD")

	submitted := []*model.Result{
		{ID: "r1", RoomCode: "AB12CD", PlayerName: "Max", Score: 12, TotalTimeSeconds: 95, BestStreak: 4, CreatedAt: s.base},
		{ID: "r2", RoomCode: "AB12CD", PlayerName: "Lewis", Score: 14, TotalTimeSeconds: 80, BestStreak: 6, CreatedAt: s.base},
		{ID: "r3", RoomCode: "AB12CD", PlayerName: "Max", Score: 13, TotalTimeSeconds: 99, BestStreak: 5, CreatedAt: s.base},
	}
	for _, r := range submitted {
		s.Require().NoError(s.Storage.AddResult(s.Ctx, r))
	}
	s.Require().NoError(s.Storage.AddResult(s.Ctx, &model.Result{ID: "r4", RoomCode: "ZZ99ZZ", PlayerName: "Other"}))

	results, err := s.Storage.ListResults(s.Ctx, "AB12CD")
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	for i, r := range results {
		s.Equal(submitted[i].ID, r.ID)
		s.Equal(submitted[i].Score, r.Score)
		s.Equal(submitted[i].TotalTimeSeconds, r.TotalTimeSeconds)
		s.Equal(submitted[i].BestStreak, r.BestStreak)
	}
}

func names(players []*model.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.DisplayName
	}
	return out
}
