package results

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bingoroom/internal/dependencies/mocks"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify/notifytest"
	"github.com/mcoot/bingoroom/internal/storage/memory"
	"github.com/mcoot/bingoroom/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage   *memory.Storage
	publisher *notifytest.Recorder
	clock     *mocks.MockClock
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.publisher = &notifytest.Recorder{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ctx = context.Background()

	s.Require().NoError(s.storage.CreateRoom(s.ctx, &model.Room{Code: "AB12CD", Seed: "seed"}))
}

func (s *ServiceSuite) service(policy Policy) *Service {
	cfg := DefaultConfig()
	cfg.Policy = policy
	return New(s.storage, s.publisher, s.clock, cfg, testutil.NopLogger())
}

func (s *ServiceSuite) submit(svc *Service, name string, score, seconds int) *model.Result {
	r, err := svc.Submit(s.ctx, &model.Result{
		RoomCode:         "AB12CD",
		PlayerName:       name,
		Score:            score,
		TotalTimeSeconds: seconds,
	})
	s.Require().NoError(err)
	return r
}

func (s *ServiceSuite) TestSubmitAssignsIDAndPublishes() {
	r := s.submit(s.service(PolicyAll), "Max", 12, 95)

	s.NotEmpty(r.ID)
	s.False(r.CreatedAt.IsZero())
	s.Equal([]model.Subject{model.SubjectResults}, s.publisher.Subjects())
}

func (s *ServiceSuite) TestSubmitValidatesRanges() {
	svc := s.service(PolicyAll)
	invalid := []model.Result{
		{RoomCode: "AB12CD", PlayerName: "Max", Score: -1},
		{RoomCode: "AB12CD", PlayerName: "Max", Score: model.DefaultMaxScore + 1},
		{RoomCode: "AB12CD", PlayerName: "Max", TotalTimeSeconds: -5},
		{RoomCode: "AB12CD", PlayerName: "Max", BestStreak: -1},
	}
	for _, r := range invalid {
		_, err := svc.Submit(s.ctx, &r)
		s.ErrorIs(err, model.ErrInvalidResult)
	}
	s.Empty(s.publisher.Events())
}

func (s *ServiceSuite) TestSubmitValidatesPlayerName() {
	svc := s.service(PolicyAll)
	for _, name := range []string{"", "   ", strings.Repeat("x", model.MaxDisplayNameLength+1)} {
		_, err := svc.Submit(s.ctx, &model.Result{RoomCode: "AB12CD", PlayerName: name, Score: 3})
		s.ErrorIs(err, model.ErrInvalidName)
	}
	s.Empty(s.publisher.Events())

	r := s.submit(svc, "  Max ", 3, 30)
	s.Equal("Max", r.PlayerName)

	board, err := svc.Leaderboard(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Require().Len(board.Results, 1)
	s.Equal("Max", board.Results[0].PlayerName)
}

func (s *ServiceSuite) TestSubmitUnknownRoom() {
	_, err := s.service(PolicyAll).Submit(s.ctx, &model.Result{RoomCode: "NOPE42", PlayerName: "Max"})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ServiceSuite) TestLeaderboardRanksAndNamesWinner() {
	svc := s.service(PolicyAll)
	s.submit(svc, "Max", 12, 95)
	s.submit(svc, "Lewis", 14, 80)

	board, err := svc.Leaderboard(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Require().Len(board.Results, 2)
	s.Equal("Lewis", board.Results[0].PlayerName)
	s.Equal("Max", board.Results[1].PlayerName)
	s.Require().NotNil(board.Winner)
	s.Equal("Lewis", board.Winner.PlayerName)
}

func (s *ServiceSuite) TestLeaderboardEmptyHasNoWinner() {
	board, err := s.service(PolicyAll).Leaderboard(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Empty(board.Results)
	s.Nil(board.Winner)
}

func (s *ServiceSuite) TestDuplicateSubmissionsListedUnderPolicyAll() {
	svc := s.service(PolicyAll)
	s.submit(svc, "Max", 10, 100)
	s.submit(svc, "Max", 13, 90)

	board, err := svc.Leaderboard(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Len(board.Results, 2)
}

func (s *ServiceSuite) TestPolicyBestKeepsBestAttemptPerPlayer() {
	svc := s.service(PolicyBest)
	s.submit(svc, "Max", 10, 100)
	s.submit(svc, "Lewis", 12, 80)
	best := s.submit(svc, "Max", 13, 90)

	board, err := svc.Leaderboard(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Require().Len(board.Results, 2)
	s.Equal(best.ID, board.Results[0].ID)
	s.Equal("Lewis", board.Results[1].PlayerName)

	// Storage still keeps every attempt
	all, err := s.storage.ListResults(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Len(all, 3)
}

func TestRank(t *testing.T) {
	in := []*model.Result{
		{ID: "a", Score: 10, TotalTimeSeconds: 50},
		{ID: "b", Score: 12, TotalTimeSeconds: 90},
		{ID: "c", Score: 12, TotalTimeSeconds: 60},
		{ID: "d", Score: 10, TotalTimeSeconds: 50},
	}

	ranked := Rank(in)
	ids := make([]model.ResultID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	assert.Equal(t, []model.ResultID{"c", "b", "a", "d"}, ids)
	// input untouched
	assert.Equal(t, model.ResultID("a"), in[0].ID)
}

func TestWinner(t *testing.T) {
	assert.Nil(t, Winner(nil))
	r := &model.Result{ID: "x"}
	assert.Same(t, r, Winner([]*model.Result{r}))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("best")
	assert.NoError(t, err)
	assert.Equal(t, PolicyBest, p)

	_, err = ParsePolicy("worst")
	assert.Error(t, err)
}
