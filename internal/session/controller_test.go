package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bingoroom/internal/dependencies/mocks"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
	notifymemory "github.com/mcoot/bingoroom/internal/notify/memory"
	"github.com/mcoot/bingoroom/internal/services/host"
	"github.com/mcoot/bingoroom/internal/services/registry"
	"github.com/mcoot/bingoroom/internal/services/results"
	"github.com/mcoot/bingoroom/internal/services/roster"
	"github.com/mcoot/bingoroom/internal/storage/memory"
	"github.com/mcoot/bingoroom/internal/testutil"
)

// flakyBackend injects failures in front of a real backend
type flakyBackend struct {
	Backend
	getRoomFailures atomic.Int32
	startErr        error
	startCalls      atomic.Int32
	joinErr         error
}

func (b *flakyBackend) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	if b.getRoomFailures.Add(-1) >= 0 {
		return nil, model.ErrTransient
	}
	return b.Backend.GetRoom(ctx, code)
}

func (b *flakyBackend) Start(ctx context.Context, code model.RoomCode, name string) error {
	b.startCalls.Add(1)
	if b.startErr != nil {
		return b.startErr
	}
	return b.Backend.Start(ctx, code, name)
}

func (b *flakyBackend) Join(ctx context.Context, code model.RoomCode, name string) (*model.Player, error) {
	if b.joinErr != nil {
		return nil, b.joinErr
	}
	return b.Backend.Join(ctx, code, name)
}

// schedulingMargin absorbs goroutine wakeups on top of a poll interval
const schedulingMargin = 25 * time.Millisecond

type ControllerSuite struct {
	suite.Suite
	storage  *memory.Storage
	registry *registry.Service
	backend  *LocalBackend
	cfg      Config
	ctx      context.Context
	cancel   context.CancelFunc
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.storage = memory.New()
	bus := notifymemory.New(logger)
	clock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	clock.SetStep(time.Millisecond)

	s.registry = registry.New(s.storage, bus, clock, mocks.NewMockRandom(), logger)
	s.backend = &LocalBackend{
		Registry: s.registry,
		Roster:   roster.New(s.storage, bus, clock, logger),
		Host:     host.New(s.registry, logger),
		Results:  results.New(s.storage, bus, clock, results.DefaultConfig(), logger),
		Bus:      bus,
	}
	s.cfg = Config{
		PollInterval:    50 * time.Millisecond,
		RetryDelay:      10 * time.Millisecond,
		StartAttempts:   3,
		StartRetryDelay: 5 * time.Millisecond,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	_, err := s.registry.CreateRoomWithCode(s.ctx, "AB12CD", "x7q9")
	s.Require().NoError(err)
}

func (s *ControllerSuite) TearDownTest() {
	s.cancel()
}

func (s *ControllerSuite) run(code model.RoomCode, backend Backend) (*Controller, <-chan error) {
	c := NewController(code, backend, s.cfg, testutil.NopLogger())
	errs := make(chan error, 1)
	go func() { errs <- c.Run(s.ctx) }()
	return c, errs
}

func (s *ControllerSuite) waitPhase(c *Controller, phase Phase) {
	s.Require().Eventually(func() bool { return c.State().Phase == phase },
		2*time.Second, 5*time.Millisecond, "expected phase %s, got %s", phase, c.State().Phase)
}

func (s *ControllerSuite) joined(name string, phase Phase) *Controller {
	c, _ := s.run("AB12CD", s.backend)
	s.waitPhase(c, PhaseNameEntry)
	c.SubmitName(name)
	s.waitPhase(c, phase)
	return c
}

// Loading

func (s *ControllerSuite) TestUnknownRoomIsNotFound() {
	c, errs := s.run("NOPE42", s.backend)

	select {
	case err := <-errs:
		s.ErrorIs(err, model.ErrRoomNotFound)
	case <-time.After(2 * time.Second):
		s.Fail("controller did not stop")
	}
	s.Equal(PhaseNotFound, c.State().Phase)
}

func (s *ControllerSuite) TestTransientLoadFailureRetries() {
	flaky := &flakyBackend{Backend: s.backend}
	flaky.getRoomFailures.Store(2)

	c, _ := s.run("AB12CD", flaky)
	s.waitPhase(c, PhaseNameEntry)
	s.Equal("x7q9", c.State().Room.Seed)
}

// Name entry

func (s *ControllerSuite) TestInvalidNameStays() {
	c, _ := s.run("AB12CD", s.backend)
	s.waitPhase(c, PhaseNameEntry)

	c.SubmitName("   ")
	s.Require().Eventually(func() bool { return c.State().Prompt != "" }, time.Second, 5*time.Millisecond)
	s.Equal(PhaseNameEntry, c.State().Phase)

	players, err := s.backend.ListPlayers(s.ctx, "AB12CD")
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *ControllerSuite) TestJoinFailureShowsRetryPrompt() {
	flaky := &flakyBackend{Backend: s.backend, joinErr: model.ErrTransient}
	c, _ := s.run("AB12CD", flaky)
	s.waitPhase(c, PhaseNameEntry)

	c.SubmitName("Max")
	s.Require().Eventually(func() bool { return c.State().Prompt == PromptJoinFailed }, time.Second, 5*time.Millisecond)
	s.Equal(PhaseNameEntry, c.State().Phase)
	s.False(c.State().Joining)
}

func (s *ControllerSuite) TestFirstJoinerBecomesHost() {
	c := s.joined("Max", PhaseLobby)

	state := c.State()
	s.True(state.IsHost)
	s.Equal("Max", state.HostName)
	s.Require().Eventually(func() bool { return len(c.State().Roster) == 1 }, time.Second, 5*time.Millisecond)
}

func (s *ControllerSuite) TestSecondJoinerWaits() {
	s.joined("Max", PhaseLobby)
	lewis := s.joined("Lewis", PhaseWaiting)

	s.False(lewis.State().IsHost)
	s.Equal("Max", lewis.State().HostName)
}

func (s *ControllerSuite) TestSameNameAsHostWaits() {
	first := s.joined("Max", PhaseLobby)
	second := s.joined("Max", PhaseWaiting)

	s.True(first.State().IsHost)
	s.False(second.State().IsHost)
	s.Equal("Max", second.State().HostName)

	first.RequestStart()
	s.waitPhase(second, PhasePlaying)
}

func (s *ControllerSuite) TestHostSeesRosterGrow() {
	maxC := s.joined("Max", PhaseLobby)
	s.joined("Lewis", PhaseWaiting)

	s.Require().Eventually(func() bool { return len(maxC.State().Roster) == 2 }, time.Second, 5*time.Millisecond)
	players := maxC.State().Roster
	s.Equal("Max", players[0].DisplayName)
	s.Equal("Lewis", players[1].DisplayName)
}

func (s *ControllerSuite) TestLateJoinerGoesStraightToPlaying() {
	maxC := s.joined("Max", PhaseLobby)
	maxC.RequestStart()
	s.waitPhase(maxC, PhasePlaying)
	s.Require().Eventually(func() bool {
		room, err := s.registry.GetRoom(s.ctx, "AB12CD")
		return err == nil && room.Started
	}, time.Second, 5*time.Millisecond)

	lando := s.joined("Lando", PhasePlaying)
	s.False(lando.State().IsHost)
}

// Start

func (s *ControllerSuite) TestWaitingSeesStartThroughPush() {
	s.cfg.PollInterval = time.Hour
	s.joined("Max", PhaseLobby)
	lewis := s.joined("Lewis", PhaseWaiting)

	s.Require().NoError(s.backend.Start(s.ctx, "AB12CD", "Max"))

	s.waitPhase(lewis, PhasePlaying)
}

func (s *ControllerSuite) TestWaitingSeesStartThroughPollWhenPushDropped() {
	s.backend.Bus = notify.Discard
	s.joined("Max", PhaseLobby)
	lewis := s.joined("Lewis", PhaseWaiting)

	s.Require().NoError(s.backend.Start(s.ctx, "AB12CD", "Max"))

	s.Require().Eventually(func() bool { return lewis.State().Phase == PhasePlaying },
		s.cfg.PollInterval+schedulingMargin, time.Millisecond)
}

func (s *ControllerSuite) TestStartFailureDoesNotBlockHost() {
	flaky := &flakyBackend{Backend: s.backend, startErr: model.ErrTransient}
	c, _ := s.run("AB12CD", flaky)
	s.waitPhase(c, PhaseNameEntry)
	c.SubmitName("Max")
	s.waitPhase(c, PhaseLobby)

	c.RequestStart()
	s.waitPhase(c, PhasePlaying)
	s.Require().Eventually(func() bool { return c.State().Warning == WarningStartFailed }, time.Second, 5*time.Millisecond)
	s.Equal(int32(s.cfg.StartAttempts), flaky.startCalls.Load())
	s.Equal(PhasePlaying, c.State().Phase)
}

func (s *ControllerSuite) TestStartNotRetriedWhenNotHost() {
	flaky := &flakyBackend{Backend: s.backend, startErr: model.ErrNotHost}
	c, _ := s.run("AB12CD", flaky)
	s.waitPhase(c, PhaseNameEntry)
	c.SubmitName("Max")
	s.waitPhase(c, PhaseLobby)

	c.RequestStart()
	s.Require().Eventually(func() bool { return c.State().Warning != "" }, time.Second, 5*time.Millisecond)
	s.Equal(int32(1), flaky.startCalls.Load())
}

// Stale events

func (s *ControllerSuite) TestStaleScopedEventsAreDropped() {
	c := NewController("AB12CD", s.backend, s.cfg, testutil.NopLogger())
	c.rootCtx = s.ctx
	c.phaseCtx, c.endPhase = context.WithCancel(s.ctx)
	c.state = State{Phase: PhaseWaiting, Code: "AB12CD", Epoch: 3}

	c.apply(envelope{event: StartObserved{}, epoch: 2, scoped: true})
	s.Equal(PhaseWaiting, c.State().Phase)

	c.apply(envelope{event: StartObserved{}, epoch: 3, scoped: true})
	s.Equal(PhasePlaying, c.State().Phase)
	s.Equal(4, c.State().Epoch)
	c.endPhase()
}

// Results

func (s *ControllerSuite) TestSubmitFailureAllowsRetry() {
	c := s.joined("Max", PhaseLobby)
	c.RequestStart()
	s.waitPhase(c, PhasePlaying)

	c.Complete(model.DefaultMaxScore+1, 10, 1)
	s.Require().Eventually(func() bool { return c.State().Prompt != "" }, time.Second, 5*time.Millisecond)
	s.Equal(PhasePlaying, c.State().Phase)

	c.Complete(10, 10, 1)
	s.waitPhase(c, PhaseDone)
}

func (s *ControllerSuite) TestEndToEndWithPushDropped() {
	s.backend.Bus = notify.Discard

	maxC := s.joined("Max", PhaseLobby)
	lewis := s.joined("Lewis", PhaseWaiting)
	s.Equal("Max", lewis.State().HostName)

	start := time.Now()
	maxC.RequestStart()
	s.Require().Eventually(func() bool { return lewis.State().Phase == PhasePlaying },
		s.cfg.PollInterval+schedulingMargin, time.Millisecond)
	s.Less(time.Since(start), s.cfg.PollInterval+schedulingMargin)
	s.waitPhase(maxC, PhasePlaying)

	maxC.Complete(12, 95, 4)
	lewis.Complete(14, 80, 6)
	s.waitPhase(maxC, PhaseDone)
	s.waitPhase(lewis, PhaseDone)

	for _, c := range []*Controller{maxC, lewis} {
		s.Require().Eventually(func() bool {
			board := c.State().Leaderboard
			return board != nil && len(board.Results) == 2
		}, time.Second, 5*time.Millisecond)

		board := c.State().Leaderboard
		s.Equal("Lewis", board.Results[0].PlayerName)
		s.Equal("Max", board.Results[1].PlayerName)
		s.Equal("Lewis", board.Winner.PlayerName)
	}
}

func (s *ControllerSuite) TestRunStopsCleanlyOnCancel() {
	c, errs := s.run("AB12CD", s.backend)
	s.waitPhase(c, PhaseNameEntry)
	c.SubmitName("Max")
	s.waitPhase(c, PhaseLobby)

	s.cancel()
	select {
	case err := <-errs:
		s.True(errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		s.Fail("controller did not stop")
	}

	// Updates is closed once Run returns
	s.Eventually(func() bool {
		for {
			select {
			case _, ok := <-c.Updates():
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)

	// Sends after stop do not block
	c.RequestStart()
}
