package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/services/results"
)

func stateIn(phase Phase) State {
	return State{Phase: phase, Code: "AB12CD", Name: "Max"}
}

func TestInitLoadsRoom(t *testing.T) {
	s, effects := Init("AB12CD")
	assert.Equal(t, PhaseLoading, s.Phase)
	assert.Equal(t, []Effect{LoadRoom{}}, effects)
}

func TestLoadingTransitions(t *testing.T) {
	room := &model.Room{Code: "AB12CD"}

	next, effects := Transition(stateIn(PhaseLoading), RoomLoaded{Room: room})
	assert.Equal(t, PhaseNameEntry, next.Phase)
	assert.Same(t, room, next.Room)
	assert.Empty(t, effects)

	next, _ = Transition(stateIn(PhaseLoading), RoomNotFound{})
	assert.Equal(t, PhaseNotFound, next.Phase)
	assert.True(t, next.Phase.Terminal())

	next, effects = Transition(stateIn(PhaseLoading), LoadFailed{Err: model.ErrTransient})
	assert.Equal(t, PhaseLoading, next.Phase)
	assert.Equal(t, []Effect{LoadRoom{Delayed: true}}, effects)
}

func TestNameEntryValidation(t *testing.T) {
	for _, name := range []string{"", "   ", strings.Repeat("x", model.MaxDisplayNameLength+1)} {
		next, effects := Transition(stateIn(PhaseNameEntry), NameSubmitted{Name: name})
		assert.Equal(t, PhaseNameEntry, next.Phase)
		assert.NotEmpty(t, next.Prompt)
		assert.Empty(t, effects)
	}
}

func TestNameEntryIssuesJoin(t *testing.T) {
	next, effects := Transition(stateIn(PhaseNameEntry), NameSubmitted{Name: "  Lewis "})
	assert.Equal(t, PhaseNameEntry, next.Phase)
	assert.Equal(t, "Lewis", next.Name)
	assert.True(t, next.Joining)
	assert.Equal(t, []Effect{JoinAndClaim{Name: "Lewis"}}, effects)

	// A second submit while joining is ignored
	again, effects := Transition(next, NameSubmitted{Name: "Other"})
	assert.Equal(t, "Lewis", again.Name)
	assert.Empty(t, effects)
}

func TestNameEntryRequiredMessage(t *testing.T) {
	next, _ := Transition(stateIn(PhaseNameEntry), NameSubmitted{Name: ""})
	assert.Equal(t, "name is required", next.Prompt)
}

func TestJoinedRoutesByClaim(t *testing.T) {
	player := &model.Player{ID: "p1", DisplayName: "Max"}
	joining := stateIn(PhaseNameEntry)
	joining.Joining = true

	tests := []struct {
		name    string
		claim   model.HostClaim
		phase   Phase
		effects []Effect
	}{
		{"host", model.HostClaim{IsHost: true, HostName: "Max"}, PhaseLobby, []Effect{WatchRoster{}}},
		{"guest", model.HostClaim{HostName: "Lewis"}, PhaseWaiting, []Effect{WatchRoster{}, AwaitStart{}}},
		{"late joiner", model.HostClaim{Started: true, HostName: "Lewis"}, PhasePlaying, []Effect{WatchResults{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claim := tt.claim
			next, effects := Transition(joining, Joined{Player: player, Claim: &claim})
			assert.Equal(t, tt.phase, next.Phase)
			assert.Equal(t, tt.effects, effects)
			assert.Equal(t, claim.IsHost, next.IsHost)
			assert.Equal(t, claim.HostName, next.HostName)
			assert.Equal(t, model.PlayerID("p1"), next.PlayerID)
			assert.False(t, next.Joining)
		})
	}
}

func TestJoinFailedShowsGenericRetry(t *testing.T) {
	joining := stateIn(PhaseNameEntry)
	joining.Joining = true

	next, effects := Transition(joining, JoinFailed{Err: model.ErrTransient})
	assert.Equal(t, PhaseNameEntry, next.Phase)
	assert.Equal(t, PromptJoinFailed, next.Prompt)
	assert.False(t, next.Joining)
	assert.Empty(t, effects)
}

func TestLobbyStartTransitionsImmediately(t *testing.T) {
	next, effects := Transition(stateIn(PhaseLobby), StartRequested{})
	assert.Equal(t, PhasePlaying, next.Phase)
	assert.Equal(t, []Effect{StartRoom{Name: "Max"}, WatchResults{}}, effects)
}

func TestWaitingStartObserved(t *testing.T) {
	room := &model.Room{Code: "AB12CD", Started: true}
	next, effects := Transition(stateIn(PhaseWaiting), StartObserved{Room: room})
	assert.Equal(t, PhasePlaying, next.Phase)
	assert.True(t, next.Room.Started)
	assert.Equal(t, []Effect{WatchResults{}}, effects)
}

func TestRosterUpdatesOnlyBeforePlaying(t *testing.T) {
	players := []*model.Player{{DisplayName: "Max"}}

	for _, phase := range []Phase{PhaseLobby, PhaseWaiting} {
		next, _ := Transition(stateIn(phase), RosterUpdated{Players: players})
		assert.Len(t, next.Roster, 1, phase)
	}
	for _, phase := range []Phase{PhasePlaying, PhaseDone, PhaseNameEntry} {
		next, _ := Transition(stateIn(phase), RosterUpdated{Players: players})
		assert.Empty(t, next.Roster, phase)
	}
}

func TestPlayingSubmitsOnce(t *testing.T) {
	next, effects := Transition(stateIn(PhasePlaying), Completed{Score: 12, TotalTimeSeconds: 95, BestStreak: 4})
	require.Len(t, effects, 1)
	submit := effects[0].(SubmitResult)
	assert.Equal(t, model.Result{RoomCode: "AB12CD", PlayerName: "Max", Score: 12, TotalTimeSeconds: 95, BestStreak: 4}, submit.Result)
	assert.True(t, next.Submitting)

	_, effects = Transition(next, Completed{Score: 1})
	assert.Empty(t, effects)
}

func TestPlayingSubmitOutcomes(t *testing.T) {
	submitting := stateIn(PhasePlaying)
	submitting.Submitting = true

	next, effects := Transition(submitting, ResultSubmitted{Result: &model.Result{}})
	assert.Equal(t, PhaseDone, next.Phase)
	assert.True(t, next.Phase.Terminal())
	assert.Equal(t, []Effect{WatchResults{}}, effects)

	next, effects = Transition(submitting, SubmitFailed{Err: errors.New("boom")})
	assert.Equal(t, PhasePlaying, next.Phase)
	assert.Equal(t, PromptSubmitFailed, next.Prompt)
	assert.False(t, next.Submitting)
	assert.Empty(t, effects)
}

func TestStartFailureIsWarningOnly(t *testing.T) {
	next, effects := Transition(stateIn(PhasePlaying), StartFailed{Err: model.ErrTransient})
	assert.Equal(t, PhasePlaying, next.Phase)
	assert.Equal(t, WarningStartFailed, next.Warning)
	assert.Empty(t, effects)
}

func TestStartPendingUntilSettled(t *testing.T) {
	host := stateIn(PhaseLobby)
	host.IsHost = true
	next, _ := Transition(host, StartRequested{})
	assert.True(t, next.StartPending)

	confirmed, _ := Transition(next, StartConfirmed{})
	assert.False(t, confirmed.StartPending)
	assert.Empty(t, confirmed.Warning)

	failed, _ := Transition(next, StartFailed{Err: model.ErrTransient})
	assert.False(t, failed.StartPending)

	// The start can settle after the result is in
	next.Phase = PhaseDone
	confirmed, _ = Transition(next, StartConfirmed{})
	assert.False(t, confirmed.StartPending)
}

func TestLeaderboardUpdates(t *testing.T) {
	board := &results.Leaderboard{}
	for _, phase := range []Phase{PhasePlaying, PhaseDone} {
		next, _ := Transition(stateIn(phase), LeaderboardUpdated{Board: board})
		assert.Same(t, board, next.Leaderboard)
	}
}

func TestUnacceptedEventsAreIgnored(t *testing.T) {
	cases := []struct {
		phase Phase
		event Event
	}{
		{PhaseLoading, NameSubmitted{Name: "Max"}},
		{PhaseNameEntry, StartRequested{}},
		{PhaseLobby, StartObserved{}},
		{PhaseWaiting, StartRequested{}},
		{PhasePlaying, StartObserved{}},
		{PhasePlaying, RoomLoaded{}},
		{PhaseDone, Completed{}},
		{PhaseNotFound, RoomLoaded{Room: &model.Room{}}},
	}
	for _, tc := range cases {
		before := stateIn(tc.phase)
		next, effects := Transition(before, tc.event)
		assert.Equal(t, before, next, "%s %T", tc.phase, tc.event)
		assert.Empty(t, effects)
	}
}

func TestPhaseScopedEffects(t *testing.T) {
	assert.True(t, AwaitStart{}.PhaseScoped())
	assert.True(t, WatchRoster{}.PhaseScoped())
	assert.True(t, WatchResults{}.PhaseScoped())
	assert.False(t, StartRoom{}.PhaseScoped())
	assert.False(t, SubmitResult{}.PhaseScoped())
}
