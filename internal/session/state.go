// Package session drives one client through a room's lifecycle.
//
// Transition is a pure function from (state, event) to the next state and
// the effects to perform. Controller interprets those effects against a
// Backend and feeds their outcomes back in as events.
package session

import (
	"errors"
	"strings"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/services/results"
)

// Phase is where a client is in the room lifecycle
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseNotFound  Phase = "not_found"
	PhaseNameEntry Phase = "name_entry"
	PhaseLobby     Phase = "lobby"
	PhaseWaiting   Phase = "waiting"
	PhasePlaying   Phase = "playing"
	PhaseDone      Phase = "done"
)

// Terminal reports whether no further transitions leave this phase
func (p Phase) Terminal() bool {
	return p == PhaseNotFound || p == PhaseDone
}

// User-facing prompts
const (
	PromptJoinFailed   = "Could not join the room. Please try again."
	PromptSubmitFailed = "Could not submit your result. Please try again."
	WarningStartFailed = "The game could not be started for other players. They may not see it begin."
)

// State is everything a client knows about its session
type State struct {
	Phase Phase
	Code  model.RoomCode
	Room  *model.Room

	Name     string
	PlayerID model.PlayerID
	IsHost   bool
	HostName string

	Roster      []*model.Player
	Leaderboard *results.Leaderboard

	// Prompt is shown on the current input (validation or retry message)
	Prompt string
	// Warning is a non-fatal problem outside the current input
	Warning string

	Joining    bool
	Submitting bool

	// StartPending is set while the host's start write is in flight
	StartPending bool

	// Epoch increments on every phase change
	Epoch int
}

// Event is an input to Transition
type Event interface{ isEvent() }

type (
	// RoomLoaded reports that the room exists
	RoomLoaded struct{ Room *model.Room }
	// RoomNotFound reports that no room has the code
	RoomNotFound struct{}
	// LoadFailed reports that the room could not be read
	LoadFailed struct{ Err error }

	// NameSubmitted is the user entering a display name
	NameSubmitted struct{ Name string }
	// Joined reports a successful join and host claim
	Joined struct {
		Player *model.Player
		Claim  *model.HostClaim
	}
	// JoinFailed reports that the join or the following claim failed
	JoinFailed struct{ Err error }

	// StartRequested is the host starting the game
	StartRequested struct{}
	// StartFailed reports that the start write could not be made
	StartFailed struct{ Err error }
	// StartConfirmed reports that the start write was stored
	StartConfirmed struct{}
	// StartObserved reports that the room was seen as started
	StartObserved struct{ Room *model.Room }

	// Completed is the local task finishing
	Completed struct {
		Score            int
		TotalTimeSeconds int
		BestStreak       int
	}
	// ResultSubmitted reports that the result was stored
	ResultSubmitted struct{ Result *model.Result }
	// SubmitFailed reports that the result could not be stored
	SubmitFailed struct{ Err error }

	// RosterUpdated carries a fresh read of the roster
	RosterUpdated struct{ Players []*model.Player }
	// LeaderboardUpdated carries a fresh read of the leaderboard
	LeaderboardUpdated struct{ Board *results.Leaderboard }
)

func (RoomLoaded) isEvent()         {}
func (RoomNotFound) isEvent()       {}
func (LoadFailed) isEvent()         {}
func (NameSubmitted) isEvent()      {}
func (Joined) isEvent()             {}
func (JoinFailed) isEvent()         {}
func (StartRequested) isEvent()     {}
func (StartFailed) isEvent()        {}
func (StartConfirmed) isEvent()     {}
func (StartObserved) isEvent()      {}
func (Completed) isEvent()          {}
func (ResultSubmitted) isEvent()    {}
func (SubmitFailed) isEvent()       {}
func (RosterUpdated) isEvent()      {}
func (LeaderboardUpdated) isEvent() {}

// Effect is work Transition asks the interpreter to perform
type Effect interface {
	// PhaseScoped effects are cancelled when the phase they were issued in ends
	PhaseScoped() bool
}

type (
	// LoadRoom reads the room, after Delayed waits if set
	LoadRoom struct{ Delayed bool }
	// JoinAndClaim joins the roster and then claims host
	JoinAndClaim struct{ Name string }
	// StartRoom writes the started flag, retrying transient failures
	StartRoom struct{ Name string }
	// AwaitStart races push and polling until the room is seen started
	AwaitStart struct{}
	// WatchRoster keeps the roster fresh
	WatchRoster struct{}
	// WatchResults keeps the leaderboard fresh
	WatchResults struct{}
	// SubmitResult stores the local result
	SubmitResult struct{ Result model.Result }
)

func (LoadRoom) PhaseScoped() bool     { return false }
func (JoinAndClaim) PhaseScoped() bool { return false }
func (StartRoom) PhaseScoped() bool    { return false }
func (AwaitStart) PhaseScoped() bool   { return true }
func (WatchRoster) PhaseScoped() bool  { return true }
func (WatchResults) PhaseScoped() bool { return true }
func (SubmitResult) PhaseScoped() bool { return false }

// Init returns the starting state for a room code and its first effects
func Init(code model.RoomCode) (State, []Effect) {
	return State{Phase: PhaseLoading, Code: code}, []Effect{LoadRoom{}}
}

// Transition computes the next state and the effects to run. Events the
// current phase does not accept leave the state unchanged.
func Transition(s State, ev Event) (State, []Effect) {
	switch s.Phase {
	case PhaseLoading:
		return loading(s, ev)
	case PhaseNameEntry:
		return nameEntry(s, ev)
	case PhaseLobby:
		return lobby(s, ev)
	case PhaseWaiting:
		return waiting(s, ev)
	case PhasePlaying:
		return playing(s, ev)
	case PhaseDone:
		return done(s, ev)
	default:
		return s, nil
	}
}

func loading(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case RoomLoaded:
		s.Room = e.Room
		s.Phase = PhaseNameEntry
		return s, nil
	case RoomNotFound:
		s.Phase = PhaseNotFound
		return s, nil
	case LoadFailed:
		return s, []Effect{LoadRoom{Delayed: true}}
	}
	return s, nil
}

func nameEntry(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case NameSubmitted:
		if s.Joining {
			return s, nil
		}
		name, err := model.ValidateDisplayName(e.Name)
		if err != nil {
			s.Prompt = validationMessage(err)
			return s, nil
		}
		s.Name = name
		s.Prompt = ""
		s.Joining = true
		return s, []Effect{JoinAndClaim{Name: name}}

	case JoinFailed:
		s.Joining = false
		if errors.Is(e.Err, model.ErrInvalidName) {
			s.Prompt = validationMessage(e.Err)
		} else {
			s.Prompt = PromptJoinFailed
		}
		return s, nil

	case Joined:
		s.Joining = false
		s.PlayerID = e.Player.ID
		s.HostName = e.Claim.HostName
		s.IsHost = e.Claim.IsHost
		switch {
		case e.Claim.Started:
			s.Phase = PhasePlaying
			return s, []Effect{WatchResults{}}
		case e.Claim.IsHost:
			s.Phase = PhaseLobby
			return s, []Effect{WatchRoster{}}
		default:
			s.Phase = PhaseWaiting
			return s, []Effect{WatchRoster{}, AwaitStart{}}
		}
	}
	return s, nil
}

func lobby(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case StartRequested:
		s.Phase = PhasePlaying
		s.StartPending = true
		return s, []Effect{StartRoom{Name: s.Name}, WatchResults{}}
	case RosterUpdated:
		s.Roster = e.Players
	}
	return s, nil
}

func waiting(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case StartObserved:
		if e.Room != nil {
			s.Room = e.Room
		}
		s.Phase = PhasePlaying
		return s, []Effect{WatchResults{}}
	case RosterUpdated:
		s.Roster = e.Players
	}
	return s, nil
}

func playing(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Completed:
		if s.Submitting {
			return s, nil
		}
		s.Submitting = true
		s.Prompt = ""
		return s, []Effect{SubmitResult{Result: model.Result{
			RoomCode:         s.Code,
			PlayerName:       s.Name,
			Score:            e.Score,
			TotalTimeSeconds: e.TotalTimeSeconds,
			BestStreak:       e.BestStreak,
		}}}
	case ResultSubmitted:
		s.Submitting = false
		s.Phase = PhaseDone
		return s, []Effect{WatchResults{}}
	case SubmitFailed:
		s.Submitting = false
		if errors.Is(e.Err, model.ErrInvalidResult) {
			s.Prompt = validationMessage(e.Err)
		} else {
			s.Prompt = PromptSubmitFailed
		}
	case StartFailed:
		s.StartPending = false
		s.Warning = WarningStartFailed
	case StartConfirmed:
		s.StartPending = false
	case LeaderboardUpdated:
		s.Leaderboard = e.Board
	}
	return s, nil
}

func done(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case LeaderboardUpdated:
		s.Leaderboard = e.Board
	case StartFailed:
		s.StartPending = false
		s.Warning = WarningStartFailed
	case StartConfirmed:
		s.StartPending = false
	}
	return s, nil
}

// validationMessage strips the sentinel prefix from a wrapped validation error
func validationMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{model.ErrInvalidName, model.ErrInvalidResult} {
		if errors.Is(err, sentinel) {
			if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
				return rest
			}
		}
	}
	return msg
}
