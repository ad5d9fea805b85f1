package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
	"github.com/mcoot/bingoroom/internal/services/results"
)

// Config holds session timing settings
type Config struct {
	// PollInterval is how often watchers re-read when push signals are lost
	PollInterval time.Duration
	// RetryDelay is the wait before re-reading a room that failed to load
	RetryDelay time.Duration
	// StartAttempts bounds the background retries of the start write
	StartAttempts int
	// StartRetryDelay is the wait between start attempts
	StartRetryDelay time.Duration
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:    2 * time.Second,
		RetryDelay:      2 * time.Second,
		StartAttempts:   3,
		StartRetryDelay: time.Second,
	}
}

type envelope struct {
	event  Event
	epoch  int
	scoped bool
}

// Controller runs one client's session. All state changes happen on the
// goroutine running Run; effects run on their own goroutines and report
// back through the inbox.
type Controller struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger

	inbox   chan envelope
	updates chan State
	stopped chan struct{}

	mu    sync.RWMutex
	state State

	effects   sync.WaitGroup
	rootCtx   context.Context
	phaseCtx  context.Context
	endPhase  context.CancelFunc
	pending   []Effect
	rosterRd  notify.Coalescer[[]*model.Player]
	resultsRd notify.Coalescer[*results.Leaderboard]
}

// NewController creates a controller for the room with the given code
func NewController(code model.RoomCode, backend Backend, cfg Config, logger *slog.Logger) *Controller {
	state, effects := Init(code)
	return &Controller{
		backend: backend,
		cfg:     cfg,
		logger: logger.With(
			slog.String("component", "session"),
			slog.String("room", string(code))),
		inbox:   make(chan envelope, 64),
		updates: make(chan State, 1),
		stopped: make(chan struct{}),
		state:   state,
		pending: effects,
	}
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Updates delivers the latest state after every change. Intermediate states
// may be skipped by slow readers. Closed when Run returns.
func (c *Controller) Updates() <-chan State {
	return c.updates
}

// Send delivers a user event. It is dropped if the controller has stopped.
func (c *Controller) Send(ev Event) {
	select {
	case c.inbox <- envelope{event: ev}:
	case <-c.stopped:
	}
}

// SubmitName enters the display name
func (c *Controller) SubmitName(name string) { c.Send(NameSubmitted{Name: name}) }

// RequestStart starts the game as host
func (c *Controller) RequestStart() { c.Send(StartRequested{}) }

// Complete reports the local task's result
func (c *Controller) Complete(score, totalTimeSeconds, bestStreak int) {
	c.Send(Completed{Score: score, TotalTimeSeconds: totalTimeSeconds, BestStreak: bestStreak})
}

// Run processes events until ctx is cancelled or the room is not found.
// Every effect goroutine has returned by the time Run does.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.rootCtx = ctx
	c.phaseCtx, c.endPhase = context.WithCancel(ctx)
	defer func() {
		c.endPhase()
		cancel()
		close(c.stopped)
		c.effects.Wait()
		close(c.updates)
	}()

	c.publish(c.State())
	c.interpret(c.pending, c.State().Epoch)
	c.pending = nil

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-c.inbox:
			if c.apply(env) == PhaseNotFound {
				return model.ErrRoomNotFound
			}
		}
	}
}

func (c *Controller) apply(env envelope) Phase {
	prev := c.State()
	if env.scoped && env.epoch != prev.Epoch {
		// Produced by a phase that has since ended
		return prev.Phase
	}

	next, effects := Transition(prev, env.event)
	if next.Phase != prev.Phase {
		next.Epoch = prev.Epoch + 1
		c.endPhase()
		c.phaseCtx, c.endPhase = context.WithCancel(c.rootCtx)
		c.logger.Info("phase changed",
			slog.String("from", string(prev.Phase)),
			slog.String("to", string(next.Phase)))
	}

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()

	c.publish(next)
	c.interpret(effects, next.Epoch)
	return next.Phase
}

// publish replaces any unread update with the latest state
func (c *Controller) publish(s State) {
	for {
		select {
		case c.updates <- s:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

func (c *Controller) interpret(effects []Effect, epoch int) {
	for _, eff := range effects {
		ctx := c.rootCtx
		if eff.PhaseScoped() {
			ctx = c.phaseCtx
		}
		scoped := eff.PhaseScoped()
		post := func(ev Event) {
			select {
			case c.inbox <- envelope{event: ev, epoch: epoch, scoped: scoped}:
			case <-ctx.Done():
			}
		}

		c.effects.Add(1)
		go func() {
			defer c.effects.Done()
			c.run(ctx, eff, post)
		}()
	}
}

func (c *Controller) run(ctx context.Context, eff Effect, post func(Event)) {
	code := c.State().Code

	switch e := eff.(type) {
	case LoadRoom:
		if e.Delayed && !sleep(ctx, c.cfg.RetryDelay) {
			return
		}
		room, err := c.backend.GetRoom(ctx, code)
		switch {
		case errors.Is(err, model.ErrRoomNotFound):
			post(RoomNotFound{})
		case err != nil:
			c.logger.Warn("failed to load room", slog.String("error", err.Error()))
			post(LoadFailed{Err: err})
		default:
			post(RoomLoaded{Room: room})
		}

	case JoinAndClaim:
		player, err := c.backend.Join(ctx, code, e.Name)
		if err != nil {
			c.logger.Warn("failed to join", slog.String("error", err.Error()))
			post(JoinFailed{Err: err})
			return
		}
		claim, err := c.backend.ClaimHost(ctx, code, player.DisplayName)
		if err != nil {
			c.logger.Warn("failed to claim host", slog.String("error", err.Error()))
			post(JoinFailed{Err: err})
			return
		}
		post(Joined{Player: player, Claim: claim})

	case StartRoom:
		c.startRoom(ctx, code, e.Name, post)

	case AwaitStart:
		check := func(ctx context.Context) (*model.Room, bool, error) {
			room, err := c.backend.GetRoom(ctx, code)
			if err != nil {
				return nil, false, err
			}
			return room, room.Started, nil
		}
		room, err := notify.First(ctx,
			notify.PushWatcher(c.backend, code, check, model.SubjectRoom),
			notify.PollWatcher(c.cfg.PollInterval, check),
		)
		if err == nil {
			post(StartObserved{Room: room})
		}

	case WatchRoster:
		c.watch(ctx, code, model.SubjectRoster, func(ctx context.Context) {
			players, err := c.rosterRd.Do(ctx, string(code), func(ctx context.Context) ([]*model.Player, error) {
				return c.backend.ListPlayers(ctx, code)
			})
			if err == nil {
				post(RosterUpdated{Players: players})
			}
		})

	case WatchResults:
		c.watch(ctx, code, model.SubjectResults, func(ctx context.Context) {
			board, err := c.resultsRd.Do(ctx, string(code), func(ctx context.Context) (*results.Leaderboard, error) {
				return c.backend.Leaderboard(ctx, code)
			})
			if err == nil {
				post(LeaderboardUpdated{Board: board})
			}
		})

	case SubmitResult:
		result := e.Result
		stored, err := c.backend.SubmitResult(ctx, &result)
		if err != nil {
			c.logger.Warn("failed to submit result", slog.String("error", err.Error()))
			post(SubmitFailed{Err: err})
			return
		}
		post(ResultSubmitted{Result: stored})
	}
}

// startRoom retries transient start failures a bounded number of times.
// The local transition has already happened; failure only raises a warning.
func (c *Controller) startRoom(ctx context.Context, code model.RoomCode, name string, post func(Event)) {
	var err error
	for attempt := 1; attempt <= c.cfg.StartAttempts; attempt++ {
		err = c.backend.Start(ctx, code, name)
		if err == nil {
			post(StartConfirmed{})
			return
		}
		c.logger.Warn("failed to start room",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if errors.Is(err, model.ErrNotHost) || errors.Is(err, model.ErrRoomNotFound) {
			break
		}
		if attempt < c.cfg.StartAttempts && !sleep(ctx, c.cfg.StartRetryDelay) {
			return
		}
	}
	post(StartFailed{Err: err})
}

// watch refreshes on every push signal and on every poll tick until ctx
// ends. A failed subscription leaves polling in charge.
func (c *Controller) watch(ctx context.Context, code model.RoomCode, subject model.Subject, refresh func(context.Context)) {
	refresh(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sub, err := c.backend.Subscribe(ctx, code, subject)
		if err != nil {
			c.logger.Warn("subscribe failed, polling only",
				slog.String("subject", string(subject)),
				slog.String("error", err.Error()))
			return
		}
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C:
				if !ok {
					return
				}
				refresh(ctx)
			}
		}
	}()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
