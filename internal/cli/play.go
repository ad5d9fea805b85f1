package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/session"
)

// maxSubmitAttempts bounds resubmission after transient submit failures
const maxSubmitAttempts = 3

// playOptions are the answers a scripted player gives
type playOptions struct {
	Name       string
	AutoStart  bool
	Score      int
	TotalTime  int
	BestStreak int
}

// sessionInputs is what a player can do to a running session
type sessionInputs interface {
	SubmitName(name string)
	RequestStart()
	Complete(score, totalTimeSeconds, bestStreak int)
}

// player reacts to session states on behalf of the user. step is called
// with every state update; it returns true once the session is finished.
type player struct {
	opts    playOptions
	inputs  sessionInputs
	out     io.Writer
	stdin   io.Reader
	printer *Output
	quiet   bool

	mu             sync.Mutex
	lastPhase      session.Phase
	lastWarning    string
	rosterSize     int
	nameSent       bool
	startPrompted  bool
	completed      bool
	submitAttempts int
	retryPending   bool
	retry          func(fn func())
}

func newPlayer(opts playOptions, inputs sessionInputs, out io.Writer, stdin io.Reader, retryDelay time.Duration) *player {
	return &player{
		opts:    opts,
		inputs:  inputs,
		out:     out,
		stdin:   stdin,
		printer: &Output{format: "text", w: out},
		retry: func(fn func()) {
			time.AfterFunc(retryDelay, fn)
		},
	}
}

func (p *player) step(st session.State) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st.Phase != p.lastPhase {
		p.announce(st)
		p.lastPhase = st.Phase
	}
	if st.Warning != "" && st.Warning != p.lastWarning {
		p.say("Warning: %s\n", st.Warning)
		p.lastWarning = st.Warning
	}

	switch st.Phase {
	case session.PhaseNotFound:
		return true, model.ErrRoomNotFound

	case session.PhaseNameEntry:
		if st.Joining {
			return false, nil
		}
		if p.nameSent && st.Prompt != "" {
			return true, errors.New(st.Prompt)
		}
		if !p.nameSent {
			p.nameSent = true
			p.inputs.SubmitName(p.opts.Name)
		}

	case session.PhaseLobby:
		p.showRoster(st)
		if p.startPrompted {
			return false, nil
		}
		p.startPrompted = true
		if p.opts.AutoStart {
			p.inputs.RequestStart()
			return false, nil
		}
		p.sayln("Press Enter to start the game")
		go func() {
			if _, err := bufio.NewReader(p.stdin).ReadString('\n'); err == nil {
				p.inputs.RequestStart()
			}
		}()

	case session.PhaseWaiting:
		p.showRoster(st)

	case session.PhasePlaying:
		if st.Submitting {
			return false, nil
		}
		if !p.completed {
			p.completed = true
			p.submit()
			return false, nil
		}
		if st.Prompt == session.PromptSubmitFailed {
			if p.submitAttempts >= maxSubmitAttempts {
				return true, errors.New(st.Prompt)
			}
			if !p.retryPending {
				p.retryPending = true
				p.retry(func() {
					p.mu.Lock()
					defer p.mu.Unlock()
					p.submit()
				})
			}
		} else if st.Prompt != "" {
			return true, errors.New(st.Prompt)
		}

	case session.PhaseDone:
		// Leaving early would abandon the host's start write
		if st.StartPending || st.Leaderboard == nil || !hasResultFrom(st.Leaderboard.Results, st.Name) {
			return false, nil
		}
		board := response.LeaderboardFromModel(st.Leaderboard)
		p.printer.Print(board)
		return true, nil
	}
	return false, nil
}

// say writes progress for people; quiet players only print the result
func (p *player) say(format string, args ...any) {
	if !p.quiet {
		fmt.Fprintf(p.out, format, args...)
	}
}

func (p *player) sayln(msg string) {
	p.say("%s\n", msg)
}

func (p *player) submit() {
	p.retryPending = false
	p.submitAttempts++
	p.inputs.Complete(p.opts.Score, p.opts.TotalTime, p.opts.BestStreak)
}

func (p *player) announce(st session.State) {
	switch st.Phase {
	case session.PhaseNameEntry:
		p.say("Connected to room %s\n", st.Code)
	case session.PhaseLobby:
		p.sayln("You are the host")
	case session.PhaseWaiting:
		p.say("Waiting for %s to start the game\n", st.HostName)
	case session.PhasePlaying:
		p.sayln("Game started")
	case session.PhaseDone:
		p.sayln("Result submitted")
	}
}

func (p *player) showRoster(st session.State) {
	if len(st.Roster) == p.rosterSize {
		return
	}
	p.rosterSize = len(st.Roster)
	p.say("Players: %s\n", strings.Join(model.DisplayLabels(st.Roster), ", "))
}

func hasResultFrom(results []*model.Result, name string) bool {
	for _, r := range results {
		if r.PlayerName == name {
			return true
		}
	}
	return false
}

func newPlayCmd() *cobra.Command {
	var opts playOptions
	sessionCfg := session.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "play <code>",
		Short: "Join a room and play it through to the leaderboard",
		Long: `Join a room under a display name and follow it through its lifecycle.

The first player to join becomes host and starts the game, either by
pressing Enter or immediately with --auto-start. Everyone else waits for the
start. Once the game starts the given score is submitted and the room's
leaderboard is printed when it includes your result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := codeArg(args)
			if err != nil {
				return err
			}
			return play(cmd, code, opts, sessionCfg)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name (required)")
	cmd.Flags().BoolVar(&opts.AutoStart, "auto-start", false, "Start immediately when host")
	cmd.Flags().IntVar(&opts.Score, "score", 0, "Number of correct answers to submit")
	cmd.Flags().IntVar(&opts.TotalTime, "time", 0, "Total time in seconds to submit")
	cmd.Flags().IntVar(&opts.BestStreak, "streak", 0, "Best streak to submit")
	cmd.Flags().DurationVar(&sessionCfg.PollInterval, "poll-interval", sessionCfg.PollInterval, "Fallback polling interval")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func play(cmd *cobra.Command, code model.RoomCode, opts playOptions, sessionCfg session.Config) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctl := session.NewController(code, client, sessionCfg, cfg.Logger())
	runErr := make(chan error, 1)
	go func() {
		runErr <- ctl.Run(ctx)
	}()

	p := newPlayer(opts, ctl, cmd.OutOrStdout(), cmd.InOrStdin(), sessionCfg.RetryDelay)
	p.printer = &Output{format: cfg.Output, w: cmd.OutOrStdout()}
	p.quiet = cfg.Output == "json"
	var stepErr error
	for st := range ctl.Updates() {
		finished, err := p.step(st)
		if finished {
			stepErr = err
			cancel()
			break
		}
	}

	err := <-runErr
	if stepErr != nil {
		return stepErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
