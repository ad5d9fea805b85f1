package results

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/mcoot/bingoroom/internal/dependencies/clock"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/notify"
	"github.com/mcoot/bingoroom/internal/storage"
)

// Policy controls how repeated submissions by one player are shown
type Policy string

const (
	// PolicyAll lists every submitted attempt
	PolicyAll Policy = "all"
	// PolicyBest keeps each player's best-ranked attempt
	PolicyBest Policy = "best"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyAll, PolicyBest:
		return p, nil
	default:
		return "", fmt.Errorf("unknown result policy %q", s)
	}
}

// Config holds results settings
type Config struct {
	MaxScore int
	Policy   Policy
}

// DefaultConfig returns the default results configuration
func DefaultConfig() Config {
	return Config{
		MaxScore: model.DefaultMaxScore,
		Policy:   PolicyAll,
	}
}

// Leaderboard is a ranked view of a room's results
type Leaderboard struct {
	Results []*model.Result `json:"results"`
	Winner  *model.Result   `json:"winner"`
}

// Service records results and ranks them
type Service struct {
	storage   storage.Storage
	publisher notify.Publisher
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger
}

// New creates a new results service
func New(storage storage.Storage, publisher notify.Publisher, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "results")),
	}
}

// Submit validates and appends a result. Duplicate submissions are kept.
func (s *Service) Submit(ctx context.Context, result *model.Result) (*model.Result, error) {
	name, err := model.ValidateDisplayName(result.PlayerName)
	if err != nil {
		return nil, err
	}
	if err := result.Validate(s.cfg.MaxScore); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetRoom(ctx, result.RoomCode); err != nil {
		return nil, err
	}

	stored := *result
	stored.PlayerName = name
	stored.ID = model.ResultID(uuid.NewString())
	stored.CreatedAt = s.clock.Now()
	if err := s.storage.AddResult(ctx, &stored); err != nil {
		return nil, err
	}

	s.logger.Info("result submitted",
		slog.String("room", string(stored.RoomCode)),
		slog.String("player", stored.PlayerName),
		slog.Int("score", stored.Score),
		slog.Int("total_time", stored.TotalTimeSeconds))
	notify.Announce(ctx, s.publisher, s.logger, model.ChangeEvent{
		Subject:  model.SubjectResults,
		Op:       model.OpInsert,
		RoomCode: stored.RoomCode,
		At:       stored.CreatedAt,
	})
	return &stored, nil
}

// Leaderboard returns the room's results ranked under the configured policy
func (s *Service) Leaderboard(ctx context.Context, code model.RoomCode) (*Leaderboard, error) {
	all, err := s.storage.ListResults(ctx, code)
	if err != nil {
		return nil, err
	}

	ranked := Rank(all)
	if s.cfg.Policy == PolicyBest {
		ranked = BestPerPlayer(ranked)
	}
	return &Leaderboard{Results: ranked, Winner: Winner(ranked)}, nil
}

// Rank orders results by score descending, then total time ascending.
// Ties keep their input order. The input slice is not modified.
func Rank(results []*model.Result) []*model.Result {
	ranked := make([]*model.Result, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].TotalTimeSeconds < ranked[j].TotalTimeSeconds
	})
	return ranked
}

// Winner returns the top-ranked result, or nil when there are none
func Winner(ranked []*model.Result) *model.Result {
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}

// BestPerPlayer keeps the first occurrence of each player name in an
// already ranked list
func BestPerPlayer(ranked []*model.Result) []*model.Result {
	seen := make(map[string]bool, len(ranked))
	best := make([]*model.Result, 0, len(ranked))
	for _, r := range ranked {
		if seen[r.PlayerName] {
			continue
		}
		seen[r.PlayerName] = true
		best = append(best, r)
	}
	return best
}
