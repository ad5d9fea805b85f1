package model

import (
	"fmt"
	"time"
)

// ResultID uniquely identifies a submitted result
type ResultID string

// DefaultMaxScore is the number of cells on a bingo board
const DefaultMaxScore = 15

// Result is one finished attempt by a player. Players may submit more than once.
type Result struct {
	ID               ResultID  `json:"id"`
	RoomCode         RoomCode  `json:"room_code"`
	PlayerName       string    `json:"player_name"`
	Score            int       `json:"score"`
	TotalTimeSeconds int       `json:"total_time"`
	BestStreak       int       `json:"best_streak"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the result's ranges against the maximum score
func (r *Result) Validate(maxScore int) error {
	switch {
	case r.Score < 0 || r.Score > maxScore:
		return fmt.Errorf("%w: score must be between 0 and %d", ErrInvalidResult, maxScore)
	case r.TotalTimeSeconds < 0:
		return fmt.Errorf("%w: total time cannot be negative", ErrInvalidResult)
	case r.BestStreak < 0:
		return fmt.Errorf("%w: best streak cannot be negative", ErrInvalidResult)
	}
	return nil
}

// FormatDuration renders a number of seconds as m:ss
func FormatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
