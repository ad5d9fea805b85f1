package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// PlayerID uniquely identifies a roster entry
type PlayerID string

// MaxDisplayNameLength is the longest permitted display name, in characters
const MaxDisplayNameLength = 20

// Player is one join of a room. Names are not unique.
type Player struct {
	ID          PlayerID  `json:"id"`
	RoomCode    RoomCode  `json:"room_code"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ValidateDisplayName trims the name and checks its length
func ValidateDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if n > MaxDisplayNameLength {
		return "", fmt.Errorf("%w: name must be %d characters or less", ErrInvalidName, MaxDisplayNameLength)
	}
	return name, nil
}

// DisplayLabels returns one label per player, suffixing repeated names
// with their occurrence number so duplicates render distinctly
func DisplayLabels(players []*Player) []string {
	seen := make(map[string]int, len(players))
	labels := make([]string, len(players))
	for i, p := range players {
		seen[p.DisplayName]++
		if n := seen[p.DisplayName]; n > 1 {
			labels[i] = fmt.Sprintf("%s #%d", p.DisplayName, n)
		} else {
			labels[i] = p.DisplayName
		}
	}
	return labels
}
