package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Room:
		o.printRoom(v)
	case response.Player:
		o.printPlayer(v)
	case response.Roster:
		o.printRoster(v)
	case response.HostClaim:
		o.printHostClaim(v)
	case response.Result:
		o.printResult(v)
	case response.Leaderboard:
		o.printLeaderboard(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printRoom(r response.Room) {
	fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	fmt.Fprintf(o.w, "Seed: %s\n", r.Seed)
	host := "(none)"
	if r.HostName != nil {
		host = *r.HostName
	}
	fmt.Fprintf(o.w, "Host: %s\n", host)
	fmt.Fprintf(o.w, "Started: %t\n", r.Started)
	if r.ShareURL != "" {
		fmt.Fprintf(o.w, "Share: %s\n", r.ShareURL)
	}
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
}

func (o *Output) printRoster(r response.Roster) {
	fmt.Fprintf(o.w, "Players (%d):\n", len(r.Players))
	for _, p := range r.Players {
		hostStr := ""
		if p.IsHost {
			hostStr = " [host]"
		}
		label := p.Label
		if label == "" {
			label = p.DisplayName
		}
		fmt.Fprintf(o.w, "  - %s%s\n", label, hostStr)
	}
}

func (o *Output) printHostClaim(c response.HostClaim) {
	switch {
	case c.Started:
		fmt.Fprintln(o.w, "Game already started")
	case c.IsHost:
		fmt.Fprintln(o.w, "You are the host")
	default:
		fmt.Fprintf(o.w, "Host is %s\n", c.HostName)
	}
}

func (o *Output) printResult(r response.Result) {
	fmt.Fprintf(o.w, "%s: %d in %s (best streak %d)\n",
		r.PlayerName, r.Score, model.FormatDuration(r.TotalTime), r.BestStreak)
}

func (o *Output) printLeaderboard(b response.Leaderboard) {
	if len(b.Results) == 0 {
		fmt.Fprintln(o.w, "No results yet")
		return
	}
	if b.Winner != nil {
		fmt.Fprintf(o.w, "Winner: %s\n", b.Winner.PlayerName)
	}
	for i, r := range b.Results {
		fmt.Fprintf(o.w, "%2d. %-20s %3d  %6s  streak %d\n",
			i+1, r.PlayerName, r.Score, model.FormatDuration(r.TotalTime), r.BestStreak)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
