package response

import (
	"time"

	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/services/results"
)

// Room represents a room in API responses
type Room struct {
	Code      string    `json:"code"`
	Seed      string    `json:"seed"`
	Started   bool      `json:"started"`
	HostName  *string   `json:"host_name"`
	CreatedAt time.Time `json:"created_at"`
	ShareURL  string    `json:"share_url,omitempty"`
}

// RoomFromModel converts a model.Room
func RoomFromModel(r *model.Room, shareURL string) Room {
	var host *string
	if r.HasHost() {
		h := r.HostName
		host = &h
	}
	return Room{
		Code:      string(r.Code),
		Seed:      r.Seed,
		Started:   r.Started,
		HostName:  host,
		CreatedAt: r.CreatedAt,
		ShareURL:  shareURL,
	}
}

// ToModel converts back to a model.Room
func (r Room) ToModel() *model.Room {
	room := &model.Room{
		Code:      model.RoomCode(r.Code),
		Seed:      r.Seed,
		Started:   r.Started,
		CreatedAt: r.CreatedAt,
	}
	if r.HostName != nil {
		room.HostName = *r.HostName
	}
	return room
}

// Player represents a roster entry in API responses
type Player struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Label       string    `json:"label,omitempty"`
	IsHost      bool      `json:"is_host,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		JoinedAt:    p.JoinedAt,
	}
}

// ToModel converts back to a model.Player in the given room
func (p Player) ToModel(code model.RoomCode) *model.Player {
	return &model.Player{
		ID:          model.PlayerID(p.ID),
		RoomCode:    code,
		DisplayName: p.DisplayName,
		JoinedAt:    p.JoinedAt,
	}
}

// Roster is the response for listing a room's players
type Roster struct {
	Players []Player `json:"players"`
}

// RosterFromModel converts an ordered player list, labelling duplicate
// names and marking the host
func RosterFromModel(players []*model.Player, room *model.Room) Roster {
	labels := model.DisplayLabels(players)
	out := make([]Player, len(players))
	hostMarked := false
	for i, p := range players {
		out[i] = PlayerFromModel(p)
		out[i].Label = labels[i]
		// Only the first player with the host's name is marked
		if !hostMarked && room.IsHost(p.DisplayName) {
			out[i].IsHost = true
			hostMarked = true
		}
	}
	return Roster{Players: out}
}

// HostClaim is the response for a host claim
type HostClaim struct {
	Started  bool   `json:"started"`
	IsHost   bool   `json:"is_host"`
	HostName string `json:"host_name"`
}

// HostClaimFromModel converts a model.HostClaim
func HostClaimFromModel(c *model.HostClaim) HostClaim {
	return HostClaim(*c)
}

// Result represents a submitted result
type Result struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	TotalTime  int       `json:"total_time"`
	BestStreak int       `json:"best_streak"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResultFromModel converts a model.Result
func ResultFromModel(r *model.Result) Result {
	return Result{
		ID:         string(r.ID),
		PlayerName: r.PlayerName,
		Score:      r.Score,
		TotalTime:  r.TotalTimeSeconds,
		BestStreak: r.BestStreak,
		CreatedAt:  r.CreatedAt,
	}
}

// ToModel converts back to a model.Result in the given room
func (r Result) ToModel(code model.RoomCode) *model.Result {
	return &model.Result{
		ID:               model.ResultID(r.ID),
		RoomCode:         code,
		PlayerName:       r.PlayerName,
		Score:            r.Score,
		TotalTimeSeconds: r.TotalTime,
		BestStreak:       r.BestStreak,
		CreatedAt:        r.CreatedAt,
	}
}

// Leaderboard is the ranked results of a room
type Leaderboard struct {
	Results []Result `json:"results"`
	Winner  *Result  `json:"winner"`
}

// LeaderboardFromModel converts a results.Leaderboard
func LeaderboardFromModel(b *results.Leaderboard) Leaderboard {
	out := Leaderboard{Results: make([]Result, len(b.Results))}
	for i, r := range b.Results {
		out.Results[i] = ResultFromModel(r)
	}
	if b.Winner != nil {
		w := ResultFromModel(b.Winner)
		out.Winner = &w
	}
	return out
}

// ToModel converts back to a results.Leaderboard in the given room
func (b Leaderboard) ToModel(code model.RoomCode) *results.Leaderboard {
	out := &results.Leaderboard{Results: make([]*model.Result, len(b.Results))}
	for i, r := range b.Results {
		out.Results[i] = r.ToModel(code)
	}
	if len(out.Results) > 0 && b.Winner != nil {
		out.Winner = out.Results[0]
	}
	return out
}
