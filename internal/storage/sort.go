package storage

import (
	"sort"

	"github.com/mcoot/bingoroom/internal/model"
)

// SortByJoinedAt orders players by join time, keeping insertion order on ties
func SortByJoinedAt(players []*model.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
}
