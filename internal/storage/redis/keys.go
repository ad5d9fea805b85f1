package redis

import (
	"fmt"

	"github.com/mcoot/bingoroom/internal/model"
)

// Key prefix for all room data
const keyPrefix = "bingoroom"

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// playersKey returns the Redis key for the LIST of players in a room
func playersKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s:players", keyPrefix, code)
}

// resultsKey returns the Redis key for the LIST of results in a room
func resultsKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s:results", keyPrefix, code)
}
