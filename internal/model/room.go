package model

import (
	"strings"
	"time"
)

// RoomCode is the short human-typed identifier for joining rooms
type RoomCode string

const (
	// RoomCodeLength is the length of generated room codes
	RoomCodeLength = 6
	// RoomCodeAlphabet avoids characters that are easy to confuse when read aloud
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// SeedLength is the length of generated room seeds
	SeedLength = 16
	// SeedAlphabet is the character set for room seeds
	SeedAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NormalizeCode trims and upper-cases a user-supplied room code
func NormalizeCode(raw string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(raw)))
}

// ParseCode normalizes a room code and rejects codes that cannot be valid
func ParseCode(raw string) (RoomCode, error) {
	code := NormalizeCode(raw)
	if code == "" || len(code) > 32 {
		return "", ErrInvalidCode
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

// Room is a shared session identified by a short code
type Room struct {
	Code      RoomCode  `json:"code"`
	Seed      string    `json:"seed"`
	Started   bool      `json:"started"`
	HostName  string    `json:"host_name,omitempty"` // empty until a host is elected
	CreatedAt time.Time `json:"created_at"`
}

// HasHost reports whether a host has been elected
func (r *Room) HasHost() bool {
	return r.HostName != ""
}

// IsHost reports whether the given display name is the authoritative host
func (r *Room) IsHost(name string) bool {
	return r.HasHost() && r.HostName == name
}

// HostClaim is the outcome of a client attempting to become host after joining
type HostClaim struct {
	Started  bool   `json:"started"`   // room already started: late joiner
	IsHost   bool   `json:"is_host"`   // this caller won the election
	HostName string `json:"host_name"` // authoritative host after the claim
}
