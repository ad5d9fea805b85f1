package model

import "time"

// Subject identifies the collection a change signal refers to
type Subject string

const (
	SubjectRoster  Subject = "room_players"
	SubjectRoom    Subject = "rooms"
	SubjectResults Subject = "room_results"
)

// AllSubjects lists every subject a room publishes
func AllSubjects() []Subject {
	return []Subject{SubjectRoster, SubjectRoom, SubjectResults}
}

// Op is the kind of write that produced a change signal
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent is a best-effort "something changed" signal for one room.
// Receivers re-read the affected collection instead of applying it.
type ChangeEvent struct {
	Subject  Subject   `json:"subject"`
	Op       Op        `json:"op"`
	RoomCode RoomCode  `json:"room_code"`
	At       time.Time `json:"at"`
}
