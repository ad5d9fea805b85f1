package model

import "errors"

// Common errors used across the application
var (
	// Not found
	ErrRoomNotFound = errors.New("room not found")

	// Validation errors
	ErrInvalidName   = errors.New("invalid display name")
	ErrInvalidCode   = errors.New("invalid room code")
	ErrInvalidResult = errors.New("invalid result")

	// Write conflicts
	ErrCodeConflict = errors.New("room code already exists")
	ErrHostTaken    = errors.New("room already has a host")
	ErrNotHost      = errors.New("player is not the host")

	// Transient backend failures; backends wrap I/O errors with this
	ErrTransient = errors.New("transient storage failure")

	// Creating a room gave up after repeated code collisions
	ErrRoomCreateFailed = errors.New("failed to create room")
)

// ErrorKind groups errors by how callers are expected to react
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindValidation    ErrorKind = "validation"
	KindWriteConflict ErrorKind = "write_conflict"
	KindTransient     ErrorKind = "transient"
	KindUnknown       ErrorKind = "unknown"
)

// KindOf classifies an error
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidCode), errors.Is(err, ErrInvalidResult):
		return KindValidation
	case errors.Is(err, ErrCodeConflict), errors.Is(err, ErrHostTaken), errors.Is(err, ErrNotHost):
		return KindWriteConflict
	case errors.Is(err, ErrTransient), errors.Is(err, ErrRoomCreateFailed):
		return KindTransient
	default:
		return KindUnknown
	}
}
