package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/bingoroom/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidName      = "INVALID_NAME"
	CodeInvalidCode      = "INVALID_CODE"
	CodeInvalidResult    = "INVALID_RESULT"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeCodeConflict     = "CODE_CONFLICT"
	CodeNotHost          = "NOT_HOST"
	CodeRoomCreateFailed = "ROOM_CREATE_FAILED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors. Validation messages carry the detail of what failed.
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrInvalidName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidName, err.Error()}}
	case errors.Is(err, model.ErrInvalidCode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidCode, "Room code must be letters and digits"}}
	case errors.Is(err, model.ErrInvalidResult):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidResult, err.Error()}}
	case errors.Is(err, model.ErrCodeConflict):
		return &httpError{http.StatusConflict, APIError{CodeCodeConflict, "Room code already exists"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can start the game"}}
	case errors.Is(err, model.ErrRoomCreateFailed):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeRoomCreateFailed, "Failed to create room, please try again"}}
	case errors.Is(err, model.ErrTransient):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeUnavailable, "Service temporarily unavailable"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// FromCode converts an API error code back to the model error it was
// mapped from, for clients of the API
func FromCode(code string) error {
	switch code {
	case CodeRoomNotFound:
		return model.ErrRoomNotFound
	case CodeInvalidName:
		return model.ErrInvalidName
	case CodeInvalidCode:
		return model.ErrInvalidCode
	case CodeInvalidResult:
		return model.ErrInvalidResult
	case CodeCodeConflict:
		return model.ErrCodeConflict
	case CodeNotHost:
		return model.ErrNotHost
	case CodeRoomCreateFailed:
		return model.ErrRoomCreateFailed
	case CodeUnavailable:
		return model.ErrTransient
	default:
		return nil
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
