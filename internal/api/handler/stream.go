package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/bingoroom/internal/services/registry"
	"github.com/mcoot/bingoroom/internal/stream"
)

// StreamHandler serves live room change streams
type StreamHandler struct {
	registry   *registry.Service
	hubManager *stream.HubManager
	logger     *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(registry *registry.Service, hubManager *stream.HubManager, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		registry:   registry,
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "stream")),
	}
}

// Events handles GET /api/v1/rooms/{code}/events
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	if _, err := h.registry.GetRoom(r.Context(), code); err != nil {
		WriteError(w, err)
		return
	}

	// Streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	stream.ServeSSE(w, r, h.hubManager, code)
}

// WebSocket handles GET /api/v1/rooms/{code}/ws
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	if _, err := h.registry.GetRoom(r.Context(), code); err != nil {
		WriteError(w, err)
		return
	}

	stream.ServeWS(w, r, h.hubManager, code, h.logger)
}
