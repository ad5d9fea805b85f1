package handler

import (
	"net/http"

	"github.com/mcoot/bingoroom/internal/api/request"
	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/services/registry"
	"github.com/mcoot/bingoroom/internal/services/roster"
)

// PlayerHandler handles roster endpoints
type PlayerHandler struct {
	registry *registry.Service
	roster   *roster.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(registry *registry.Service, roster *roster.Service) *PlayerHandler {
	return &PlayerHandler{
		registry: registry,
		roster:   roster,
	}
}

// Join handles POST /api/v1/rooms/{code}/players
func (h *PlayerHandler) Join(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.JoinRoomRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.roster.Join(r.Context(), code, req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// List handles GET /api/v1/rooms/{code}/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	// The room read doubles as the existence check
	room, err := h.registry.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	players, err := h.roster.List(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RosterFromModel(players, room))
}
