package handler

import (
	"net/http"

	"github.com/mcoot/bingoroom/internal/api/request"
	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/services/host"
)

// HostHandler handles host election and game start
type HostHandler struct {
	host *host.Service
}

// NewHostHandler creates a new host handler
func NewHostHandler(host *host.Service) *HostHandler {
	return &HostHandler{host: host}
}

// Claim handles POST /api/v1/rooms/{code}/host
func (h *HostHandler) Claim(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.ClaimHostRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	claim, err := h.host.Claim(r.Context(), code, req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HostClaimFromModel(claim))
}

// Start handles POST /api/v1/rooms/{code}/start
func (h *HostHandler) Start(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.StartRoomRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.host.Start(r.Context(), code, req.PlayerName); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
