package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/services/registry"
)

// QRSize is the edge length in pixels of generated QR codes
const QRSize = 256

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	registry  *registry.Service
	publicURL string
}

// NewRoomHandler creates a new room handler. publicURL is the base that
// share links are built from; share links are omitted when it is empty.
func NewRoomHandler(registry *registry.Service, publicURL string) *RoomHandler {
	return &RoomHandler{
		registry:  registry,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// ShareURL returns the link players open to join a room
func (h *RoomHandler) ShareURL(code model.RoomCode) string {
	if h.publicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/room/%s", h.publicURL, code)
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	room, err := h.registry.CreateRoom(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(room, h.ShareURL(room.Code)))
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	room, err := h.registry.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room, h.ShareURL(room.Code)))
}

// QR handles GET /api/v1/rooms/{code}/qr.png
func (h *RoomHandler) QR(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	room, err := h.registry.GetRoom(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	target := h.ShareURL(room.Code)
	if target == "" {
		target = string(room.Code)
	}

	png, err := qrcode.Encode(target, qrcode.Medium, QRSize)
	if err != nil {
		WriteError(w, NewInternalError())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
