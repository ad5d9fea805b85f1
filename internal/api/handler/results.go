package handler

import (
	"net/http"

	"github.com/mcoot/bingoroom/internal/api/request"
	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/services/results"
)

// ResultsHandler handles result submission and the leaderboard
type ResultsHandler struct {
	results *results.Service
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(results *results.Service) *ResultsHandler {
	return &ResultsHandler{results: results}
}

// Submit handles POST /api/v1/rooms/{code}/results
func (h *ResultsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.SubmitResultRequest
	if err := decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.results.Submit(r.Context(), &model.Result{
		RoomCode:         code,
		PlayerName:       req.PlayerName,
		Score:            req.Score,
		TotalTimeSeconds: req.TotalTime,
		BestStreak:       req.BestStreak,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ResultFromModel(result))
}

// Leaderboard handles GET /api/v1/rooms/{code}/results
func (h *ResultsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	code, err := roomCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	board, err := h.results.Leaderboard(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(board))
}
