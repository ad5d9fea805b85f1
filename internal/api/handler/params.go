package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bingoroom/internal/model"
)

// roomCode parses the {code} path variable
func roomCode(r *http.Request) (model.RoomCode, error) {
	return model.ParseCode(mux.Vars(r)["code"])
}

// decode reads a JSON request body into v
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return NewInvalidRequestError("Invalid request body")
	}
	return nil
}
