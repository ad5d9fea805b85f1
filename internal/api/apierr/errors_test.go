package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bingoroom/internal/model"
)

func TestWriteErrorMapsModelErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrRoomNotFound, http.StatusNotFound, CodeRoomNotFound},
		{fmt.Errorf("%w: name is required", model.ErrInvalidName), http.StatusBadRequest, CodeInvalidName},
		{model.ErrInvalidCode, http.StatusBadRequest, CodeInvalidCode},
		{model.ErrInvalidResult, http.StatusBadRequest, CodeInvalidResult},
		{model.ErrCodeConflict, http.StatusConflict, CodeCodeConflict},
		{model.ErrNotHost, http.StatusForbidden, CodeNotHost},
		{model.ErrRoomCreateFailed, http.StatusServiceUnavailable, CodeRoomCreateFailed},
		{fmt.Errorf("%w: %w", model.ErrTransient, assert.AnError), http.StatusServiceUnavailable, CodeUnavailable},
		{NewInvalidRequestError("bad"), http.StatusBadRequest, CodeInvalidRequest},
		{assert.AnError, http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.status, Status(tt.err))
		})
	}
}

func TestValidationMessagesCarryDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("%w: score must be between 0 and 15", model.ErrInvalidResult))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error.Message, "score must be between 0 and 15")
}

func TestFromCodeRoundTrips(t *testing.T) {
	for _, err := range []error{
		model.ErrRoomNotFound, model.ErrInvalidName, model.ErrInvalidCode, model.ErrInvalidResult,
		model.ErrCodeConflict, model.ErrNotHost, model.ErrRoomCreateFailed, model.ErrTransient,
	} {
		assert.ErrorIs(t, FromCode(toHTTPError(err).apiError.Code), err)
	}
	assert.NoError(t, FromCode(CodeInternalError))
}
