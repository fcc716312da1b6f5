package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "insufficient participants", err: &bracket.InsufficientParticipantsError{Count: 1}, expected: http.StatusBadRequest},
		{name: "wrapped invalid winner", err: fmt.Errorf("record: %w", bracket.ErrInvalidWinner), expected: http.StatusBadRequest},
		{name: "not ready", err: bracket.ErrMatchNotReady, expected: http.StatusBadRequest},
		{name: "stage transition", err: bracket.ErrInvalidStageTransition, expected: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("get match: %w", bracket.ErrNotFound), expected: http.StatusNotFound},
		{name: "version conflict", err: &bracket.ConcurrencyConflictError{TournamentID: uuid.New(), Version: 3}, expected: http.StatusConflict},
		{name: "completed", err: bracket.ErrMatchCompleted, expected: http.StatusConflict},
		{name: "resolution", err: &bracket.ResolutionError{MatchID: uuid.New(), Reason: "broken"}, expected: http.StatusInternalServerError},
		{name: "store", err: &bracket.StoreError{Op: "commit", Err: errors.New("disk full")}, expected: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StatusOf(tc.err))
		})
	}
}

func TestWriteErrorHidesServerErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "Failed to record result", &bracket.StoreError{Op: "commit", Err: errors.New("disk full")})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "disk full")

	rec = httptest.NewRecorder()
	WriteError(rec, "Failed to record result", bracket.ErrMatchCompleted)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, bracket.ErrMatchCompleted.Error(), body.Error)
}

func TestReadJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Spring Open"}`))
	require.NoError(t, ReadJSON(req, &v))
	assert.Equal(t, "Spring Open", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
	assert.ErrorIs(t, ReadJSON(req, &v), bracket.ErrInvalidInput)
}

func TestReadOptionalJSON(t *testing.T) {
	testCases := []struct {
		name          string
		body          string
		contentLength int64
		expected      string
		expectedErr   error
	}{
		{name: "empty with length", body: "", contentLength: 0, expected: "keep"},
		{name: "empty chunked", body: "", contentLength: -1, expected: "keep"},
		{name: "chunked with body", body: `{"name":"Spring Open"}`, contentLength: -1, expected: "Spring Open"},
		{name: "truncated", body: `{"name":`, contentLength: -1, expectedErr: bracket.ErrInvalidInput},
		{name: "unknown field", body: `{"title":"x"}`, contentLength: 13, expectedErr: bracket.ErrInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := struct {
				Name string `json:"name"`
			}{Name: "keep"}

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.ContentLength = tc.contentLength

			err := ReadOptionalJSON(req, &v)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, v.Name)
		})
	}

	require.NoError(t, ReadOptionalJSON(httptest.NewRequest(http.MethodPost, "/", nil), &struct{}{}))
}
