package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// ReadJSON decodes the request body into v and rejects unknown fields.
func ReadJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", bracket.ErrInvalidInput, err)
	}
	return nil
}

// ReadOptionalJSON is ReadJSON for endpoints whose body may be omitted. An
// empty body leaves v untouched whatever the declared length, so chunked
// requests without content are accepted too.
func ReadOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", bracket.ErrInvalidInput, err)
	}
	return nil
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: msg})
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	WriteJSON(w, http.StatusConflict, ErrorResponse{Error: msg})
}

// StatusOf maps an error from the bracket packages to an HTTP status.
func StatusOf(err error) int {
	var (
		insufficient *bracket.InsufficientParticipantsError
		conflict     *bracket.ConcurrencyConflictError
	)
	switch {
	case errors.As(err, &insufficient),
		errors.Is(err, bracket.ErrInvalidInput),
		errors.Is(err, bracket.ErrInvalidWinner),
		errors.Is(err, bracket.ErrInvalidScore),
		errors.Is(err, bracket.ErrInvalidStageTransition),
		errors.Is(err, bracket.ErrInvalidSeedOrder),
		errors.Is(err, bracket.ErrUnknownEntrant),
		errors.Is(err, bracket.ErrUnpairedParticipant),
		errors.Is(err, bracket.ErrMatchNotReady):
		return http.StatusBadRequest
	case errors.Is(err, bracket.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &conflict), errors.Is(err, bracket.ErrMatchCompleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteError writes err with the status StatusOf assigns it. Server errors
// are logged with msg and hidden from the client.
func WriteError(w http.ResponseWriter, msg string, err error) {
	switch StatusOf(err) {
	case http.StatusBadRequest:
		BadRequest(w, err.Error(), err)
	case http.StatusNotFound:
		NotFound(w, err.Error(), err)
	case http.StatusConflict:
		Conflict(w, err.Error(), err)
	default:
		InternalServerError(w, msg, err)
	}
}
