package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/httputil"
	"github.com/AdamBeresnev/club-brackets/internal/service"
	"github.com/AdamBeresnev/club-brackets/views"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/swaggest/swgui/v5emb"
)

type application struct {
	logger      *slog.Logger
	tournaments *service.TournamentService
	brackets    *service.BracketService
	matches     *service.MatchService
	checks      map[string]Checker
}

type ParticipantsRequest struct {
	Participants []service.ParticipantInput `json:"participants,omitempty"`
	// Roster is an alternative to Participants: one name per line.
	Roster string `json:"roster,omitempty"`
}

type IDsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type GenerateRequest struct {
	Entrants []uuid.UUID `json:"entrants,omitempty"`
}

type PairResponse struct {
	GroupID uuid.UUID `json:"group_id"`
}

type SyncResponse struct {
	Diff int `json:"diff"`
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(structuredLogger(app.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", handleHealth(app.logger, app.checks))
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Club Brackets API", "/openapi.json", "/docs"))

	r.Post("/brackets/preview", app.previewBracket)

	r.Route("/tournaments", func(r chi.Router) {
		r.Get("/", app.listTournaments)
		r.Post("/", app.createTournament)

		r.Route("/{id}", func(r chi.Router) {
			r.Use(expectedVersion)

			r.Get("/", app.getTournament)
			r.Get("/bracket", app.getBracket)
			r.Get("/rounds/{round}", app.getRound)

			r.Post("/participants", app.addParticipants)
			r.Delete("/participants", app.removeParticipants)
			r.Put("/participants/order", app.reorderParticipants)
			r.Put("/participants/group", app.pairParticipants)

			r.Post("/group-stage", app.startGroupStage)
			r.Post("/bracket", app.generateBracket)
			r.Post("/bracket/regenerate", app.regenerateBracket)
			r.Post("/sync", app.syncTournament)
		})
	})

	r.Route("/matches/{id}", func(r chi.Router) {
		r.Use(expectedVersion)

		r.Get("/", app.getMatch)
		r.Post("/result", app.recordResult)
		r.Put("/result", app.editResult)
	})

	return r
}

func structuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", chimiddleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// expectedVersion turns an If-Match header into an optimistic version check
// on the mutation the request performs.
func expectedVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("If-Match")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		v, err := strconv.Atoi(strings.Trim(header, `"`))
		if err != nil {
			httputil.BadRequest(w, "If-Match must be a tournament version", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithExpectedVersion(r.Context(), v)))
	})
}

func idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (app *application) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := app.tournaments.ListTournaments(r.Context())
	if err != nil {
		httputil.WriteError(w, "Failed to list tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournaments)
}

func (app *application) createTournament(w http.ResponseWriter, r *http.Request) {
	var input service.CreateTournamentInput
	if err := httputil.ReadJSON(r, &input); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	tournament, err := app.tournaments.CreateTournament(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, "Failed to create tournament", err)
		return
	}
	w.Header().Set("Location", "/tournaments/"+tournament.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, tournament)
}

func (app *application) getTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	data, err := app.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to get tournament", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(data.Tournament.Version)))
	httputil.WriteJSON(w, http.StatusOK, data)
}

func (app *application) getBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	data, err := app.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to get bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views.PrepareBracketData(id, data.Participants, data.Matches))
}

func (app *application) getRound(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		httputil.BadRequest(w, "Invalid round number", err)
		return
	}
	matches, err := app.matches.GetRound(r.Context(), id, round)
	if err != nil {
		httputil.WriteError(w, "Failed to get round", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}

func (app *application) addParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req ParticipantsRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	inputs := req.Participants
	if len(inputs) == 0 {
		inputs = service.ParseRoster(req.Roster)
	}
	added, err := app.tournaments.AddParticipants(r.Context(), id, inputs)
	if err != nil {
		httputil.WriteError(w, "Failed to add participants", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, added)
}

func (app *application) removeParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req IDsRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	if err := app.tournaments.RemoveParticipants(r.Context(), id, req.IDs); err != nil {
		httputil.WriteError(w, "Failed to remove participants", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) reorderParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req IDsRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	if err := app.tournaments.ReorderParticipants(r.Context(), id, req.IDs); err != nil {
		httputil.WriteError(w, "Failed to reorder participants", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) pairParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req IDsRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	group, err := app.tournaments.PairParticipants(r.Context(), id, req.IDs)
	if err != nil {
		httputil.WriteError(w, "Failed to pair participants", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PairResponse{GroupID: group})
}

func (app *application) startGroupStage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := app.tournaments.StartGroupStage(r.Context(), id); err != nil {
		httputil.WriteError(w, "Failed to start group stage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) generateBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := httputil.ReadOptionalJSON(r, &req); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	matches, err := app.brackets.GenerateBracket(r.Context(), id, req.Entrants)
	if err != nil {
		httputil.WriteError(w, "Failed to generate bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (app *application) regenerateBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	matches, err := app.brackets.RegenerateBracket(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to regenerate bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (app *application) previewBracket(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	matches, err := app.brackets.PreviewBracket(req.Entrants)
	if err != nil {
		httputil.WriteError(w, "Failed to preview bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, matches)
}

func (app *application) syncTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	diff, err := app.matches.SyncWithStore(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to sync tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SyncResponse{Diff: diff})
}

func (app *application) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	match, err := app.matches.GetMatch(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, "Failed to get match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}

func (app *application) recordResult(w http.ResponseWriter, r *http.Request) {
	app.writeResult(w, r, app.matches.RecordResult)
}

func (app *application) editResult(w http.ResponseWriter, r *http.Request) {
	app.writeResult(w, r, app.matches.EditResult)
}

type resultFunc func(ctx context.Context, matchID uuid.UUID, result bracket.Result) (*service.Changes, error)

func (app *application) writeResult(w http.ResponseWriter, r *http.Request, op resultFunc) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var result bracket.Result
	if err := httputil.ReadJSON(r, &result); err != nil {
		httputil.WriteError(w, "Invalid request body", err)
		return
	}
	changes, err := op(r.Context(), id, result)
	if err != nil {
		httputil.WriteError(w, "Failed to save result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, changes)
}
