package main

import (
	"encoding/json"
	"net/http"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/httputil"
	"github.com/AdamBeresnev/club-brackets/internal/service"
	"github.com/AdamBeresnev/club-brackets/views"
	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

type operation struct {
	method, path, summary string
	req                   any
	resp                  any
	status                int
	errors                []int
}

type tournamentPath struct {
	ID string `path:"id" format:"uuid"`
}

type roundPath struct {
	ID    string `path:"id" format:"uuid"`
	Round int    `path:"round" minimum:"1"`
}

type matchPath struct {
	ID string `path:"id" format:"uuid"`
}

var operations = []operation{
	{method: http.MethodGet, path: "/healthz", summary: "Health check", resp: HealthResponse{}, status: http.StatusOK, errors: []int{http.StatusServiceUnavailable}},
	{method: http.MethodPost, path: "/brackets/preview", summary: "Preview the bracket for an entrant order without storing it", req: GenerateRequest{}, resp: []bracket.Match{}, status: http.StatusOK, errors: []int{http.StatusBadRequest}},

	{method: http.MethodGet, path: "/tournaments", summary: "List tournaments", resp: []bracket.Tournament{}, status: http.StatusOK},
	{method: http.MethodPost, path: "/tournaments", summary: "Create a tournament with its participants", req: service.CreateTournamentInput{}, resp: bracket.Tournament{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest}},
	{method: http.MethodGet, path: "/tournaments/{id}", summary: "Tournament, participants and matches", req: tournamentPath{}, resp: service.TournamentData{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
	{method: http.MethodGet, path: "/tournaments/{id}/bracket", summary: "Bracket grouped by round with entrant names", req: tournamentPath{}, resp: views.BracketData{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
	{method: http.MethodGet, path: "/tournaments/{id}/rounds/{round}", summary: "Matches of one round", req: roundPath{}, resp: []bracket.Match{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound}},

	{method: http.MethodPost, path: "/tournaments/{id}/participants", summary: "Add participants after the lowest seed", req: struct {
		tournamentPath
		ParticipantsRequest
	}{}, resp: []bracket.Participant{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodDelete, path: "/tournaments/{id}/participants", summary: "Remove participants and close seed gaps", req: struct {
		tournamentPath
		IDsRequest
	}{}, status: http.StatusNoContent, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPut, path: "/tournaments/{id}/participants/order", summary: "Rewrite the seed order", req: struct {
		tournamentPath
		IDsRequest
	}{}, status: http.StatusNoContent, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPut, path: "/tournaments/{id}/participants/group", summary: "Pair participants into a doubles group", req: struct {
		tournamentPath
		IDsRequest
	}{}, resp: PairResponse{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},

	{method: http.MethodPost, path: "/tournaments/{id}/group-stage", summary: "Start the group stage", req: tournamentPath{}, status: http.StatusNoContent, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPost, path: "/tournaments/{id}/bracket", summary: "Generate the elimination bracket", req: struct {
		tournamentPath
		GenerateRequest
	}{}, resp: []bracket.Match{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPost, path: "/tournaments/{id}/bracket/regenerate", summary: "Rebuild the bracket from the current seeds", req: tournamentPath{}, resp: []bracket.Match{}, status: http.StatusCreated, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPost, path: "/tournaments/{id}/sync", summary: "Reconcile the cached bracket with the database", req: tournamentPath{}, resp: SyncResponse{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},

	{method: http.MethodGet, path: "/matches/{id}", summary: "Get a match", req: matchPath{}, resp: bracket.Match{}, status: http.StatusOK, errors: []int{http.StatusNotFound}},
	{method: http.MethodPost, path: "/matches/{id}/result", summary: "Record a result and advance the winner", req: struct {
		matchPath
		bracket.Result
	}{}, resp: service.Changes{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
	{method: http.MethodPut, path: "/matches/{id}/result", summary: "Correct a result and reset what depended on it", req: struct {
		matchPath
		bracket.Result
	}{}, resp: service.Changes{}, status: http.StatusOK, errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict}},
}

func newOpenAPISpec() (*openapi3.Spec, error) {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Club Brackets API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Single-elimination brackets for club tournaments. Mutations accept an If-Match tournament version.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			return nil, err
		}
		oc.SetSummary(op.summary)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		for _, status := range op.errors {
			oc.AddRespStructure(httputil.ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		if err := r.AddOperation(oc); err != nil {
			return nil, err
		}
	}
	return r.Spec, nil
}

func handleOpenAPI() http.HandlerFunc {
	spec, err := newOpenAPISpec()
	if err != nil {
		return func(w http.ResponseWriter, r *http.Request) {
			httputil.InternalServerError(w, "Failed to build OpenAPI document", err)
		}
	}
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
