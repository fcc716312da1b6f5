package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/AdamBeresnev/club-brackets/internal/httputil"
	"github.com/jmoiron/sqlx"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

type dbChecker struct{ db *sqlx.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

type HealthResponse map[string]string

func handleHealth(logger *slog.Logger, checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		result := make(HealthResponse, len(checks))
		status := http.StatusOK
		for name, c := range checks {
			result[name] = "ok"
			if err := c.Check(ctx); err != nil {
				logger.Error("health check failed", "name", name, "error", err)
				result[name] = "error"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, result)
	}
}
