package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/cache"
	"github.com/AdamBeresnev/club-brackets/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type versionKey struct{}

// WithExpectedVersion makes the next mutation fail with a
// ConcurrencyConflictError unless the tournament is still at version v.
func WithExpectedVersion(ctx context.Context, v int) context.Context {
	return context.WithValue(ctx, versionKey{}, v)
}

func expectedVersion(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(versionKey{}).(int)
	return v, ok
}

// MutateFunc changes a tournament inside tx. A non-nil match snapshot
// replaces the cached bracket after commit; nil drops the cache entry.
type MutateFunc func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error)

// Guard runs tournament mutations one at a time per tournament, each in a
// single transaction that also bumps the tournament version.
type Guard struct {
	db    *sqlx.DB
	store *store.TournamentStore
	cache *cache.MatchCache

	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewGuard(db *sqlx.DB, store *store.TournamentStore, cache *cache.MatchCache) *Guard {
	return &Guard{db: db, store: store, cache: cache, locks: make(map[uuid.UUID]*lockEntry)}
}

func (g *Guard) lock(id uuid.UUID) func() {
	g.mu.Lock()
	e, ok := g.locks[id]
	if !ok {
		e = &lockEntry{}
		g.locks[id] = e
	}
	e.refs++
	g.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		g.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(g.locks, id)
		}
		g.mu.Unlock()
	}
}

// Mutate applies fn to the tournament. Nothing fn wrote is visible unless
// it returns nil and the version bump and commit succeed.
func (g *Guard) Mutate(ctx context.Context, tournamentID uuid.UUID, fn MutateFunc) error {
	unlock := g.lock(tournamentID)
	defer unlock()

	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return &bracket.StoreError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	tournament, err := g.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return err
	}
	if v, ok := expectedVersion(ctx); ok && v != tournament.Version {
		return &bracket.ConcurrencyConflictError{TournamentID: tournamentID, Version: v}
	}

	snapshot, err := fn(tx, tournament)
	if err != nil {
		return err
	}

	if err := g.store.BumpVersion(ctx, tx, tournamentID, tournament.Version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		g.cache.Invalidate(tournamentID)
		return &bracket.StoreError{Op: "commit", Err: err}
	}

	if snapshot != nil {
		g.cache.Put(tournamentID, snapshot)
	} else {
		g.cache.Invalidate(tournamentID)
	}
	slog.Debug("tournament mutated", "tournament_id", tournamentID, "version", tournament.Version+1)
	return nil
}

// Sync reconciles the cached bracket with the store under the tournament
// lock so it cannot interleave with a mutation.
func (g *Guard) Sync(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	unlock := g.lock(tournamentID)
	defer unlock()
	return g.cache.Sync(ctx, tournamentID)
}
