// Package cache keeps a read-through copy of each tournament's matches.
// The store stays the source of truth: entries are replaced after every
// committed mutation and can be reconciled on demand with Sync.
package cache

import (
	"context"
	"sync"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type Loader interface {
	GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error)
}

type MatchCache struct {
	loader Loader
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[uuid.UUID][]bracket.Match
	// gens counts writes per tournament. A load only fills the entry when
	// no Put, Invalidate or Sync landed while it was reading.
	gens map[uuid.UUID]uint64
}

func New(loader Loader) *MatchCache {
	return &MatchCache{
		loader:  loader,
		entries: make(map[uuid.UUID][]bracket.Match),
		gens:    make(map[uuid.UUID]uint64),
	}
}

const maxLoadAttempts = 3

// Get returns the cached matches, loading them once on a miss. Concurrent
// misses for the same tournament share one store read, which is detached
// from the caller's cancellation so one departing caller does not fail the
// others.
func (c *MatchCache) Get(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	c.mu.RLock()
	matches, ok := c.entries[tournamentID]
	c.mu.RUnlock()
	if ok {
		return clone(matches), nil
	}

	v, err, _ := c.group.Do(tournamentID.String(), func() (any, error) {
		return c.load(context.WithoutCancel(ctx), tournamentID)
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]bracket.Match)), nil
}

// load reads the store and fills the entry unless a write raced the read.
// A racing Put wins and its rows are returned instead. A racing
// Invalidate leaves nothing to trust, so the read is retried.
func (c *MatchCache) load(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var loaded []bracket.Match
	for range maxLoadAttempts {
		c.mu.RLock()
		gen := c.gens[tournamentID]
		c.mu.RUnlock()

		var err error
		loaded, err = c.loader.GetMatches(ctx, tournamentID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[tournamentID] == gen {
			c.entries[tournamentID] = clone(loaded)
			c.mu.Unlock()
			return loaded, nil
		}
		if current, ok := c.entries[tournamentID]; ok {
			current = clone(current)
			c.mu.Unlock()
			return current, nil
		}
		c.mu.Unlock()
	}
	// Still contended: hand back the last read without caching it.
	return loaded, nil
}

func (c *MatchCache) Put(tournamentID uuid.UUID, matches []bracket.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tournamentID] = clone(matches)
	c.gens[tournamentID]++
}

func (c *MatchCache) Invalidate(tournamentID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tournamentID)
	c.gens[tournamentID]++
}

// Sync reloads a tournament from the store and reports how many matches
// differ from the cached copy, counting changed, added and removed rows.
// A tournament that was never cached counts every stored match as added.
func (c *MatchCache) Sync(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	fresh, err := c.loader.GetMatches(ctx, tournamentID)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	diff := Diff(c.entries[tournamentID], fresh)
	c.entries[tournamentID] = clone(fresh)
	c.gens[tournamentID]++
	return diff, nil
}

// Diff counts the matches that differ between two snapshots by ID.
func Diff(old, fresh []bracket.Match) int {
	byID := make(map[uuid.UUID]bracket.Match, len(old))
	for _, m := range old {
		byID[m.ID] = m
	}

	diff := 0
	for _, m := range fresh {
		prev, ok := byID[m.ID]
		if !ok || !prev.Equal(m) {
			diff++
		}
		delete(byID, m.ID)
	}
	return diff + len(byID)
}

// clone copies the slice; pointer fields are never mutated in place so
// sharing them is safe.
func clone(matches []bracket.Match) []bracket.Match {
	out := make([]bracket.Match, len(matches))
	copy(out, matches)
	return out
}
