package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	mu      sync.Mutex
	calls   atomic.Int32
	matches map[uuid.UUID][]bracket.Match
	err     error
}

func (f *fakeLoader) GetMatches(_ context.Context, id uuid.UUID) ([]bracket.Match, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return clone(f.matches[id]), nil
}

func (f *fakeLoader) set(id uuid.UUID, matches []bracket.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[id] = clone(matches)
}

// blockingLoader takes its first snapshot, then holds it until release is
// closed. It honors cancellation of the context it is handed.
type blockingLoader struct {
	*fakeLoader
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newBlockingLoader(matches map[uuid.UUID][]bracket.Match) *blockingLoader {
	return &blockingLoader{
		fakeLoader: &fakeLoader{matches: matches},
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (b *blockingLoader) GetMatches(ctx context.Context, id uuid.UUID) ([]bracket.Match, error) {
	matches, err := b.fakeLoader.GetMatches(ctx, id)
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.started)
		<-b.release
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return matches, err
}

type getResult struct {
	matches []bracket.Match
	err     error
}

func getAsync(ctx context.Context, c *MatchCache, id uuid.UUID) <-chan getResult {
	done := make(chan getResult, 1)
	go func() {
		m, err := c.Get(ctx, id)
		done <- getResult{m, err}
	}()
	return done
}

func generated(t *testing.T, tournamentID uuid.UUID, n int) []bracket.Match {
	t.Helper()
	entrants := make([]uuid.UUID, n)
	for i := range entrants {
		entrants[i] = uuid.New()
	}
	matches, err := bracket.Generate(tournamentID, entrants)
	require.NoError(t, err)
	return matches
}

func TestGetReadsThrough(t *testing.T) {
	id := uuid.New()
	loader := &fakeLoader{matches: map[uuid.UUID][]bracket.Match{id: generated(t, id, 4)}}
	c := New(loader)

	first, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, first, 3)

	first[0].Status = bracket.MatchCompleted

	second, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchScheduled, second[0].Status, "callers get their own copy")
	assert.Equal(t, int32(1), loader.calls.Load())

	c.Invalidate(id)
	_, err = c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestGetPropagatesLoaderErrors(t *testing.T) {
	loader := &fakeLoader{err: errors.New("disk on fire")}
	c := New(loader)

	_, err := c.Get(context.Background(), uuid.New())
	assert.EqualError(t, err, "disk on fire")
}

func TestSyncCountsDifferences(t *testing.T) {
	id := uuid.New()
	matches := generated(t, id, 5)
	loader := &fakeLoader{matches: map[uuid.UUID][]bracket.Match{id: matches}}
	c := New(loader)

	diff, err := c.Sync(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, diff, "uncached tournament counts every match")

	diff, err = c.Sync(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, diff)

	changed := clone(matches)
	changed[0].Score1 = utils.Ptr(3)
	changed = append(changed[:2], changed[3:]...)
	loader.set(id, changed)

	diff, err = c.Sync(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, diff)

	cached, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, cached, 3)
}

func TestDiff(t *testing.T) {
	id := uuid.New()
	a := generated(t, id, 4)
	b := generated(t, id, 4)

	assert.Zero(t, Diff(a, a))
	assert.Equal(t, 6, Diff(a, b))
	assert.Equal(t, 3, Diff(nil, a))
	assert.Equal(t, 3, Diff(a, nil))
}

func TestGetKeepsPutFromConcurrentMutation(t *testing.T) {
	id := uuid.New()
	stale := generated(t, id, 4)
	loader := newBlockingLoader(map[uuid.UUID][]bracket.Match{id: stale})
	c := New(loader)

	done := getAsync(context.Background(), c, id)
	<-loader.started

	fresh := clone(stale)
	fresh[0].Status = bracket.MatchCompleted
	c.Put(id, fresh)
	close(loader.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, bracket.MatchCompleted, res.matches[0].Status, "in-flight read yields to the newer snapshot")

	again, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, again[0].Status)
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestGetRereadsAfterConcurrentInvalidate(t *testing.T) {
	id := uuid.New()
	stale := generated(t, id, 4)
	loader := newBlockingLoader(map[uuid.UUID][]bracket.Match{id: stale})
	c := New(loader)

	done := getAsync(context.Background(), c, id)
	<-loader.started

	fresh := clone(stale)
	fresh[1].Status = bracket.MatchCompleted
	loader.set(id, fresh)
	c.Invalidate(id)
	close(loader.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, bracket.MatchCompleted, res.matches[1].Status)
	assert.Equal(t, int32(2), loader.calls.Load())

	cached, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, cached[1].Status)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestGetSharedLoadIgnoresCallerCancellation(t *testing.T) {
	id := uuid.New()
	loader := newBlockingLoader(map[uuid.UUID][]bracket.Match{id: generated(t, id, 4)})
	c := New(loader)

	ctx, cancel := context.WithCancel(context.Background())
	done := getAsync(ctx, c, id)
	<-loader.started
	cancel()
	close(loader.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Len(t, res.matches, 3)

	cached, err := c.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, cached, 3)
	assert.Equal(t, int32(1), loader.calls.Load())
}
