package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/cache"
	"github.com/AdamBeresnev/club-brackets/internal/db"
	"github.com/AdamBeresnev/club-brackets/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a SQLite database in a temp dir and applies migrations.
// A file is used instead of :memory: so every pooled connection sees the
// same database.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.InitDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to open test DB")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")
	return database
}

type testServices struct {
	db          *sqlx.DB
	store       *store.TournamentStore
	cache       *cache.MatchCache
	tournaments *TournamentService
	brackets    *BracketService
	matches     *MatchService
}

func newTestServices(t *testing.T, policy bracket.CascadePolicy) *testServices {
	t.Helper()

	database := setupTestDB(t)
	tournamentStore := store.NewTournamentStore(database)
	matchCache := cache.New(tournamentStore)
	guard := NewGuard(database, tournamentStore, matchCache)

	return &testServices{
		db:          database,
		store:       tournamentStore,
		cache:       matchCache,
		tournaments: NewTournamentService(database, tournamentStore, matchCache, guard),
		brackets:    NewBracketService(tournamentStore, guard),
		matches:     NewMatchService(tournamentStore, guard, policy),
	}
}

func (s *testServices) createTournament(t *testing.T, input CreateTournamentInput) (*bracket.Tournament, []bracket.Participant) {
	t.Helper()
	ctx := context.Background()

	tournament, err := s.tournaments.CreateTournament(ctx, input)
	require.NoError(t, err)

	participants, err := s.store.GetParticipants(ctx, tournament.ID)
	require.NoError(t, err)
	return tournament, participants
}

func (s *testServices) createWithPlayers(t *testing.T, n int) (*bracket.Tournament, []bracket.Participant) {
	t.Helper()
	inputs := make([]ParticipantInput, n)
	for i := range inputs {
		inputs[i] = ParticipantInput{Name: "Player " + string(rune('A'+i))}
	}
	return s.createTournament(t, CreateTournamentInput{Name: "Club Night", Participants: inputs})
}

func (s *testServices) storedMatches(t *testing.T, tournamentID uuid.UUID) map[string]bracket.Match {
	t.Helper()
	var matches []bracket.Match
	require.NoError(t, s.db.Select(&matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round_number, match_number", tournamentID))

	byPosition := make(map[string]bracket.Match, len(matches))
	for _, m := range matches {
		byPosition[m.BracketPosition] = m
	}
	return byPosition
}

func (s *testServices) version(t *testing.T, tournamentID uuid.UUID) int {
	t.Helper()
	var v int
	require.NoError(t, s.db.Get(&v, "SELECT version FROM tournaments WHERE id = ?", tournamentID))
	return v
}
