package bracket

import (
	"errors"
	"testing"

	"github.com/AdamBeresnev/club-brackets/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntrants(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func slots(m Match) [2]uuid.UUID {
	return [2]uuid.UUID{utils.OrZero(m.Participant1ID), utils.OrZero(m.Participant2ID)}
}

func TestMainBracketSize(t *testing.T) {
	testCases := []struct {
		count    int
		expected int
	}{
		{count: 2, expected: 2},
		{count: 3, expected: 2},
		{count: 4, expected: 4},
		{count: 5, expected: 4},
		{count: 7, expected: 4},
		{count: 8, expected: 8},
		{count: 17, expected: 16},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, mainBracketSize(tc.count), "count %d", tc.count)
	}
}

func TestGenerateMatchCounts(t *testing.T) {
	for n := 2; n <= 40; n++ {
		matches, err := Generate(uuid.New(), newEntrants(n))
		require.NoError(t, err)

		assert.Len(t, matches, n-1, "total matches for %d entrants", n)

		preRound := 0
		for _, m := range matches {
			if m.Stage == MatchPreRound {
				preRound++
				assert.Equal(t, 1, m.RoundNumber)
			}
			assert.Equal(t, Position(m.RoundNumber, m.MatchNumber), m.BracketPosition)
			_, err := m.State()
			assert.NoError(t, err, "%s for %d entrants", m.BracketPosition, n)
		}
		assert.Equal(t, n-mainBracketSize(n), preRound, "pre-round matches for %d entrants", n)
	}
}

func TestGenerateLayouts(t *testing.T) {
	e := newEntrants(8)
	a, b, c, d, f, g, h, i := e[0], e[1], e[2], e[3], e[4], e[5], e[6], e[7]
	var tbd uuid.UUID

	type expectedMatch struct {
		position string
		stage    MatchStage
		slots    [2]uuid.UUID
		status   MatchStatus
	}

	testCases := []struct {
		name     string
		entrants []uuid.UUID
		expected []expectedMatch
	}{
		{
			name:     "2 entrants",
			entrants: e[:2],
			expected: []expectedMatch{
				{"R1M1", MatchElimination, [2]uuid.UUID{a, b}, MatchScheduled},
			},
		},
		{
			name:     "3 entrants",
			entrants: e[:3],
			expected: []expectedMatch{
				{"R1M1", MatchPreRound, [2]uuid.UUID{b, c}, MatchScheduled},
				{"R2M1", MatchElimination, [2]uuid.UUID{a, tbd}, MatchAwaiting},
			},
		},
		{
			name:     "5 entrants",
			entrants: e[:5],
			expected: []expectedMatch{
				{"R1M1", MatchPreRound, [2]uuid.UUID{d, f}, MatchScheduled},
				{"R2M1", MatchElimination, [2]uuid.UUID{a, c}, MatchScheduled},
				{"R2M2", MatchElimination, [2]uuid.UUID{b, tbd}, MatchAwaiting},
				{"R3M1", MatchElimination, [2]uuid.UUID{tbd, tbd}, MatchAwaiting},
			},
		},
		{
			name:     "6 entrants",
			entrants: e[:6],
			expected: []expectedMatch{
				{"R1M1", MatchPreRound, [2]uuid.UUID{d, f}, MatchScheduled},
				{"R1M2", MatchPreRound, [2]uuid.UUID{c, g}, MatchScheduled},
				{"R2M1", MatchElimination, [2]uuid.UUID{a, tbd}, MatchAwaiting},
				{"R2M2", MatchElimination, [2]uuid.UUID{b, tbd}, MatchAwaiting},
				{"R3M1", MatchElimination, [2]uuid.UUID{tbd, tbd}, MatchAwaiting},
			},
		},
		{
			name:     "7 entrants",
			entrants: e[:7],
			expected: []expectedMatch{
				{"R1M1", MatchPreRound, [2]uuid.UUID{d, f}, MatchScheduled},
				{"R1M2", MatchPreRound, [2]uuid.UUID{c, g}, MatchScheduled},
				{"R1M3", MatchPreRound, [2]uuid.UUID{b, h}, MatchScheduled},
				{"R2M1", MatchElimination, [2]uuid.UUID{a, tbd}, MatchAwaiting},
				{"R2M2", MatchElimination, [2]uuid.UUID{tbd, tbd}, MatchAwaiting},
				{"R3M1", MatchElimination, [2]uuid.UUID{tbd, tbd}, MatchAwaiting},
			},
		},
		{
			name:     "8 entrants",
			entrants: e,
			expected: []expectedMatch{
				{"R1M1", MatchElimination, [2]uuid.UUID{a, f}, MatchScheduled},
				{"R1M2", MatchElimination, [2]uuid.UUID{b, g}, MatchScheduled},
				{"R1M3", MatchElimination, [2]uuid.UUID{c, h}, MatchScheduled},
				{"R1M4", MatchElimination, [2]uuid.UUID{d, i}, MatchScheduled},
				{"R2M1", MatchElimination, [2]uuid.UUID{tbd, tbd}, MatchAwaiting},
				{"R2M2", MatchElimination, [2]uuid.UUID{tbd, tbd}, MatchAwaiting},
				{"R3M1", MatchElimination, [2]uuid.UUID{tbd, tbd}, MatchAwaiting},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tournamentID := uuid.New()
			matches, err := Generate(tournamentID, tc.entrants)
			require.NoError(t, err)
			require.Len(t, matches, len(tc.expected))

			for k, want := range tc.expected {
				got := matches[k]
				assert.Equal(t, want.position, got.BracketPosition)
				assert.Equal(t, want.stage, got.Stage, want.position)
				assert.Equal(t, want.slots, slots(got), want.position)
				assert.Equal(t, want.status, got.Status, want.position)
				assert.Equal(t, tournamentID, got.TournamentID)
				assert.Nil(t, got.WinnerID)
			}
		})
	}
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	t.Run("fewer than two entrants", func(t *testing.T) {
		for _, n := range []int{0, 1} {
			_, err := Generate(uuid.New(), newEntrants(n))

			var insufficient *InsufficientParticipantsError
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, n, insufficient.Count)
		}
	})

	t.Run("duplicate entrant", func(t *testing.T) {
		e := newEntrants(3)
		_, err := Generate(uuid.New(), []uuid.UUID{e[0], e[1], e[0]})
		assert.ErrorIs(t, err, ErrInvalidSeedOrder)
	})
}
