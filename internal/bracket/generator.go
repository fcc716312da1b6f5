package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

// Gets the largest power of 2 that fits in count, so 5, 6 and 7 all give 4
func mainBracketSize(count int) int {
	size := 2
	for size*2 <= count {
		size *= 2
	}
	return size
}

// Generate builds the match skeletons of a single elimination bracket for
// entrants ordered best seed first. Counts that are not a power of two get
// pre-round matches between the lowest seeds in round 1, and the main
// bracket starts in round 2. The result always holds len(entrants)-1 matches
// ordered by round and match number.
func Generate(tournamentID uuid.UUID, entrants []uuid.UUID) ([]Match, error) {
	n := len(entrants)
	if n < 2 {
		return nil, &InsufficientParticipantsError{Count: n}
	}

	seen := make(map[uuid.UUID]struct{}, n)
	for _, id := range entrants {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: %s appears twice", ErrInvalidSeedOrder, id)
		}
		seen[id] = struct{}{}
	}

	targetSize := mainBracketSize(n)
	excess := n - targetSize

	matches := make([]Match, 0, n-1)
	newMatch := func(stage MatchStage, round, number int, p1, p2 *uuid.UUID) {
		m := Match{
			ID:              uuid.New(),
			TournamentID:    tournamentID,
			Stage:           stage,
			RoundNumber:     round,
			MatchNumber:     number,
			BracketPosition: Position(round, number),
			Participant1ID:  p1,
			Participant2ID:  p2,
		}
		m.Apply(m.slotsState())
		matches = append(matches, m)
	}

	round := 1
	if excess > 0 {
		// Adjacent low seeds meet first: the strongest of the tail plays the weakest.
		tail := entrants[n-2*excess:]
		for m := 1; m <= excess; m++ {
			left := tail[excess-m]
			right := tail[excess+m-1]
			newMatch(MatchPreRound, round, m, &left, &right)
		}
		round++
	}

	safe := entrants[:targetSize-excess]
	half := targetSize / 2
	for m := 1; m <= half; m++ {
		var p1, p2 *uuid.UUID
		if i := m - 1; i < len(safe) {
			id := safe[i]
			p1 = &id
		}
		if i := m - 1 + half; i < len(safe) {
			id := safe[i]
			p2 = &id
		}
		newMatch(MatchElimination, round, m, p1, p2)
	}

	for count := half / 2; count >= 1; count /= 2 {
		round++
		for m := 1; m <= count; m++ {
			newMatch(MatchElimination, round, m, nil, nil)
		}
	}

	return matches, nil
}
