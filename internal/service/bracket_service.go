package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BracketService struct {
	store *store.TournamentStore
	guard *Guard
}

func NewBracketService(store *store.TournamentStore, guard *Guard) *BracketService {
	return &BracketService{store: store, guard: guard}
}

// GenerateBracket replaces the tournament's bracket with a fresh one built
// from entrants, best seed first. Entrants are participant IDs, or pair
// group IDs in a pairs tournament. An empty list uses the current seed order.
func (s *BracketService) GenerateBracket(ctx context.Context, tournamentID uuid.UUID, entrants []uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.guard.Mutate(ctx, tournamentID, func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error) {
		if err := t.CanTransition(bracket.StageElimination); err != nil {
			return nil, err
		}

		participants, err := s.store.GetParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return nil, err
		}
		order, err := resolveEntrants(t, participants, entrants)
		if err != nil {
			return nil, err
		}

		matches, err = bracket.Generate(t.ID, order)
		if err != nil {
			return nil, err
		}

		if err := s.store.DeleteMatches(ctx, tx, t.ID); err != nil {
			return nil, err
		}
		if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
			return nil, err
		}
		if err := s.store.RecomputeStandings(ctx, tx, t.ID); err != nil {
			return nil, err
		}
		if err := s.store.UpdateTournamentStageTx(ctx, tx, t.ID, bracket.StageElimination); err != nil {
			return nil, err
		}
		return matches, nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("bracket generated", "tournament_id", tournamentID, "matches", len(matches))
	return matches, nil
}

// RegenerateBracket discards every match and rebuilds the bracket from the
// current seed order.
func (s *BracketService) RegenerateBracket(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	return s.GenerateBracket(ctx, tournamentID, nil)
}

// PreviewBracket returns the bracket entrants would produce without storing
// anything.
func (s *BracketService) PreviewBracket(entrants []uuid.UUID) ([]bracket.Match, error) {
	return bracket.Generate(uuid.Nil, entrants)
}

func resolveEntrants(t *bracket.Tournament, participants []bracket.Participant, entrants []uuid.UUID) ([]uuid.UUID, error) {
	seeded, err := seedOrder(t, participants)
	if err != nil {
		return nil, err
	}
	if len(entrants) == 0 {
		return seeded, nil
	}

	known := make(map[uuid.UUID]bool, len(seeded))
	for _, id := range seeded {
		known[id] = true
	}
	for _, id := range entrants {
		if !known[id] {
			return nil, fmt.Errorf("entrant %s: %w", id, bracket.ErrUnknownEntrant)
		}
	}
	return entrants, nil
}

// seedOrder lists the bracket entrants by seed. Pairs are ranked by the
// best seed among their members.
func seedOrder(t *bracket.Tournament, participants []bracket.Participant) ([]uuid.UUID, error) {
	order := make([]uuid.UUID, 0, len(participants))
	if !t.Pairs {
		for _, p := range participants {
			order = append(order, p.ID)
		}
		return order, nil
	}

	seen := make(map[uuid.UUID]bool)
	for _, p := range participants {
		if p.GroupID == nil {
			return nil, fmt.Errorf("%s: %w", p.Name, bracket.ErrUnpairedParticipant)
		}
		if !seen[*p.GroupID] {
			seen[*p.GroupID] = true
			order = append(order, *p.GroupID)
		}
	}
	return order, nil
}
