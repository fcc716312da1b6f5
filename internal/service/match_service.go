package service

import (
	"context"
	"log/slog"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	store  *store.TournamentStore
	guard  *Guard
	policy bracket.CascadePolicy
}

func NewMatchService(store *store.TournamentStore, guard *Guard, policy bracket.CascadePolicy) *MatchService {
	return &MatchService{store: store, guard: guard, policy: policy}
}

// Changes reports every match a result operation wrote.
type Changes struct {
	TournamentID uuid.UUID       `json:"tournament_id"`
	Matches      []bracket.Match `json:"matches"`
	Champion     *uuid.UUID      `json:"champion,omitempty"`
}

func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	return s.store.GetMatch(ctx, id)
}

func (s *MatchService) GetRound(ctx context.Context, tournamentID uuid.UUID, round int) ([]bracket.Match, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.store.GetRound(ctx, tournamentID, round)
}

// RecordResult completes a scheduled match and advances the winner into the
// next round.
func (s *MatchService) RecordResult(ctx context.Context, matchID uuid.UUID, result bracket.Result) (*Changes, error) {
	changes, err := s.apply(ctx, matchID, func(b *bracket.Bracket) error {
		return b.Record(matchID, result)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("result recorded", "match_id", matchID, "tournament_id", changes.TournamentID, "changed", len(changes.Matches))
	return changes, nil
}

// EditResult corrects the result of a match. When the winner changes, the
// downstream matches that depended on the old winner are reset before the
// new winner is advanced.
func (s *MatchService) EditResult(ctx context.Context, matchID uuid.UUID, result bracket.Result) (*Changes, error) {
	changes, err := s.apply(ctx, matchID, func(b *bracket.Bracket) error {
		return b.Edit(matchID, result)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("result edited", "match_id", matchID, "tournament_id", changes.TournamentID, "changed", len(changes.Matches), "policy", s.policy)
	return changes, nil
}

// SyncWithStore refreshes the cached bracket from the store and returns how
// many matches differed.
func (s *MatchService) SyncWithStore(ctx context.Context, tournamentID uuid.UUID) (int, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return 0, err
	}
	diff, err := s.guard.Sync(ctx, tournamentID)
	if err != nil {
		return 0, err
	}
	if diff > 0 {
		slog.Warn("match cache was stale", "tournament_id", tournamentID, "diff", diff)
	}
	return diff, nil
}

// apply runs op against an in-memory copy of the match's bracket and writes
// back only the rows op changed, together with the standings.
func (s *MatchService) apply(ctx context.Context, matchID uuid.UUID, op func(*bracket.Bracket) error) (*Changes, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	changes := &Changes{TournamentID: match.TournamentID}
	err = s.guard.Mutate(ctx, match.TournamentID, func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error) {
		matches, err := s.store.GetMatchesTx(ctx, tx, t.ID)
		if err != nil {
			return nil, err
		}

		b := bracket.New(matches, bracket.WithCascadePolicy(s.policy))
		if err := op(b); err != nil {
			return nil, err
		}

		changes.Matches = b.Changed()
		changes.Champion = b.Champion()
		if err := s.store.UpdateMatches(ctx, tx, changes.Matches); err != nil {
			return nil, err
		}
		if err := s.store.RecomputeStandings(ctx, tx, t.ID); err != nil {
			return nil, err
		}
		return b.Matches(), nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}
