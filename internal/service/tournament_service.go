package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/cache"
	"github.com/AdamBeresnev/club-brackets/internal/store"
	"github.com/AdamBeresnev/club-brackets/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	cache *cache.MatchCache
	guard *Guard
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, cache *cache.MatchCache, guard *Guard) *TournamentService {
	return &TournamentService{db: db, store: store, cache: cache, guard: guard}
}

type CreateTournamentInput struct {
	Name         string             `json:"name"`
	Format       bracket.Format     `json:"format,omitempty"`
	Pairs        bool               `json:"pairs,omitempty"`
	Participants []ParticipantInput `json:"participants,omitempty"`
	// Roster is an alternative to Participants: one name per line.
	Roster string `json:"roster,omitempty"`
}

type TournamentData struct {
	Tournament   *bracket.Tournament   `json:"tournament"`
	Participants []bracket.Participant `json:"participants"`
	Matches      []bracket.Match       `json:"matches"`
	Champion     *uuid.UUID            `json:"champion,omitempty"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*bracket.Tournament, error) {
	name := utils.StringOrNil(input.Name)
	if name == nil {
		return nil, fmt.Errorf("%w: tournament name is required", bracket.ErrInvalidInput)
	}
	format := input.Format
	if format == "" {
		format = bracket.FormatElimination
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: unknown format %q", bracket.ErrInvalidInput, format)
	}

	inputs := input.Participants
	if len(inputs) == 0 {
		inputs = ParseRoster(input.Roster)
	}

	tournament := bracket.Tournament{
		ID:     uuid.New(),
		Name:   *name,
		Format: format,
		Pairs:  input.Pairs,
		Stage:  bracket.StageSetup,
	}
	participants, err := newParticipants(tournament.ID, 0, inputs)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &bracket.StoreError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	if err := s.store.CreateTournament(ctx, tx, &tournament); err != nil {
		return nil, err
	}
	if err := s.store.CreateParticipants(ctx, tx, participants); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, &bracket.StoreError{Op: "commit", Err: err}
	}

	slog.Info("tournament created", "tournament_id", tournament.ID, "participants", len(participants))
	return s.store.GetTournament(ctx, tournament.ID)
}

func (s *TournamentService) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	return s.store.ListTournaments(ctx)
}

// GetTournamentData loads the tournament, its participants and its bracket
// concurrently. Matches come through the cache.
func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	var data TournamentData

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.store.GetTournament(gctx, id)
		data.Tournament = t
		return err
	})
	g.Go(func() error {
		p, err := s.store.GetParticipants(gctx, id)
		data.Participants = p
		return err
	})
	g.Go(func() error {
		m, err := s.cache.Get(gctx, id)
		data.Matches = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.Champion = bracket.New(data.Matches).Champion()
	return &data, nil
}

// AddParticipants appends participants after the current lowest seed.
// An existing bracket is left alone until it is regenerated.
func (s *TournamentService) AddParticipants(ctx context.Context, tournamentID uuid.UUID, inputs []ParticipantInput) ([]bracket.Participant, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no participants given", bracket.ErrInvalidInput)
	}

	var added []bracket.Participant
	err := s.guard.Mutate(ctx, tournamentID, func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error) {
		existing, err := s.store.GetParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return nil, err
		}
		lastSeed := 0
		if len(existing) > 0 {
			lastSeed = existing[len(existing)-1].Seed
		}

		added, err = newParticipants(t.ID, lastSeed, inputs)
		if err != nil {
			return nil, err
		}
		return nil, s.store.CreateParticipants(ctx, tx, added)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("participants added", "tournament_id", tournamentID, "count", len(added))
	return added, nil
}

// RemoveParticipants deletes participants and closes the gaps they leave in
// the seed order.
func (s *TournamentService) RemoveParticipants(ctx context.Context, tournamentID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no participants given", bracket.ErrInvalidInput)
	}

	err := s.guard.Mutate(ctx, tournamentID, func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error) {
		existing, err := s.store.GetParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return nil, err
		}

		remove := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			remove[id] = true
		}
		var remaining []bracket.Participant
		for _, p := range existing {
			if remove[p.ID] {
				delete(remove, p.ID)
				continue
			}
			remaining = append(remaining, p)
		}
		for id := range remove {
			return nil, fmt.Errorf("participant %s: %w", id, bracket.ErrUnknownEntrant)
		}

		if err := s.store.DeleteParticipants(ctx, tx, t.ID, ids); err != nil {
			return nil, err
		}
		return nil, s.store.UpdateSeeds(ctx, tx, reseed(remaining))
	})
	if err != nil {
		return err
	}

	slog.Info("participants removed", "tournament_id", tournamentID, "count", len(ids))
	return nil
}

// ReorderParticipants rewrites seeds so order[0] becomes seed 1. The order
// must name every participant exactly once.
func (s *TournamentService) ReorderParticipants(ctx context.Context, tournamentID uuid.UUID, order []uuid.UUID) error {
	return s.guard.Mutate(ctx, tournamentID, func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error) {
		existing, err := s.store.GetParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return nil, err
		}
		if len(order) != len(existing) {
			return nil, fmt.Errorf("%w: got %d of %d participants", bracket.ErrInvalidSeedOrder, len(order), len(existing))
		}

		byID := make(map[uuid.UUID]bracket.Participant, len(existing))
		for _, p := range existing {
			byID[p.ID] = p
		}
		reordered := make([]bracket.Participant, 0, len(order))
		for _, id := range order {
			p, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: %s is unknown or repeated", bracket.ErrInvalidSeedOrder, id)
			}
			delete(byID, id)
			reordered = append(reordered, p)
		}
		return nil, s.store.UpdateSeeds(ctx, tx, reseed(reordered))
	})
}

// PairParticipants puts the given participants into a new doubles group and
// returns its ID. Pair groups are the bracket entrants of a pairs tournament.
func (s *TournamentService) PairParticipants(ctx context.Context, tournamentID uuid.UUID, ids []uuid.UUID) (uuid.UUID, error) {
	if len(ids) < 2 {
		return uuid.Nil, fmt.Errorf("%w: a pair needs at least two participants", bracket.ErrInvalidInput)
	}

	group := uuid.New()
	err := s.guard.Mutate(ctx, tournamentID, func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error) {
		existing, err := s.store.GetParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return nil, err
		}
		byID := make(map[uuid.UUID]bracket.Participant, len(existing))
		for _, p := range existing {
			byID[p.ID] = p
		}

		var paired []bracket.Participant
		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			p, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("participant %s: %w", id, bracket.ErrUnknownEntrant)
			}
			if seen[id] {
				return nil, fmt.Errorf("%w: %s is listed twice", bracket.ErrInvalidInput, p.Name)
			}
			seen[id] = true
			// Regrouping would strand the old partner in a group of one.
			if p.GroupID != nil {
				return nil, fmt.Errorf("%w: %s is already paired", bracket.ErrInvalidInput, p.Name)
			}
			p.GroupID = utils.Ptr(group)
			paired = append(paired, p)
		}
		return nil, s.store.UpdateSeeds(ctx, tx, paired)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return group, nil
}

// StartGroupStage moves a two-stage tournament out of setup. Group play
// itself is tracked outside this service.
func (s *TournamentService) StartGroupStage(ctx context.Context, tournamentID uuid.UUID) error {
	return s.guard.Mutate(ctx, tournamentID, func(tx *sqlx.Tx, t *bracket.Tournament) ([]bracket.Match, error) {
		if err := t.CanTransition(bracket.StageGroup); err != nil {
			return nil, err
		}
		return nil, s.store.UpdateTournamentStageTx(ctx, tx, t.ID, bracket.StageGroup)
	})
}

// reseed numbers participants 1..n in slice order.
func reseed(participants []bracket.Participant) []bracket.Participant {
	for i := range participants {
		participants[i].Seed = i + 1
	}
	return participants
}
