package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

// wrap turns driver errors into the bracket error taxonomy.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, bracket.ErrNotFound)
	}
	return &bracket.StoreError{Op: op, Err: err}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, name, format, pairs, stage, version)
        VALUES (:id, :name, :format, :pairs, :stage, :version)`, tournament)
	return wrap("create tournament", err)
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := s.db.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, wrap("get tournament", err)
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := tx.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, wrap("get tournament", err)
	}
	return &tournament, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	tournaments := []bracket.Tournament{}
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments ORDER BY created_at DESC, name ASC")
	return tournaments, wrap("list tournaments", err)
}

func (s *TournamentStore) UpdateTournamentStageTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, stage bracket.Stage) error {
	_, err := tx.ExecContext(ctx, "UPDATE tournaments SET stage = ? WHERE id = ?", stage, id)
	return wrap("update tournament stage", err)
}

// BumpVersion advances the tournament version if it still equals expected.
// Every mutation calls it last, so two writers that read the same version
// cannot both commit.
func (s *TournamentStore) BumpVersion(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, expected int) error {
	res, err := tx.ExecContext(ctx, "UPDATE tournaments SET version = version + 1 WHERE id = ? AND version = ?", id, expected)
	if err != nil {
		return wrap("bump tournament version", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("bump tournament version", err)
	}
	if n == 0 {
		return &bracket.ConcurrencyConflictError{TournamentID: id, Version: expected}
	}
	return nil
}

func (s *TournamentStore) CreateParticipants(ctx context.Context, tx *sqlx.Tx, participants []bracket.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO participants (id, tournament_id, name, seed, group_id)
            VALUES (:id, :tournament_id, :name, :seed, :group_id)`, participants)
	return wrap("create participants", err)
}

func (s *TournamentStore) GetParticipants(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	participants := []bracket.Participant{}
	err := s.db.SelectContext(ctx, &participants, "SELECT * FROM participants WHERE tournament_id = ? ORDER BY seed ASC", tournamentID)
	return participants, wrap("get participants", err)
}

func (s *TournamentStore) GetParticipantsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	participants := []bracket.Participant{}
	err := tx.SelectContext(ctx, &participants, "SELECT * FROM participants WHERE tournament_id = ? ORDER BY seed ASC", tournamentID)
	return participants, wrap("get participants", err)
}

func (s *TournamentStore) DeleteParticipants(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM participants WHERE tournament_id = ? AND id IN (?)", tournamentID, ids)
	if err != nil {
		return wrap("delete participants", err)
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	return wrap("delete participants", err)
}

// UpdateSeeds rewrites seed and group of each participant.
func (s *TournamentStore) UpdateSeeds(ctx context.Context, tx *sqlx.Tx, participants []bracket.Participant) error {
	for _, p := range participants {
		if _, err := tx.NamedExecContext(ctx, `UPDATE participants SET seed = :seed, group_id = :group_id
			WHERE id = :id AND tournament_id = :tournament_id`, p); err != nil {
			return wrap("update participant seed", err)
		}
	}
	return nil
}

// RecomputeStandings derives wins, losses and points of every participant
// from the completed matches. A participant in a pair is credited with the
// results of its group.
func (s *TournamentStore) RecomputeStandings(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `UPDATE participants SET
		wins = (
			SELECT COUNT(*) FROM matches m
			WHERE m.tournament_id = participants.tournament_id AND m.status = 'completed'
			AND m.winner_id IN (participants.id, participants.group_id)
		),
		losses = (
			SELECT COUNT(*) FROM matches m
			WHERE m.tournament_id = participants.tournament_id AND m.status = 'completed'
			AND (m.participant_1_id IN (participants.id, participants.group_id)
				OR m.participant_2_id IN (participants.id, participants.group_id))
			AND m.winner_id NOT IN (participants.id, COALESCE(participants.group_id, participants.id))
		),
		points = (
			SELECT COALESCE(SUM(CASE
				WHEN m.participant_1_id IN (participants.id, participants.group_id) THEN m.score_1
				ELSE m.score_2 END), 0)
			FROM matches m
			WHERE m.tournament_id = participants.tournament_id AND m.status = 'completed'
			AND (m.participant_1_id IN (participants.id, participants.group_id)
				OR m.participant_2_id IN (participants.id, participants.group_id))
		)
		WHERE tournament_id = ?`, tournamentID)
	return wrap("recompute standings", err)
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, stage, round_number, match_number, bracket_position,
		participant_1_id, participant_2_id, score_1, score_2, winner_id, status, completed_at)
		VALUES (:id, :tournament_id, :stage, :round_number, :match_number, :bracket_position,
		:participant_1_id, :participant_2_id, :score_1, :score_2, :winner_id, :status, :completed_at)`, matches)
	return wrap("create matches", err)
}

// UpdateMatches writes the mutable columns of each match inside tx.
func (s *TournamentStore) UpdateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	for _, m := range matches {
		res, err := tx.NamedExecContext(ctx, `UPDATE matches SET
			participant_1_id = :participant_1_id, participant_2_id = :participant_2_id,
			score_1 = :score_1, score_2 = :score_2, winner_id = :winner_id,
			status = :status, completed_at = :completed_at
			WHERE id = :id AND tournament_id = :tournament_id`, m)
		if err != nil {
			return wrap("update match", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return wrap("update match", err)
		} else if n == 0 {
			return fmt.Errorf("update match %s: %w", m.ID, bracket.ErrNotFound)
		}
	}
	return nil
}

func (s *TournamentStore) DeleteMatches(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID)
	return wrap("delete matches", err)
}

func (s *TournamentStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	if err != nil {
		return nil, wrap("get match", err)
	}
	return &match, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	matches := []bracket.Match{}
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round_number ASC, match_number ASC", tournamentID)
	return matches, wrap("get matches", err)
}

func (s *TournamentStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Match, error) {
	matches := []bracket.Match{}
	err := tx.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round_number ASC, match_number ASC", tournamentID)
	return matches, wrap("get matches", err)
}

// GetRound returns the matches of one round in match order.
func (s *TournamentStore) GetRound(ctx context.Context, tournamentID uuid.UUID, round int) ([]bracket.Match, error) {
	matches := []bracket.Match{}
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? AND round_number = ? ORDER BY match_number ASC", tournamentID, round)
	return matches, wrap("get round", err)
}
