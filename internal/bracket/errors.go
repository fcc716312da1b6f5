package bracket

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidWinner          = errors.New("winner is not part of this match")
	ErrMatchNotReady          = errors.New("match is still awaiting participants")
	ErrMatchCompleted         = errors.New("match is already completed")
	ErrInvalidScore           = errors.New("scores must not be negative")
	ErrInvalidStageTransition = errors.New("invalid stage transition")
	ErrInvalidSeedOrder       = errors.New("seed order must list every participant exactly once")
	ErrUnknownEntrant         = errors.New("entrant does not belong to this tournament")
	ErrUnpairedParticipant    = errors.New("participant has no pair group")
)

// InsufficientParticipantsError is returned when a bracket is requested for
// fewer than two entrants.
type InsufficientParticipantsError struct {
	Count int
}

func (e *InsufficientParticipantsError) Error() string {
	return fmt.Sprintf("a bracket needs at least 2 participants, got %d", e.Count)
}

// ResolutionError means a match or its successor could not be located or
// is in a state advancement cannot reconcile.
type ResolutionError struct {
	MatchID uuid.UUID
	Reason  string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve match %s: %s", e.MatchID, e.Reason)
}

// ConcurrencyConflictError reports that another mutation committed against
// the tournament after it was read. Callers should reload and retry.
type ConcurrencyConflictError struct {
	TournamentID uuid.UUID
	Version      int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("tournament %s was modified concurrently (expected version %d)", e.TournamentID, e.Version)
}

type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
