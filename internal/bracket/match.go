package bracket

import (
	"fmt"
	"time"

	"github.com/AdamBeresnev/club-brackets/internal/utils"
	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchAwaiting  MatchStatus = "awaiting"
	MatchScheduled MatchStatus = "scheduled"
	MatchCompleted MatchStatus = "completed"
)

type MatchStage string

const (
	MatchPreRound    MatchStage = "pre_round"
	MatchElimination MatchStage = "elimination"
)

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// Position in the bracket
	Stage           MatchStage `db:"stage" json:"stage"`
	RoundNumber     int        `db:"round_number" json:"round_number"`
	MatchNumber     int        `db:"match_number" json:"match_number"`
	BracketPosition string     `db:"bracket_position" json:"bracket_position"`

	Participant1ID *uuid.UUID `db:"participant_1_id" json:"participant_1_id"`
	Participant2ID *uuid.UUID `db:"participant_2_id" json:"participant_2_id"`

	Score1   *int        `db:"score_1" json:"score_1"`
	Score2   *int        `db:"score_2" json:"score_2"`
	WinnerID *uuid.UUID  `db:"winner_id" json:"winner_id"`
	Status   MatchStatus `db:"status" json:"status"`

	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

func Position(round, match int) string {
	return fmt.Sprintf("R%dM%d", round, match)
}

// Slot returns the occupant of slot 1 or 2.
func (m *Match) Slot(slot int) *uuid.UUID {
	if slot == 1 {
		return m.Participant1ID
	}
	return m.Participant2ID
}

// SlotOf returns the slot holding id, or 0 when id is not in the match.
func (m *Match) SlotOf(id uuid.UUID) int {
	switch {
	case m.Participant1ID != nil && *m.Participant1ID == id:
		return 1
	case m.Participant2ID != nil && *m.Participant2ID == id:
		return 2
	}
	return 0
}

func (m *Match) Has(id uuid.UUID) bool {
	return m.SlotOf(id) != 0
}

func (m *Match) occupants() int {
	n := 0
	if m.Participant1ID != nil {
		n++
	}
	if m.Participant2ID != nil {
		n++
	}
	return n
}

// Equal compares the persisted fields of two matches.
func (m Match) Equal(o Match) bool {
	return m.ID == o.ID &&
		m.TournamentID == o.TournamentID &&
		m.Stage == o.Stage &&
		m.RoundNumber == o.RoundNumber &&
		m.MatchNumber == o.MatchNumber &&
		m.BracketPosition == o.BracketPosition &&
		utils.PtrEqual(m.Participant1ID, o.Participant1ID) &&
		utils.PtrEqual(m.Participant2ID, o.Participant2ID) &&
		utils.PtrEqual(m.Score1, o.Score1) &&
		utils.PtrEqual(m.Score2, o.Score2) &&
		utils.PtrEqual(m.WinnerID, o.WinnerID) &&
		m.Status == o.Status
}

// MatchState is the lifecycle of a match as a closed set of variants.
// Empty, OneSeeded, Ready and Completed are the only implementations.
type MatchState interface {
	Status() MatchStatus
	isMatchState()
}

type Empty struct{}

type OneSeeded struct {
	Slot        int
	Participant uuid.UUID
}

type Ready struct {
	Participant1 uuid.UUID
	Participant2 uuid.UUID
}

type Completed struct {
	Participant1 uuid.UUID
	Participant2 uuid.UUID
	Winner       uuid.UUID
	Score1       int
	Score2       int
	At           time.Time
}

func (Empty) Status() MatchStatus     { return MatchAwaiting }
func (OneSeeded) Status() MatchStatus { return MatchAwaiting }
func (Ready) Status() MatchStatus     { return MatchScheduled }
func (Completed) Status() MatchStatus { return MatchCompleted }

func (Empty) isMatchState()     {}
func (OneSeeded) isMatchState() {}
func (Ready) isMatchState()     {}
func (Completed) isMatchState() {}

// State decodes the nullable columns into a variant and rejects combinations
// that cannot occur in a consistent bracket.
func (m *Match) State() (MatchState, error) {
	p1, p2 := m.Participant1ID, m.Participant2ID

	if m.WinnerID != nil || m.Status == MatchCompleted {
		if p1 == nil || p2 == nil {
			return nil, m.inconsistent("winner recorded without both participants")
		}
		if m.WinnerID == nil || m.Score1 == nil || m.Score2 == nil {
			return nil, m.inconsistent("completed without winner and scores")
		}
		if !m.Has(*m.WinnerID) {
			return nil, m.inconsistent("winner is not a participant")
		}
		if m.Status != MatchCompleted {
			return nil, m.inconsistent("winner recorded on a match that is not completed")
		}
		c := Completed{Participant1: *p1, Participant2: *p2, Winner: *m.WinnerID, Score1: *m.Score1, Score2: *m.Score2}
		if m.CompletedAt != nil {
			c.At = *m.CompletedAt
		}
		return c, nil
	}

	var s MatchState
	switch {
	case p1 != nil && p2 != nil:
		if *p1 == *p2 {
			return nil, m.inconsistent("participant occupies both slots")
		}
		s = Ready{Participant1: *p1, Participant2: *p2}
	case p1 != nil:
		s = OneSeeded{Slot: 1, Participant: *p1}
	case p2 != nil:
		s = OneSeeded{Slot: 2, Participant: *p2}
	default:
		s = Empty{}
	}
	if m.Status != s.Status() {
		return nil, m.inconsistent(fmt.Sprintf("status %s does not match slots", m.Status))
	}
	return s, nil
}

// Apply writes a state back onto the row, clearing every field the variant
// does not carry.
func (m *Match) Apply(s MatchState) {
	m.Participant1ID, m.Participant2ID = nil, nil
	m.Score1, m.Score2, m.WinnerID, m.CompletedAt = nil, nil, nil, nil

	switch s := s.(type) {
	case OneSeeded:
		p := s.Participant
		if s.Slot == 1 {
			m.Participant1ID = &p
		} else {
			m.Participant2ID = &p
		}
	case Ready:
		p1, p2 := s.Participant1, s.Participant2
		m.Participant1ID, m.Participant2ID = &p1, &p2
	case Completed:
		p1, p2, w := s.Participant1, s.Participant2, s.Winner
		s1, s2, at := s.Score1, s.Score2, s.At
		m.Participant1ID, m.Participant2ID, m.WinnerID = &p1, &p2, &w
		m.Score1, m.Score2, m.CompletedAt = &s1, &s2, &at
	}
	m.Status = s.Status()
}

// slotsState derives the open state of the match from its current slots.
func (m *Match) slotsState() MatchState {
	p1, p2 := m.Participant1ID, m.Participant2ID
	switch {
	case p1 != nil && p2 != nil:
		return Ready{Participant1: *p1, Participant2: *p2}
	case p1 != nil:
		return OneSeeded{Slot: 1, Participant: *p1}
	case p2 != nil:
		return OneSeeded{Slot: 2, Participant: *p2}
	}
	return Empty{}
}

func (m *Match) inconsistent(reason string) error {
	return &ResolutionError{MatchID: m.ID, Reason: reason}
}
