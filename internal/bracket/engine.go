package bracket

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CascadePolicy selects which downstream matches an edited result invalidates.
type CascadePolicy string

const (
	// CascadeDescendants resets only the chain of matches the old winner
	// advanced through.
	CascadeDescendants CascadePolicy = "descendants"
	// CascadeLaterRounds resets every completed match in any later round.
	CascadeLaterRounds CascadePolicy = "later_rounds"
)

func (p CascadePolicy) Valid() bool {
	return p == CascadeDescendants || p == CascadeLaterRounds
}

type Result struct {
	Score1   int       `json:"score_1"`
	Score2   int       `json:"score_2"`
	WinnerID uuid.UUID `json:"winner_id"`
}

// Bracket is an in-memory working copy of one tournament's matches.
// Record and Edit mutate the copy and remember every row they touched, so
// the caller can persist Changed() in a single transaction or drop the copy
// when an error is returned.
type Bracket struct {
	matches []Match
	index   map[uuid.UUID]int
	rounds  map[int][]int
	changed map[uuid.UUID]struct{}

	policy CascadePolicy
	now    func() time.Time
}

type Option func(*Bracket)

func WithCascadePolicy(p CascadePolicy) Option {
	return func(b *Bracket) { b.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bracket) { b.now = now }
}

func New(matches []Match, opts ...Option) *Bracket {
	b := &Bracket{
		matches: make([]Match, len(matches)),
		index:   make(map[uuid.UUID]int, len(matches)),
		rounds:  make(map[int][]int),
		changed: make(map[uuid.UUID]struct{}),
		policy:  CascadeDescendants,
		now:     func() time.Time { return time.Now().UTC() },
	}
	copy(b.matches, matches)
	sort.SliceStable(b.matches, func(i, j int) bool {
		if b.matches[i].RoundNumber != b.matches[j].RoundNumber {
			return b.matches[i].RoundNumber < b.matches[j].RoundNumber
		}
		return b.matches[i].MatchNumber < b.matches[j].MatchNumber
	})
	for i, m := range b.matches {
		b.index[m.ID] = i
		b.rounds[m.RoundNumber] = append(b.rounds[m.RoundNumber], i)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Matches returns a copy of every match ordered by round and match number.
func (b *Bracket) Matches() []Match {
	out := make([]Match, len(b.matches))
	copy(out, b.matches)
	return out
}

func (b *Bracket) Match(id uuid.UUID) (Match, bool) {
	i, ok := b.index[id]
	if !ok {
		return Match{}, false
	}
	return b.matches[i], true
}

// Changed returns the matches modified since the bracket was loaded.
func (b *Bracket) Changed() []Match {
	out := make([]Match, 0, len(b.changed))
	for i, m := range b.matches {
		if _, ok := b.changed[m.ID]; ok {
			out = append(out, b.matches[i])
		}
	}
	return out
}

func (b *Bracket) FinalRound() int {
	if len(b.matches) == 0 {
		return 0
	}
	return b.matches[len(b.matches)-1].RoundNumber
}

// Champion is the winner of the final, or nil while it is undecided.
func (b *Bracket) Champion() *uuid.UUID {
	final := b.rounds[b.FinalRound()]
	if len(final) != 1 {
		return nil
	}
	return b.matches[final[0]].WinnerID
}

// Record completes a scheduled match and advances its winner one round.
func (b *Bracket) Record(matchID uuid.UUID, r Result) error {
	i, ok := b.index[matchID]
	if !ok {
		return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	m := &b.matches[i]

	state, err := m.State()
	if err != nil {
		return err
	}
	ready, ok := state.(Ready)
	if !ok {
		if _, done := state.(Completed); done {
			return ErrMatchCompleted
		}
		return ErrMatchNotReady
	}

	if err := b.complete(i, ready, r); err != nil {
		return err
	}
	return b.advance(i)
}

// Edit overwrites the result of a match. A changed winner invalidates the
// downstream matches chosen by the cascade policy before the new winner is
// advanced. Editing an open match behaves like Record.
func (b *Bracket) Edit(matchID uuid.UUID, r Result) error {
	i, ok := b.index[matchID]
	if !ok {
		return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}

	state, err := b.matches[i].State()
	if err != nil {
		return err
	}
	prev, ok := state.(Completed)
	if !ok {
		return b.Record(matchID, r)
	}
	if prev.Winner == r.WinnerID && prev.Score1 == r.Score1 && prev.Score2 == r.Score2 {
		return nil
	}

	ready := Ready{Participant1: prev.Participant1, Participant2: prev.Participant2}
	if err := b.complete(i, ready, r); err != nil {
		return err
	}
	if prev.Winner == r.WinnerID {
		return nil
	}

	switch b.policy {
	case CascadeLaterRounds:
		b.resetLaterRounds(b.matches[i].RoundNumber, prev.Winner)
	default:
		b.resetDescendants(b.matches[i].RoundNumber, prev.Winner)
	}
	return b.advance(i)
}

func (b *Bracket) complete(i int, ready Ready, r Result) error {
	if r.Score1 < 0 || r.Score2 < 0 {
		return ErrInvalidScore
	}
	if r.WinnerID != ready.Participant1 && r.WinnerID != ready.Participant2 {
		return ErrInvalidWinner
	}
	b.touch(i, func(m *Match) {
		m.Apply(Completed{
			Participant1: ready.Participant1,
			Participant2: ready.Participant2,
			Winner:       r.WinnerID,
			Score1:       r.Score1,
			Score2:       r.Score2,
			At:           b.now(),
		})
	})
	return nil
}

// advance places the winner of match i into the following round. Only that
// round is written.
func (b *Bracket) advance(i int) error {
	m := b.matches[i]
	winner := *m.WinnerID

	next := b.rounds[m.RoundNumber+1]
	if len(next) == 0 {
		return nil
	}

	// A winner can only hold one seat in the next round.
	for _, j := range next {
		if slot := b.matches[j].SlotOf(winner); slot != 0 {
			b.clearSlot(j, slot)
		}
	}

	if b.seededTopUp(m) {
		return b.topUp(m, winner)
	}

	number := (m.MatchNumber + 1) / 2
	slot := 2
	if m.MatchNumber%2 == 1 {
		slot = 1
	}

	j, ok := b.find(m.RoundNumber+1, number)
	if !ok {
		return &ResolutionError{MatchID: m.ID, Reason: fmt.Sprintf("successor %s does not exist", Position(m.RoundNumber+1, number))}
	}
	if cur := b.matches[j].Slot(slot); cur != nil {
		return &ResolutionError{MatchID: m.ID, Reason: fmt.Sprintf("slot %d of %s is held by %s", slot, b.matches[j].BracketPosition, *cur)}
	}
	b.fillSlot(j, slot, winner)
	return nil
}

// seededTopUp reports whether the round after m keeps seats reserved for
// seeds that skipped m's round. Those seats never move; winners only fill
// the gaps next to them.
func (b *Bracket) seededTopUp(m Match) bool {
	if m.Stage == MatchPreRound {
		return true
	}

	played := make(map[uuid.UUID]bool)
	for _, j := range b.rounds[m.RoundNumber] {
		for _, p := range []*uuid.UUID{b.matches[j].Participant1ID, b.matches[j].Participant2ID} {
			if p != nil {
				played[*p] = true
			}
		}
	}
	for _, j := range b.rounds[m.RoundNumber+1] {
		n := b.matches[j]
		if n.occupants() != 1 {
			continue
		}
		occupant := n.Participant1ID
		if occupant == nil {
			occupant = n.Participant2ID
		}
		if !played[*occupant] {
			return true
		}
	}
	return false
}

// topUp walks the empty seats of the next round in match order and fills
// them with the current round's unplaced winners in match order.
func (b *Bracket) topUp(m Match, winner uuid.UUID) error {
	next := b.rounds[m.RoundNumber+1]

	seated := make(map[uuid.UUID]bool)
	for _, j := range next {
		for _, p := range []*uuid.UUID{b.matches[j].Participant1ID, b.matches[j].Participant2ID} {
			if p != nil {
				seated[*p] = true
			}
		}
	}

	var pending []uuid.UUID
	for _, j := range b.rounds[m.RoundNumber] {
		if w := b.matches[j].WinnerID; w != nil && !seated[*w] {
			pending = append(pending, *w)
		}
	}

	cursor := 0
	for _, j := range next {
		for slot := 1; slot <= 2 && cursor < len(pending); slot++ {
			if b.matches[j].Slot(slot) != nil {
				continue
			}
			b.fillSlot(j, slot, pending[cursor])
			cursor++
		}
	}

	for _, j := range next {
		if b.matches[j].Has(winner) {
			return nil
		}
	}
	return &ResolutionError{MatchID: m.ID, Reason: fmt.Sprintf("round %d has no open slot for the winner", m.RoundNumber+1)}
}

// resetDescendants follows the old winner forward: each match it reached
// loses that seat, and a completed one is reset and its own winner is
// followed in turn.
func (b *Bracket) resetDescendants(round int, oldWinner uuid.UUID) {
	w := oldWinner
	for r := round + 1; ; r++ {
		j := -1
		for _, k := range b.rounds[r] {
			if b.matches[k].Has(w) {
				j = k
				break
			}
		}
		if j < 0 {
			return
		}

		var followed *uuid.UUID
		if id := b.matches[j].WinnerID; id != nil {
			v := *id
			followed = &v
		}
		b.clearSlot(j, b.matches[j].SlotOf(w))
		if followed == nil {
			return
		}
		w = *followed
	}
}

// resetLaterRounds resets every completed match after round and removes the
// old winner and the winners of those reset matches from the rounds they
// had advanced into.
func (b *Bracket) resetLaterRounds(round int, oldWinner uuid.UUID) {
	carry := map[uuid.UUID]bool{oldWinner: true}
	for r := round + 1; r <= b.FinalRound(); r++ {
		nextCarry := make(map[uuid.UUID]bool)
		for _, j := range b.rounds[r] {
			if w := b.matches[j].WinnerID; w != nil {
				nextCarry[*w] = true
			}
			b.touch(j, func(n *Match) {
				if n.Participant1ID != nil && carry[*n.Participant1ID] {
					n.Participant1ID = nil
				}
				if n.Participant2ID != nil && carry[*n.Participant2ID] {
					n.Participant2ID = nil
				}
				n.Apply(n.slotsState())
			})
		}
		carry = nextCarry
	}
}

func (b *Bracket) clearSlot(j, slot int) {
	b.touch(j, func(n *Match) {
		if slot == 1 {
			n.Participant1ID = nil
		} else {
			n.Participant2ID = nil
		}
		n.Apply(n.slotsState())
	})
}

// fillSlot seats a participant and recomputes the status from the slots,
// which also drops any stale score or winner.
func (b *Bracket) fillSlot(j, slot int, id uuid.UUID) {
	b.touch(j, func(n *Match) {
		p := id
		if slot == 1 {
			n.Participant1ID = &p
		} else {
			n.Participant2ID = &p
		}
		n.Apply(n.slotsState())
	})
}

func (b *Bracket) touch(j int, fn func(*Match)) {
	before := b.matches[j]
	fn(&b.matches[j])
	if !before.Equal(b.matches[j]) {
		b.changed[b.matches[j].ID] = struct{}{}
	}
}

func (b *Bracket) find(round, number int) (int, bool) {
	for _, j := range b.rounds[round] {
		if b.matches[j].MatchNumber == number {
			return j, true
		}
	}
	return 0, false
}
