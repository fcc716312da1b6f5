package service

import (
	"fmt"
	"strings"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/AdamBeresnev/club-brackets/internal/utils"
	"github.com/google/uuid"
)

const maxNameLength = 50

type ParticipantInput struct {
	Name string `json:"name"`
	// Participants sharing a pair label in one request form a doubles pair.
	Pair string `json:"pair,omitempty"`
}

// ParseRoster reads one participant per line in seed order. A line may
// carry a pair label after a '|', as in "Ana | team-1". Blank lines are
// skipped.
func ParseRoster(text string) []ParticipantInput {
	var inputs []ParticipantInput
	for _, line := range strings.Split(text, "\n") {
		name, pair, _ := strings.Cut(line, "|")
		n := utils.StringOrNil(name)
		if n == nil {
			continue
		}
		inputs = append(inputs, ParticipantInput{Name: *n, Pair: utils.OrZero(utils.StringOrNil(pair))})
	}
	return inputs
}

// newParticipants builds rows for inputs with seeds continuing after
// lastSeed. Pair labels become fresh group IDs.
func newParticipants(tournamentID uuid.UUID, lastSeed int, inputs []ParticipantInput) ([]bracket.Participant, error) {
	groups := make(map[string]uuid.UUID)
	participants := make([]bracket.Participant, 0, len(inputs))

	for i, input := range inputs {
		name := utils.StringOrNil(input.Name)
		if name == nil {
			return nil, fmt.Errorf("%w: participant %d has no name", bracket.ErrInvalidInput, i+1)
		}
		if len(*name) > maxNameLength {
			return nil, fmt.Errorf("%w: participant name '%s' exceeds %d characters", bracket.ErrInvalidInput, *name, maxNameLength)
		}

		p := bracket.Participant{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Name:         *name,
			Seed:         lastSeed + i + 1,
		}
		if label := utils.StringOrNil(input.Pair); label != nil {
			group, ok := groups[*label]
			if !ok {
				group = uuid.New()
				groups[*label] = group
			}
			p.GroupID = utils.Ptr(group)
		}
		participants = append(participants, p)
	}
	return participants, nil
}
