package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AdamBeresnev/club-brackets/internal/bracket"
	"github.com/google/uuid"
)

// MatchView is a match with its entrants resolved to display names.
type MatchView struct {
	bracket.Match
	Participant1 string `json:"participant_1,omitempty"`
	Participant2 string `json:"participant_2,omitempty"`
	Winner       string `json:"winner,omitempty"`
}

type RoundView struct {
	Number  int         `json:"number"`
	Title   string      `json:"title"`
	Matches []MatchView `json:"matches"`
}

type BracketData struct {
	TournamentID uuid.UUID   `json:"tournament_id"`
	Rounds       []RoundView `json:"rounds"`
	Champion     string      `json:"champion,omitempty"`
}

// PrepareBracketData groups matches by round in play order and names every
// entrant. Pair groups are named after their members in seed order.
func PrepareBracketData(tournamentID uuid.UUID, participants []bracket.Participant, matches []bracket.Match) BracketData {
	names := entrantNames(participants)

	rounds := make(map[int][]bracket.Match)
	var roundNums []int
	for _, m := range matches {
		if _, exists := rounds[m.RoundNumber]; !exists {
			roundNums = append(roundNums, m.RoundNumber)
		}
		rounds[m.RoundNumber] = append(rounds[m.RoundNumber], m)
	}

	sort.Ints(roundNums)
	sortRounds(rounds, roundNums)

	data := BracketData{TournamentID: tournamentID, Rounds: make([]RoundView, 0, len(roundNums))}
	for _, r := range roundNums {
		round := RoundView{Number: r, Title: roundTitle(rounds[r], r, roundNums[len(roundNums)-1])}
		for _, m := range rounds[r] {
			round.Matches = append(round.Matches, MatchView{
				Match:        m,
				Participant1: names.of(m.Participant1ID),
				Participant2: names.of(m.Participant2ID),
				Winner:       names.of(m.WinnerID),
			})
		}
		data.Rounds = append(data.Rounds, round)
	}

	if champion := bracket.New(matches).Champion(); champion != nil {
		data.Champion = names.of(champion)
	}
	return data
}

type nameMap map[uuid.UUID]string

func (n nameMap) of(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	if name, ok := n[*id]; ok {
		return name
	}
	return id.String()
}

func entrantNames(participants []bracket.Participant) nameMap {
	names := make(nameMap, len(participants))
	members := make(map[uuid.UUID][]string)
	for _, p := range participants {
		names[p.ID] = p.Name
		if p.GroupID != nil {
			members[*p.GroupID] = append(members[*p.GroupID], p.Name)
		}
	}
	for group, m := range members {
		names[group] = strings.Join(m, " & ")
	}
	return names
}

func roundTitle(matches []bracket.Match, round, last int) string {
	switch {
	case len(matches) > 0 && matches[0].Stage == bracket.MatchPreRound:
		return "Pre-round"
	case round == last:
		return "Final"
	case round == last-1:
		return "Semifinals"
	case round == last-2:
		return "Quarterfinals"
	}
	return fmt.Sprintf("Round %d", round)
}

func sortRounds(rounds map[int][]bracket.Match, roundNums []int) {
	for _, r := range roundNums {
		sort.Slice(rounds[r], func(i, j int) bool {
			return rounds[r][i].MatchNumber < rounds[r][j].MatchNumber
		})
	}
}
