package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TournamentID uuid.UUID  `db:"tournament_id" json:"tournament_id"`
	Name         string     `db:"name" json:"name"`
	Seed         int        `db:"seed" json:"seed"`
	GroupID      *uuid.UUID `db:"group_id" json:"group_id,omitempty"`

	// Aggregates derived from completed matches
	Wins   int `db:"wins" json:"wins"`
	Losses int `db:"losses" json:"losses"`
	Points int `db:"points" json:"points"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
