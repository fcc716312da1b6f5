package bracket

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageSetup       Stage = "setup"
	StageGroup       Stage = "group_stage"
	StageElimination Stage = "elimination_stage"
)

type Format string

const (
	FormatElimination      Format = "elimination"
	FormatGroupElimination Format = "group_elimination"
)

func (f Format) Valid() bool {
	return f == FormatElimination || f == FormatGroupElimination
}

type Tournament struct {
	ID      uuid.UUID `db:"id" json:"id"`
	Name    string    `db:"name" json:"name"`
	Format  Format    `db:"format" json:"format"`
	Pairs   bool      `db:"pairs" json:"pairs"`
	Stage   Stage     `db:"stage" json:"stage"`
	Version int       `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Allowed stage moves per format. Regenerating a bracket keeps the tournament
// in elimination_stage, so that edge is a self-loop.
var stageTransitions = map[Format]map[Stage][]Stage{
	FormatElimination: {
		StageSetup:       {StageElimination},
		StageElimination: {StageElimination},
	},
	FormatGroupElimination: {
		StageSetup:       {StageGroup},
		StageGroup:       {StageElimination},
		StageElimination: {StageElimination},
	},
}

// CanTransition reports whether the tournament may move to the given stage.
func (t *Tournament) CanTransition(to Stage) error {
	for _, next := range stageTransitions[t.Format][t.Stage] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s (%s)", ErrInvalidStageTransition, t.Stage, to, t.Format)
}
