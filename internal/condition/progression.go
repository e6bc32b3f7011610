package condition

import (
	"fmt"

	"larpcore/internal/common"
	"larpcore/internal/stages"

	"github.com/google/uuid"
)

// Result reports what a progression did.
type Result struct {
	Progressed bool   `json:"progressed"`
	Completed  bool   `json:"completed"`
	Message    string `json:"message"`
}

// NewStageTable builds the lookup table for a loaded condition.
func NewStageTable(c *Condition) (*stages.Table[ConditionStage], error) {
	return stages.NewTable(c.Stages)
}

// Apply creates a fresh instance at stageNumber (1 when zero).
func Apply(characterID uuid.UUID, c *Condition, stageNumber int) (*CharacterCondition, error) {
	table, err := NewStageTable(c)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("%w: condition %q", common.ErrNoStages, c.Name)
	}
	if stageNumber == 0 {
		stageNumber = 1
	}
	stage, ok := table.Lookup(stageNumber)
	if !ok {
		return nil, fmt.Errorf("%w: condition %q has no stage %d", common.ErrInvalidStage, c.Name, stageNumber)
	}

	return &CharacterCondition{
		CharacterID:     characterID,
		ConditionID:     c.ID,
		CurrentStage:    stages.At(stage.StageNumber),
		CurrentDuration: stage.Duration,
	}, nil
}

// Progress ticks one event off the instance. Running out of duration moves to
// the next stage by number, or concludes when there is none. A position that
// is not in the table fails with ErrInvalidStage and leaves inst untouched.
func Progress(inst *CharacterCondition, table *stages.Table[ConditionStage]) (Result, error) {
	current, ok := inst.CurrentStage.Stage()
	if !ok {
		return Result{Message: "condition has already concluded"},
			fmt.Errorf("%w: condition instance %s has concluded", common.ErrInvalidStage, inst.ID)
	}
	if _, ok := table.Lookup(current); !ok {
		return Result{Message: fmt.Sprintf("stage %d no longer exists", current)},
			fmt.Errorf("%w: condition instance %s references missing stage %d", common.ErrInvalidStage, inst.ID, current)
	}

	remaining := inst.CurrentDuration - 1
	if remaining < 0 {
		remaining = 0
	}

	if remaining > 0 {
		inst.CurrentDuration = remaining
		return Result{Progressed: true, Message: eventsRemaining(remaining)}, nil
	}

	if next, ok := table.Next(current); ok {
		inst.CurrentStage = stages.At(next.StageNumber)
		inst.CurrentDuration = next.Duration
		return Result{Progressed: true, Message: fmt.Sprintf("progressed to stage %d", next.StageNumber)}, nil
	}

	inst.CurrentStage = stages.Concluded
	inst.CurrentDuration = 0
	return Result{Progressed: true, Completed: true, Message: "reached its conclusion"}, nil
}

func eventsRemaining(n int) string {
	return fmt.Sprintf("%d events remaining", n)
}
