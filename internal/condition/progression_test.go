package condition

import (
	"errors"
	"testing"

	"larpcore/internal/common"
	"larpcore/internal/stages"

	"github.com/google/uuid"
)

func twoStageCondition() *Condition {
	id := uuid.New()
	return &Condition{
		ID:   id,
		Name: "Bone Rot",
		Stages: []ConditionStage{
			{ConditionID: id, StageNumber: 2, Duration: 3, RPEffect: "cannot run"},
			{ConditionID: id, StageNumber: 1, Duration: 2, RPEffect: "limp"},
		},
	}
}

func mustTable(t *testing.T, c *Condition) *stages.Table[ConditionStage] {
	t.Helper()
	table, err := NewStageTable(c)
	if err != nil {
		t.Fatalf("stage table: %v", err)
	}
	return table
}

func TestProgressTwoStageScenario(t *testing.T) {
	cond := twoStageCondition()
	table := mustTable(t, cond)

	inst, err := Apply(uuid.New(), cond, 0)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if inst.CurrentStage != stages.At(1) || inst.CurrentDuration != 2 {
		t.Fatalf("expected stage 1 duration 2, got %v/%d", inst.CurrentStage, inst.CurrentDuration)
	}

	steps := []struct {
		stage     stages.Position
		duration  int
		completed bool
		message   string
	}{
		{stages.At(1), 1, false, "1 events remaining"},
		{stages.At(2), 3, false, "progressed to stage 2"},
		{stages.At(2), 2, false, "2 events remaining"},
		{stages.At(2), 1, false, "1 events remaining"},
		{stages.Concluded, 0, true, "reached its conclusion"},
	}

	for i, step := range steps {
		res, err := Progress(inst, table)
		if err != nil {
			t.Fatalf("step %d: progress: %v", i, err)
		}
		if !res.Progressed {
			t.Fatalf("step %d: expected progressed", i)
		}
		if res.Completed != step.completed {
			t.Fatalf("step %d: expected completed=%v, got %v", i, step.completed, res.Completed)
		}
		if res.Message != step.message {
			t.Fatalf("step %d: expected message %q, got %q", i, step.message, res.Message)
		}
		if inst.CurrentStage != step.stage || inst.CurrentDuration != step.duration {
			t.Fatalf("step %d: expected %v/%d, got %v/%d", i, step.stage, step.duration, inst.CurrentStage, inst.CurrentDuration)
		}
	}
}

func TestProgressConcludesAfterSumOfDurations(t *testing.T) {
	cond := &Condition{ID: uuid.New(), Name: "Fever", Stages: []ConditionStage{
		{StageNumber: 1, Duration: 1},
		{StageNumber: 2, Duration: 4},
		{StageNumber: 3, Duration: 2},
	}}
	table := mustTable(t, cond)
	inst, err := Apply(uuid.New(), cond, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	total := 1 + 4 + 2
	for i := 1; i <= total; i++ {
		res, err := Progress(inst, table)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if inst.CurrentDuration < 0 {
			t.Fatalf("call %d: negative duration %d", i, inst.CurrentDuration)
		}
		if res.Completed != (i == total) {
			t.Fatalf("call %d: completed=%v, expected conclusion only at call %d", i, res.Completed, total)
		}
	}
	if !inst.CurrentStage.IsConcluded() {
		t.Fatalf("expected concluded, got %v", inst.CurrentStage)
	}
}

func TestProgressInvalidStageLeavesInstanceUntouched(t *testing.T) {
	cond := twoStageCondition()
	table := mustTable(t, cond)

	cases := map[string]*CharacterCondition{
		"missing stage": {ID: uuid.New(), CurrentStage: stages.At(7), CurrentDuration: 3},
		"concluded":     {ID: uuid.New(), CurrentStage: stages.Concluded, CurrentDuration: 0},
	}
	for name, inst := range cases {
		t.Run(name, func(t *testing.T) {
			before := *inst
			res, err := Progress(inst, table)
			if !errors.Is(err, common.ErrInvalidStage) {
				t.Fatalf("expected ErrInvalidStage, got %v", err)
			}
			if res.Progressed || res.Completed {
				t.Fatalf("expected no progress, got %+v", res)
			}
			if inst.CurrentStage != before.CurrentStage || inst.CurrentDuration != before.CurrentDuration {
				t.Fatalf("instance changed: %+v -> %+v", before, *inst)
			}
		})
	}
}

func TestProgressDoesNotSkipGaps(t *testing.T) {
	cond := &Condition{ID: uuid.New(), Name: "Gap", Stages: []ConditionStage{
		{StageNumber: 1, Duration: 1},
		{StageNumber: 3, Duration: 5},
	}}
	table := mustTable(t, cond)
	inst := &CharacterCondition{CurrentStage: stages.At(1), CurrentDuration: 1}

	res, err := Progress(inst, table)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !res.Completed || !inst.CurrentStage.IsConcluded() {
		t.Fatalf("expected conclusion when stage 2 is missing, got %+v %v", res, inst.CurrentStage)
	}
}

func TestProgressZeroDurationMovesOn(t *testing.T) {
	cond := twoStageCondition()
	table := mustTable(t, cond)
	inst := &CharacterCondition{CurrentStage: stages.At(1), CurrentDuration: 0}

	if _, err := Progress(inst, table); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if inst.CurrentStage != stages.At(2) || inst.CurrentDuration != 3 {
		t.Fatalf("expected stage 2 duration 3, got %v/%d", inst.CurrentStage, inst.CurrentDuration)
	}
}

func TestApplyErrors(t *testing.T) {
	empty := &Condition{ID: uuid.New(), Name: "Empty"}
	if _, err := Apply(uuid.New(), empty, 0); !errors.Is(err, common.ErrNoStages) {
		t.Fatalf("expected ErrNoStages, got %v", err)
	}

	cond := twoStageCondition()
	if _, err := Apply(uuid.New(), cond, 5); !errors.Is(err, common.ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}

	inst, err := Apply(uuid.New(), cond, 2)
	if err != nil {
		t.Fatalf("apply at stage 2: %v", err)
	}
	if inst.CurrentStage != stages.At(2) || inst.CurrentDuration != 3 {
		t.Fatalf("expected stage 2 duration 3, got %v/%d", inst.CurrentStage, inst.CurrentDuration)
	}
}
