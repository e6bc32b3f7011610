package research

import (
	"fmt"

	"larpcore/internal/common"
	"larpcore/internal/stages"

	"github.com/google/uuid"
)

// Result reports what a research transition did.
type Result struct {
	Progressed bool   `json:"progressed"`
	Completed  bool   `json:"completed"`
	Message    string `json:"message"`
}

// Definition is a loaded research project with its stage table.
type Definition struct {
	Research *Research
	Table    *stages.Table[ResearchStage]
}

// NewDefinition indexes the stages of a loaded research project.
func NewDefinition(r *Research) (*Definition, error) {
	table, err := stages.NewTable(r.Stages)
	if err != nil {
		return nil, err
	}
	return &Definition{Research: r, Table: table}, nil
}

// StageByID finds a stage of this definition.
func (d *Definition) StageByID(id uuid.UUID) (ResearchStage, bool) {
	return d.Table.Find(func(s ResearchStage) bool { return s.ID == id })
}

// Requirement finds a requirement in any stage of this definition.
func (d *Definition) Requirement(id uuid.UUID) (ResearchStageRequirement, bool) {
	for _, s := range d.Table.Stages() {
		for _, req := range s.Requirements {
			if req.ID == id {
				return req, true
			}
		}
	}
	return ResearchStageRequirement{}, false
}

// =============================================
// 1. ASSIGNMENT
// =============================================

// Assign starts a character on the first stage. existing is the character's
// current instance for this research, if any.
func Assign(characterID uuid.UUID, def *Definition, existing *CharacterResearch) (*CharacterResearch, error) {
	if existing != nil {
		return nil, fmt.Errorf("%w: character %s already researches %q", common.ErrDuplicateAssignment, characterID, def.Research.ProjectName)
	}
	first, ok := def.Table.First()
	if !ok {
		return nil, fmt.Errorf("%w: research %q", common.ErrNoStages, def.Research.ProjectName)
	}

	stageID := first.ID
	return &CharacterResearch{
		CharacterID:    characterID,
		ResearchID:     def.Research.ID,
		CurrentStageID: &stageID,
		Stages:         []CharacterResearchStage{newTrackedStage(first)},
	}, nil
}

// =============================================
// 2. ADVANCE / REGRESS
// =============================================

// Advance completes the current stage and moves to the next one, or finishes
// the project. Requirement amounts are not checked here.
func Advance(inst *CharacterResearch, def *Definition) (Result, error) {
	if inst.CurrentStageID == nil {
		return Result{Message: "research already completed"},
			fmt.Errorf("%w: research %s is already completed", common.ErrInvalidTransition, inst.ID)
	}
	current, ok := def.StageByID(*inst.CurrentStageID)
	if !ok {
		return Result{Message: "current stage no longer exists"},
			fmt.Errorf("%w: research instance %s references missing stage %s", common.ErrInvalidStage, inst.ID, *inst.CurrentStageID)
	}

	tracked := ensureTracked(inst, current)
	tracked.StageCompleted = true

	next, ok := def.Table.Next(current.StageNumber)
	if !ok {
		inst.CurrentStageID = nil
		return Result{Progressed: true, Completed: true, Message: "research completed"}, nil
	}

	ensureTracked(inst, next)
	nextID := next.ID
	inst.CurrentStageID = &nextID
	return Result{Progressed: true, Message: fmt.Sprintf("progressed to stage %d", next.StageNumber)}, nil
}

// Regress undoes Advance: the previous stage becomes current and loses its
// completed flag. On a finished project the last stage is reopened. Regress
// from the first stage does nothing.
func Regress(inst *CharacterResearch, def *Definition) (Result, error) {
	var target ResearchStage
	if inst.CurrentStageID == nil {
		last, ok := def.Table.Last()
		if !ok {
			return Result{Message: "research has no stages"},
				fmt.Errorf("%w: research %q", common.ErrNoStages, def.Research.ProjectName)
		}
		target = last
	} else {
		current, ok := def.StageByID(*inst.CurrentStageID)
		if !ok {
			return Result{Message: "current stage no longer exists"},
				fmt.Errorf("%w: research instance %s references missing stage %s", common.ErrInvalidStage, inst.ID, *inst.CurrentStageID)
		}
		prev, ok := def.Table.Prev(current.StageNumber)
		if !ok {
			return Result{Message: "already at the first stage"}, nil
		}
		target = prev
	}

	tracked := ensureTracked(inst, target)
	tracked.StageCompleted = false
	targetID := target.ID
	inst.CurrentStageID = &targetID
	return Result{Progressed: true, Message: fmt.Sprintf("returned to stage %d", target.StageNumber)}, nil
}

// =============================================
// 3. REQUIREMENT PROGRESS
// =============================================

// UpdateRequirementProgress stores value clamped to [0, amount] and returns
// the stored value.
func UpdateRequirementProgress(inst *CharacterResearch, def *Definition, requirementID uuid.UUID, value int) (int, error) {
	req, ok := def.Requirement(requirementID)
	if !ok {
		return 0, fmt.Errorf("%w: requirement %s is not part of research %q", common.ErrNotFound, requirementID, def.Research.ProjectName)
	}

	stage, _ := def.StageByID(req.StageID)
	tracked := findTracked(inst, stage.ID)
	if tracked == nil {
		return 0, fmt.Errorf("%w: character has not reached the stage of requirement %s", common.ErrNotFound, requirementID)
	}
	syncTracked(tracked, stage)

	for j := range tracked.Requirements {
		row := &tracked.Requirements[j]
		if row.RequirementID == requirementID {
			row.Progress = clamp(value, req.Amount)
			return row.Progress, nil
		}
	}
	return 0, fmt.Errorf("%w: character has no progress row for requirement %s", common.ErrNotFound, requirementID)
}

func clamp(value, amount int) int {
	if value < 0 {
		return 0
	}
	if value > amount {
		return amount
	}
	return value
}

// =============================================
// 4. REQUIREMENT RECONCILIATION
// =============================================

// ReconcilePlan lists the progress-row changes needed after a stage's
// requirement set was edited.
type ReconcilePlan struct {
	Add    []CharacterResearchStageRequirement `json:"add"`
	Remove []CharacterResearchStageRequirement `json:"remove"`
	Clamp  []CharacterResearchStageRequirement `json:"clamp"`
	// Dropped lists requirements that existed before the edit and are gone now.
	Dropped []uuid.UUID `json:"dropped"`

	amounts map[uuid.UUID]int
}

func (p ReconcilePlan) Empty() bool {
	return len(p.Add) == 0 && len(p.Remove) == 0 && len(p.Clamp) == 0
}

// Reconcile adds a zero row for every new requirement, removes rows (with
// their progress) for requirements that are gone and clamps rows whose
// amount shrank below the recorded progress. It never invents progress.
// Duplicate rows for one requirement keep the first and remove the rest.
func Reconcile(oldReqs, newReqs []ResearchStageRequirement, rows []CharacterResearchStageRequirement) ReconcilePlan {
	plan := ReconcilePlan{amounts: make(map[uuid.UUID]int, len(newReqs))}

	for _, req := range newReqs {
		plan.amounts[req.ID] = req.Amount
	}
	for _, req := range oldReqs {
		if _, ok := plan.amounts[req.ID]; !ok {
			plan.Dropped = append(plan.Dropped, req.ID)
		}
	}

	have := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		amount, ok := plan.amounts[row.RequirementID]
		if !ok || have[row.RequirementID] {
			plan.Remove = append(plan.Remove, row)
			continue
		}
		have[row.RequirementID] = true
		if row.Progress > amount {
			row.Progress = amount
			plan.Clamp = append(plan.Clamp, row)
		}
	}

	for _, req := range newReqs {
		if !have[req.ID] {
			have[req.ID] = true
			plan.Add = append(plan.Add, CharacterResearchStageRequirement{RequirementID: req.ID})
		}
	}
	return plan
}

// ApplyPlan applies a plan built by Reconcile to one tracked stage in memory.
func ApplyPlan(stage *CharacterResearchStage, plan ReconcilePlan) {
	kept := make([]CharacterResearchStageRequirement, 0, len(stage.Requirements)+len(plan.Add))
	seen := make(map[uuid.UUID]bool, len(stage.Requirements))
	for _, row := range stage.Requirements {
		amount, ok := plan.amounts[row.RequirementID]
		if !ok || seen[row.RequirementID] {
			continue
		}
		seen[row.RequirementID] = true
		row.Progress = clamp(row.Progress, amount)
		kept = append(kept, row)
	}
	for _, row := range plan.Add {
		row.CharacterResearchStageID = stage.ID
		kept = append(kept, row)
	}
	stage.Requirements = kept
}

// =============================================
// 5. TEACHING
// =============================================

// TeachCheck is the outcome of a teaching eligibility check.
type TeachCheck struct {
	Eligible    bool       `json:"eligible"`
	StageID     *uuid.UUID `json:"stage_id,omitempty"`
	StageNumber int        `json:"stage_number,omitempty"`
	Reason      string     `json:"reason"`
}

// CanTeach decides whether teacher can teach learner their next stage. A
// learner without an instance can only be taught stage 1; otherwise the
// learner's current stage is the one taught. The teacher must have completed
// that stage.
func CanTeach(teacher, learner *CharacterResearch, def *Definition) (TeachCheck, error) {
	var stage ResearchStage
	switch {
	case learner == nil:
		first, ok := def.Table.First()
		if !ok {
			return TeachCheck{Reason: "research has no stages"},
				fmt.Errorf("%w: research %q", common.ErrNoStages, def.Research.ProjectName)
		}
		stage = first
	case learner.CurrentStageID == nil:
		return TeachCheck{Reason: "learner has already completed this research"}, nil
	default:
		current, ok := def.StageByID(*learner.CurrentStageID)
		if !ok {
			return TeachCheck{Reason: "learner's current stage no longer exists"},
				fmt.Errorf("%w: research instance %s references missing stage %s", common.ErrInvalidStage, learner.ID, *learner.CurrentStageID)
		}
		stage = current
	}

	stageID := stage.ID
	check := TeachCheck{StageID: &stageID, StageNumber: stage.StageNumber}
	if teacher == nil {
		check.Reason = "teacher has not started this research"
		return check, nil
	}
	for _, tracked := range teacher.Stages {
		if tracked.StageID == stage.ID && tracked.StageCompleted {
			check.Eligible = true
			check.Reason = fmt.Sprintf("teacher has completed stage %d", stage.StageNumber)
			return check, nil
		}
	}
	check.Reason = fmt.Sprintf("teacher has not completed stage %d", stage.StageNumber)
	return check, nil
}

// Teach passes the learner's next stage on from the teacher. A learner
// without an instance is assigned first. The taught stage is completed and
// the learner advances.
func Teach(teacher, learner *CharacterResearch, learnerCharacterID uuid.UUID, def *Definition) (*CharacterResearch, Result, error) {
	check, err := CanTeach(teacher, learner, def)
	if err != nil {
		return nil, Result{Message: check.Reason}, err
	}
	if !check.Eligible {
		return nil, Result{Message: check.Reason},
			fmt.Errorf("%w: %s", common.ErrInsufficientTeachingProgress, check.Reason)
	}

	if learner == nil {
		learner, err = Assign(learnerCharacterID, def, nil)
		if err != nil {
			return nil, Result{}, err
		}
	}

	res, err := Advance(learner, def)
	if err != nil {
		return nil, res, err
	}
	res.Message = fmt.Sprintf("taught stage %d; %s", check.StageNumber, res.Message)
	return learner, res, nil
}

// =============================================
// 6. HELPERS
// =============================================

func newTrackedStage(stage ResearchStage) CharacterResearchStage {
	tracked := CharacterResearchStage{StageID: stage.ID}
	for _, req := range stage.Requirements {
		tracked.Requirements = append(tracked.Requirements, CharacterResearchStageRequirement{RequirementID: req.ID})
	}
	return tracked
}

// ensureTracked returns the tracking row for stage, creating it with zero
// progress when the character visits the stage for the first time. A stage
// visited before is brought in line with its current requirement set.
func ensureTracked(inst *CharacterResearch, stage ResearchStage) *CharacterResearchStage {
	if tracked := findTracked(inst, stage.ID); tracked != nil {
		syncTracked(tracked, stage)
		return tracked
	}
	inst.Stages = append(inst.Stages, newTrackedStage(stage))
	return &inst.Stages[len(inst.Stages)-1]
}

func findTracked(inst *CharacterResearch, stageID uuid.UUID) *CharacterResearchStage {
	for i := range inst.Stages {
		if inst.Stages[i].StageID == stageID {
			return &inst.Stages[i]
		}
	}
	return nil
}

// syncTracked reconciles the rows of a tracked stage against the stage's
// requirements as they are now. Rows for requirements edited away while the
// character was elsewhere are dropped, new requirements start at zero.
func syncTracked(tracked *CharacterResearchStage, stage ResearchStage) {
	plan := Reconcile(stage.Requirements, stage.Requirements, tracked.Requirements)
	if plan.Empty() {
		return
	}
	ApplyPlan(tracked, plan)
}

// CompletedStages returns the ids of completed stages.
func CompletedStages(inst *CharacterResearch) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool)
	for _, s := range inst.Stages {
		if s.StageCompleted {
			out[s.StageID] = true
		}
	}
	return out
}
