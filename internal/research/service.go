package research

import (
	"errors"
	"fmt"
	"log"
	"time"

	"larpcore/internal/audit"
	"larpcore/internal/common"
	"larpcore/internal/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// =============================================
// 1. SERVICE STRUCTURE
// =============================================

type Service struct {
	db      *gorm.DB
	metrics *metrics.Recorder
}

func NewService(db *gorm.DB, rec *metrics.Recorder) *Service {
	return &Service{db: db, metrics: rec}
}

// =============================================
// 2. ASSIGNMENT
// =============================================

// AssignResearch starts a character on the first stage of a project
func (s *Service) AssignResearch(actorID uuid.UUID, researchID uuid.UUID, characterID uuid.UUID) (inst *CharacterResearch, err error) {
	defer func(start time.Time) { s.metrics.Observe("assign_research", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		def, err := s.loadDefinition(tx, researchID)
		if err != nil {
			return err
		}

		existing, err := s.findInstance(tx, characterID, researchID, false)
		if err != nil {
			return err
		}

		created, err := Assign(characterID, def, existing)
		if err != nil {
			return err
		}
		if err := tx.Create(created).Error; err != nil {
			return common.TranslateDBError(err, "character research")
		}

		inst = created
		s.metrics.Transition("research", "assigned")
		return audit.Record(tx, actorID, "research.assign", audit.SubjectResearch, created.ID, common.JSONB{
			"character_id": characterID,
			"research":     def.Research.PublicID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🔬 [RESEARCH] Character %s assigned to research %s", characterID, researchID)
	return inst, nil
}

// =============================================
// 3. ADVANCE / REGRESS
// =============================================

// AdvanceResearch completes the current stage of an instance
func (s *Service) AdvanceResearch(actorID uuid.UUID, instanceID uuid.UUID) (resp *TransitionResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("advance_research", start, err) }(time.Now())
	return s.transition(actorID, instanceID, "research.advance", Advance)
}

// RegressResearch moves an instance back by one stage
func (s *Service) RegressResearch(actorID uuid.UUID, instanceID uuid.UUID) (resp *TransitionResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("regress_research", start, err) }(time.Now())
	return s.transition(actorID, instanceID, "research.regress", Regress)
}

func (s *Service) transition(actorID uuid.UUID, instanceID uuid.UUID, action string, op func(*CharacterResearch, *Definition) (Result, error)) (*TransitionResponse, error) {
	var result Result
	var inst *CharacterResearch
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockInstance(tx, instanceID)
		if err != nil {
			return err
		}
		def, err := s.loadDefinition(tx, locked.ResearchID)
		if err != nil {
			return err
		}

		from := locked.CurrentStageID
		version := locked.Version
		result, err = op(locked, def)
		if err != nil {
			return err
		}
		if !result.Progressed {
			inst = locked
			return nil
		}

		if err := s.persist(tx, locked, version); err != nil {
			return err
		}
		inst = locked

		s.metrics.Transition("research", transitionLabel(result))
		return audit.Record(tx, actorID, action, audit.SubjectResearch, locked.ID, common.JSONB{
			"from_stage_id": from,
			"to_stage_id":   locked.CurrentStageID,
			"message":       result.Message,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidStage) {
			log.Printf("❌ [RESEARCH] Instance %s references an invalid stage: %v", instanceID, err)
		}
		return &TransitionResponse{Success: false, Result: result}, err
	}
	return &TransitionResponse{Success: true, Result: result, Research: inst}, nil
}

// =============================================
// 4. REQUIREMENT PROGRESS
// =============================================

// UpdateRequirementProgress records a character's progress towards one requirement
func (s *Service) UpdateRequirementProgress(actorID uuid.UUID, instanceID uuid.UUID, requirementID uuid.UUID, value int) (stored int, err error) {
	defer func(start time.Time) { s.metrics.Observe("update_requirement_progress", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockInstance(tx, instanceID)
		if err != nil {
			return err
		}
		def, err := s.loadDefinition(tx, locked.ResearchID)
		if err != nil {
			return err
		}

		version := locked.Version
		stored, err = UpdateRequirementProgress(locked, def, requirementID, value)
		if err != nil {
			return err
		}
		if err := s.persist(tx, locked, version); err != nil {
			return err
		}

		return audit.Record(tx, actorID, "research.requirement_progress", audit.SubjectResearch, locked.ID, common.JSONB{
			"requirement_id": requirementID,
			"requested":      value,
			"stored":         stored,
		})
	})
	return stored, err
}

// =============================================
// 5. DEFINITION EDITS
// =============================================

// ReplaceStageRequirements swaps a stage's requirement set and reconciles
// the progress rows of every character currently on that stage. Characters
// who visited the stage earlier are reconciled when they re-enter it.
func (s *Service) ReplaceStageRequirements(actorID uuid.UUID, stageID uuid.UUID, input []RequirementInput) (stage *ResearchStage, err error) {
	defer func(start time.Time) { s.metrics.Observe("replace_stage_requirements", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var locked ResearchStage
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Requirements").
			Where("id = ?", stageID).
			First(&locked).Error; err != nil {
			return common.TranslateDBError(err, "research stage")
		}
		oldReqs := locked.Requirements

		newReqs, err := s.writeRequirements(tx, &locked, input)
		if err != nil {
			return err
		}
		dropped := Reconcile(oldReqs, newReqs, nil).Dropped

		var inFlight []CharacterResearch
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("current_stage_id = ?", stageID).
			Find(&inFlight).Error; err != nil {
			return fmt.Errorf("failed to load in-flight research: %w", err)
		}

		affected := 0
		for _, inst := range inFlight {
			var tracked CharacterResearchStage
			if err := tx.Preload("Requirements").
				Where("character_research_id = ? AND stage_id = ?", inst.ID, stageID).
				First(&tracked).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					tracked = CharacterResearchStage{CharacterResearchID: inst.ID, StageID: stageID}
					if err := tx.Create(&tracked).Error; err != nil {
						return fmt.Errorf("failed to create missing stage tracking: %w", err)
					}
				} else {
					return fmt.Errorf("failed to load stage tracking: %w", err)
				}
			}

			plan := Reconcile(oldReqs, newReqs, tracked.Requirements)
			if plan.Empty() {
				continue
			}
			if err := s.applyPlan(tx, &tracked, plan); err != nil {
				return err
			}
			if err := tx.Model(&CharacterResearch{}).
				Where("id = ?", inst.ID).
				Update("version", gorm.Expr("version + 1")).Error; err != nil {
				return fmt.Errorf("failed to bump research version: %w", err)
			}
			affected++
		}

		locked.Requirements = newReqs
		stage = &locked
		log.Printf("🔬 [RESEARCH] Stage %s requirements replaced, %d characters reconciled", stageID, affected)
		return audit.Record(tx, actorID, "research.replace_requirements", audit.SubjectResearchStage, stageID, common.JSONB{
			"requirements":          len(newReqs),
			"dropped_requirements":  dropped,
			"characters_reconciled": affected,
		})
	})
	if err != nil {
		return nil, err
	}
	return stage, nil
}

func (s *Service) writeRequirements(tx *gorm.DB, stage *ResearchStage, input []RequirementInput) ([]ResearchStageRequirement, error) {
	existing := make(map[uuid.UUID]bool, len(stage.Requirements))
	for _, r := range stage.Requirements {
		existing[r.ID] = true
	}

	keep := make(map[uuid.UUID]bool)
	out := make([]ResearchStageRequirement, 0, len(input))
	for _, in := range input {
		if err := validateRequirement(in); err != nil {
			return nil, err
		}
		req := ResearchStageRequirement{
			StageID:            stage.ID,
			Type:               in.Type,
			Target:             in.Target,
			Amount:             in.Amount,
			SampleTag:          in.SampleTag,
			RequiresResearched: in.RequiresResearched,
		}
		if in.ID != nil && existing[*in.ID] {
			req.ID = *in.ID
			keep[req.ID] = true
			if err := tx.Save(&req).Error; err != nil {
				return nil, fmt.Errorf("failed to update requirement: %w", err)
			}
		} else if err := tx.Create(&req).Error; err != nil {
			return nil, fmt.Errorf("failed to create requirement: %w", err)
		}
		out = append(out, req)
	}

	for id := range existing {
		if keep[id] {
			continue
		}
		if err := tx.Where("id = ?", id).Delete(&ResearchStageRequirement{}).Error; err != nil {
			return nil, fmt.Errorf("failed to delete requirement: %w", err)
		}
	}
	return out, nil
}

func validateRequirement(in RequirementInput) error {
	if in.Amount <= 0 {
		return fmt.Errorf("%w: requirement amount must be positive", common.ErrInvalidInput)
	}
	switch in.Type {
	case RequirementScience, RequirementItem, RequirementExotic:
		if in.SampleTag != nil || in.RequiresResearched {
			return fmt.Errorf("%w: sample options only apply to sample requirements", common.ErrInvalidInput)
		}
	case RequirementSample:
	default:
		return fmt.Errorf("%w: unknown requirement type %q", common.ErrInvalidInput, in.Type)
	}
	return nil
}

func (s *Service) applyPlan(tx *gorm.DB, tracked *CharacterResearchStage, plan ReconcilePlan) error {
	for _, row := range plan.Remove {
		if err := tx.Where("id = ?", row.ID).Delete(&CharacterResearchStageRequirement{}).Error; err != nil {
			return fmt.Errorf("failed to remove requirement progress: %w", err)
		}
	}
	for _, row := range plan.Clamp {
		if err := tx.Model(&CharacterResearchStageRequirement{}).
			Where("id = ?", row.ID).
			Update("progress", row.Progress).Error; err != nil {
			return fmt.Errorf("failed to clamp requirement progress: %w", err)
		}
	}
	for _, row := range plan.Add {
		row.CharacterResearchStageID = tracked.ID
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to add requirement progress: %w", err)
		}
	}
	ApplyPlan(tracked, plan)
	return nil
}

// =============================================
// 6. TEACHING
// =============================================

// CheckTeaching reports whether teacher can teach learner their next stage
func (s *Service) CheckTeaching(researchID uuid.UUID, teacherID uuid.UUID, learnerID uuid.UUID) (TeachCheck, error) {
	def, err := s.loadDefinition(s.db, researchID)
	if err != nil {
		return TeachCheck{}, err
	}
	teacher, err := s.findInstance(s.db, teacherID, researchID, false)
	if err != nil {
		return TeachCheck{}, err
	}
	learner, err := s.findInstance(s.db, learnerID, researchID, false)
	if err != nil {
		return TeachCheck{}, err
	}
	return CanTeach(teacher, learner, def)
}

// TeachResearch passes the learner's next stage on from the teacher
func (s *Service) TeachResearch(actorID uuid.UUID, researchID uuid.UUID, req *TeachRequest) (resp *TransitionResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("teach_research", start, err) }(time.Now())

	if req.TeacherID == req.LearnerID {
		return nil, fmt.Errorf("%w: a character cannot teach themselves", common.ErrInvalidInput)
	}

	var result Result
	var learner *CharacterResearch
	err = s.db.Transaction(func(tx *gorm.DB) error {
		def, err := s.loadDefinition(tx, researchID)
		if err != nil {
			return err
		}

		// Lock in a fixed order so two opposite teach calls cannot deadlock
		first, second := req.TeacherID, req.LearnerID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := map[uuid.UUID]*CharacterResearch{}
		for _, characterID := range []uuid.UUID{first, second} {
			inst, err := s.findInstance(tx, characterID, researchID, true)
			if err != nil {
				return err
			}
			locked[characterID] = inst
		}

		teacher, current := locked[req.TeacherID], locked[req.LearnerID]
		version := 0
		if current != nil {
			version = current.Version
		}

		taught, res, err := Teach(teacher, current, req.LearnerID, def)
		result = res
		if err != nil {
			return err
		}

		if current == nil {
			if err := tx.Create(taught).Error; err != nil {
				return common.TranslateDBError(err, "character research")
			}
		} else if err := s.persist(tx, taught, version); err != nil {
			return err
		}
		learner = taught

		s.metrics.Transition("research", "taught")
		return audit.Record(tx, actorID, "research.teach", audit.SubjectResearch, taught.ID, common.JSONB{
			"teacher_id": req.TeacherID,
			"learner_id": req.LearnerID,
			"message":    res.Message,
		})
	})
	if err != nil {
		return &TransitionResponse{Success: false, Result: result}, err
	}
	return &TransitionResponse{Success: true, Result: result, Research: learner}, nil
}

// =============================================
// 7. QUERIES
// =============================================

// GetInstance loads one character research instance with its tracking rows
func (s *Service) GetInstance(instanceID uuid.UUID) (*CharacterResearch, error) {
	var inst CharacterResearch
	if err := s.db.Preload("Stages.Requirements").
		Where("id = ?", instanceID).
		First(&inst).Error; err != nil {
		return nil, common.TranslateDBError(err, "character research")
	}
	return &inst, nil
}

// ListCharacterResearch returns every research a character is assigned to
func (s *Service) ListCharacterResearch(characterID uuid.UUID) ([]CharacterResearch, error) {
	var list []CharacterResearch
	if err := s.db.Preload("Research").
		Preload("Stages.Requirements").
		Where("character_id = ?", characterID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list character research: %w", err)
	}
	return list, nil
}

// =============================================
// 8. HELPERS
// =============================================

func (s *Service) loadDefinition(tx *gorm.DB, researchID uuid.UUID) (*Definition, error) {
	var r Research
	if err := tx.Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("stage_number ASC")
	}).Preload("Stages.Requirements").
		Where("id = ?", researchID).
		First(&r).Error; err != nil {
		return nil, common.TranslateDBError(err, "research")
	}
	return NewDefinition(&r)
}

func (s *Service) lockInstance(tx *gorm.DB, instanceID uuid.UUID) (*CharacterResearch, error) {
	var inst CharacterResearch
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", instanceID).
		First(&inst).Error; err != nil {
		return nil, common.TranslateDBError(err, "character research")
	}
	if err := tx.Preload("Requirements").
		Where("character_research_id = ?", inst.ID).
		Find(&inst.Stages).Error; err != nil {
		return nil, fmt.Errorf("failed to load research tracking: %w", err)
	}
	return &inst, nil
}

// findInstance returns nil without error when the character has no instance.
func (s *Service) findInstance(tx *gorm.DB, characterID uuid.UUID, researchID uuid.UUID, lock bool) (*CharacterResearch, error) {
	q := tx
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var inst CharacterResearch
	if err := q.Where("character_id = ? AND research_id = ?", characterID, researchID).
		First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load character research: %w", err)
	}
	if err := tx.Preload("Requirements").
		Where("character_research_id = ?", inst.ID).
		Find(&inst.Stages).Error; err != nil {
		return nil, fmt.Errorf("failed to load research tracking: %w", err)
	}
	return &inst, nil
}

// persist writes the tracking rows and the current stage, guarded by version.
func (s *Service) persist(tx *gorm.DB, inst *CharacterResearch, version int) error {
	for i := range inst.Stages {
		st := &inst.Stages[i]
		if st.ID == uuid.Nil {
			st.CharacterResearchID = inst.ID
			if err := tx.Create(st).Error; err != nil {
				return fmt.Errorf("failed to create stage tracking: %w", err)
			}
			continue
		}
		if err := tx.Model(&CharacterResearchStage{}).
			Where("id = ?", st.ID).
			Update("stage_completed", st.StageCompleted).Error; err != nil {
			return fmt.Errorf("failed to update stage tracking: %w", err)
		}
		if err := s.deleteStaleRows(tx, st); err != nil {
			return err
		}
		for j := range st.Requirements {
			row := &st.Requirements[j]
			if row.ID == uuid.Nil {
				row.CharacterResearchStageID = st.ID
				if err := tx.Create(row).Error; err != nil {
					return fmt.Errorf("failed to create requirement progress: %w", err)
				}
				continue
			}
			if err := tx.Model(&CharacterResearchStageRequirement{}).
				Where("id = ?", row.ID).
				Update("progress", row.Progress).Error; err != nil {
				return fmt.Errorf("failed to update requirement progress: %w", err)
			}
		}
	}

	res := tx.Model(&CharacterResearch{}).
		Where("id = ? AND version = ?", inst.ID, version).
		Updates(map[string]interface{}{
			"current_stage_id": inst.CurrentStageID,
			"version":          version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update character research: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: character research %s", common.ErrConflict, inst.ID)
	}
	inst.Version = version + 1
	return nil
}

// deleteStaleRows removes stored progress rows that are no longer part of a
// tracked stage in memory.
func (s *Service) deleteStaleRows(tx *gorm.DB, st *CharacterResearchStage) error {
	keep := make([]uuid.UUID, 0, len(st.Requirements))
	for _, row := range st.Requirements {
		if row.ID != uuid.Nil {
			keep = append(keep, row.ID)
		}
	}

	q := tx.Where("character_research_stage_id = ?", st.ID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	if err := q.Delete(&CharacterResearchStageRequirement{}).Error; err != nil {
		return fmt.Errorf("failed to remove stale requirement progress: %w", err)
	}
	return nil
}

func transitionLabel(r Result) string {
	if r.Completed {
		return "completed"
	}
	return "stage_changed"
}
