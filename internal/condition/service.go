package condition

import (
	"errors"
	"fmt"
	"log"
	"time"

	"larpcore/internal/audit"
	"larpcore/internal/common"
	"larpcore/internal/metrics"
	"larpcore/internal/stages"

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
// 2. APPLY / REMOVE
// =============================================

// ApplyCondition applies a condition to a character
func (s *Service) ApplyCondition(actorID uuid.UUID, req *ApplyConditionRequest) (inst *CharacterCondition, err error) {
	defer func(start time.Time) { s.metrics.Observe("apply_condition", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		cond, err := s.loadCondition(tx, req.ConditionID)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&CharacterCondition{}).
			Where("character_id = ? AND condition_id = ?", req.CharacterID, req.ConditionID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing condition: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("%w: character already has condition %q", common.ErrDuplicateAssignment, cond.Name)
		}

		created, err := Apply(req.CharacterID, cond, req.Stage)
		if err != nil {
			return err
		}
		if err := tx.Create(created).Error; err != nil {
			return common.TranslateDBError(err, "character condition")
		}

		inst = created
		return audit.Record(tx, actorID, "condition.apply", audit.SubjectCondition, created.ID, common.JSONB{
			"character_id": created.CharacterID,
			"condition":    cond.Name,
			"stage":        created.CurrentStage,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🩹 [CONDITION] Applied condition %s to character %s", inst.ConditionID, inst.CharacterID)
	return inst, nil
}

// RemoveCondition deletes an instance (cure or game-master action)
func (s *Service) RemoveCondition(actorID uuid.UUID, instanceID uuid.UUID) (err error) {
	defer func(start time.Time) { s.metrics.Observe("remove_condition", start, err) }(time.Now())

	return s.db.Transaction(func(tx *gorm.DB) error {
		var inst CharacterCondition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", instanceID).
			First(&inst).Error; err != nil {
			return common.TranslateDBError(err, "character condition")
		}

		if err := tx.Delete(&inst).Error; err != nil {
			return fmt.Errorf("failed to remove condition: %w", err)
		}

		return audit.Record(tx, actorID, "condition.remove", audit.SubjectCondition, inst.ID, common.JSONB{
			"character_id": inst.CharacterID,
			"condition_id": inst.ConditionID,
		})
	})
}

// ListCharacterConditions returns all condition instances of a character
func (s *Service) ListCharacterConditions(characterID uuid.UUID) ([]CharacterCondition, error) {
	var list []CharacterCondition
	if err := s.db.Preload("Condition").
		Where("character_id = ?", characterID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list character conditions: %w", err)
	}
	return list, nil
}

// =============================================
// 3. PROGRESSION
// =============================================

// ProgressCondition ticks one instance atomically (TX + FOR UPDATE)
func (s *Service) ProgressCondition(actorID uuid.UUID, instanceID uuid.UUID) (resp *ProgressResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("progress_condition", start, err) }(time.Now())

	var result Result
	var inst CharacterCondition
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Načítaj inštanciu s lockom
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", instanceID).
			First(&inst).Error; err != nil {
			return common.TranslateDBError(err, "character condition")
		}

		cond, err := s.loadCondition(tx, inst.ConditionID)
		if err != nil {
			return err
		}

		var perr error
		result, perr = s.progressLocked(tx, actorID, &inst, cond)
		return perr
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidStage) {
			log.Printf("❌ [CONDITION] Instance %s references an invalid stage: %v", instanceID, err)
			return &ProgressResponse{Success: false, Result: result}, err
		}
		return nil, err
	}

	return &ProgressResponse{Success: true, Result: result, Condition: &inst}, nil
}

// ProgressCharacterConditions ticks every running condition of a character,
// typically once at the end of an event. Instances with a broken stage
// reference are reported and skipped.
func (s *Service) ProgressCharacterConditions(actorID uuid.UUID, characterID uuid.UUID) (outcomes []ProgressOutcome, err error) {
	defer func(start time.Time) { s.metrics.Observe("progress_character_conditions", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var list []CharacterCondition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("character_id = ? AND current_stage IS NOT NULL", characterID).
			Order("created_at ASC").
			Find(&list).Error; err != nil {
			return fmt.Errorf("failed to load character conditions: %w", err)
		}

		outcomes = make([]ProgressOutcome, 0, len(list))
		for i := range list {
			inst := &list[i]
			outcome := ProgressOutcome{InstanceID: inst.ID, ConditionID: inst.ConditionID}

			cond, err := s.loadCondition(tx, inst.ConditionID)
			if err != nil {
				return err
			}

			result, perr := s.progressLocked(tx, actorID, inst, cond)
			outcome.Result = result
			if perr != nil {
				if !errors.Is(perr, common.ErrInvalidStage) {
					return perr
				}
				log.Printf("⚠️ [CONDITION] Skipping instance %s: %v", inst.ID, perr)
				outcome.Error = perr.Error()
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Service) progressLocked(tx *gorm.DB, actorID uuid.UUID, inst *CharacterCondition, cond *Condition) (Result, error) {
	table, err := NewStageTable(cond)
	if err != nil {
		return Result{Message: "condition stages are corrupt"}, err
	}

	before := inst.CurrentStage
	version := inst.Version
	result, err := Progress(inst, table)
	if err != nil {
		return result, err
	}

	res := tx.Model(&CharacterCondition{}).
		Where("id = ? AND version = ?", inst.ID, version).
		Updates(map[string]interface{}{
			"current_stage":    inst.CurrentStage,
			"current_duration": inst.CurrentDuration,
			"version":          version + 1,
		})
	if res.Error != nil {
		return result, fmt.Errorf("failed to update condition: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return result, fmt.Errorf("%w: condition instance %s", common.ErrConflict, inst.ID)
	}
	inst.Version = version + 1

	if before != inst.CurrentStage {
		s.metrics.Transition("condition", inst.CurrentStage.String())
	}

	if err := audit.Record(tx, actorID, "condition.progress", audit.SubjectCondition, inst.ID, common.JSONB{
		"from_stage": before,
		"to_stage":   inst.CurrentStage,
		"duration":   inst.CurrentDuration,
		"message":    result.Message,
	}); err != nil {
		return result, err
	}

	return result, nil
}

// =============================================
// 4. DEFINITION EDITS
// =============================================

// ReplaceConditionStages swaps the whole stage set of a condition. Running
// instances keep their stage number; if it disappears they surface
// ErrInvalidStage on the next tick instead of being silently moved.
func (s *Service) ReplaceConditionStages(actorID uuid.UUID, conditionID uuid.UUID, input []StageInput) (cond *Condition, err error) {
	defer func(start time.Time) { s.metrics.Observe("replace_condition_stages", start, err) }(time.Now())

	newStages := make([]ConditionStage, 0, len(input))
	for _, in := range input {
		if in.Duration <= 0 {
			return nil, fmt.Errorf("%w: stage %d duration must be positive", common.ErrInvalidInput, in.StageNumber)
		}
		newStages = append(newStages, ConditionStage{
			ConditionID: conditionID,
			StageNumber: in.StageNumber,
			RPEffect:    in.RPEffect,
			Diagnosis:   in.Diagnosis,
			Cure:        in.Cure,
			Duration:    in.Duration,
		})
	}
	table, err := stages.NewTable(newStages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var locked Condition
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", conditionID).
			First(&locked).Error; err != nil {
			return common.TranslateDBError(err, "condition")
		}

		if err := tx.Where("condition_id = ?", conditionID).Delete(&ConditionStage{}).Error; err != nil {
			return fmt.Errorf("failed to delete old stages: %w", err)
		}
		ordered := table.Stages()
		if err := tx.Create(&ordered).Error; err != nil {
			return fmt.Errorf("failed to create stages: %w", err)
		}

		locked.Stages = ordered
		cond = &locked
		return audit.Record(tx, actorID, "condition.replace_stages", audit.SubjectConditionDef, conditionID, common.JSONB{
			"stage_count": len(ordered),
		})
	})
	if err != nil {
		return nil, err
	}
	return cond, nil
}

// =============================================
// 5. HELPERS
// =============================================

func (s *Service) loadCondition(tx *gorm.DB, conditionID uuid.UUID) (*Condition, error) {
	var cond Condition
	if err := tx.Preload("Stages", func(db *gorm.DB) *gorm.DB {
		return db.Order("stage_number ASC")
	}).Where("id = ?", conditionID).First(&cond).Error; err != nil {
		return nil, common.TranslateDBError(err, "condition")
	}
	return &cond, nil
}
