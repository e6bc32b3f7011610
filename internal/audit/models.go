package audit

import (
	"fmt"
	"time"

	"larpcore/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject types
const (
	SubjectCondition     = "character_condition"
	SubjectConditionDef  = "condition"
	SubjectResearch      = "character_research"
	SubjectResearchStage = "research_stage"
	SubjectDowntimePack  = "downtime_pack"
	SubjectPeriod        = "downtime_period"
	SubjectGroupPack     = "group_pack"
)

// Entry is one audited mutation. Collaborators read these, the core only writes.
type Entry struct {
	ID          uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ActorID     *uuid.UUID   `json:"actor_id,omitempty" gorm:"type:uuid;index"`
	Action      string       `json:"action" gorm:"type:varchar(64);not null"`
	SubjectType string       `json:"subject_type" gorm:"type:varchar(64);not null;index:idx_audit_subject"`
	SubjectID   uuid.UUID    `json:"subject_id" gorm:"type:uuid;not null;index:idx_audit_subject"`
	Details     common.JSONB `json:"details" gorm:"type:jsonb;default:'{}'::jsonb"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

func (Entry) TableName() string { return "audit.entries" }

// Record writes an entry using the caller's transaction.
func Record(tx *gorm.DB, actorID uuid.UUID, action, subjectType string, subjectID uuid.UUID, details common.JSONB) error {
	entry := Entry{
		Action:      action,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Details:     details,
	}
	if actorID != uuid.Nil {
		entry.ActorID = &actorID
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// List returns the audit trail of one subject, newest first.
func List(db *gorm.DB, subjectType string, subjectID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []Entry
	err := db.Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
