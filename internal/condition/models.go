package condition

import (
	"time"

	"larpcore/internal/stages"

	"github.com/google/uuid"
)

// =============================================
// 1. DEFINITION MODELS
// =============================================

// Condition is a multi-stage status effect definition
type Condition struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string           `json:"name" gorm:"type:varchar(200);not null;uniqueIndex"`
	CreatedAt time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
	Stages    []ConditionStage `json:"stages,omitempty" gorm:"foreignKey:ConditionID;constraint:OnDelete:CASCADE"`
}

// ConditionStage is one step of a condition. Duration counts events.
type ConditionStage struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConditionID uuid.UUID `json:"condition_id" gorm:"type:uuid;not null;uniqueIndex:idx_condition_stage_number"`
	StageNumber int       `json:"stage_number" gorm:"not null;uniqueIndex:idx_condition_stage_number;check:stage_number >= 1"`
	RPEffect    string    `json:"rp_effect" gorm:"type:text"`
	Diagnosis   string    `json:"diagnosis" gorm:"type:text"`
	Cure        string    `json:"cure" gorm:"type:text"`
	Duration    int       `json:"duration" gorm:"not null;check:duration > 0"`
}

func (s ConditionStage) GetStageNumber() int { return s.StageNumber }

// =============================================
// 2. CHARACTER INSTANCE
// =============================================

// CharacterCondition is a condition applied to one character.
// CurrentStage is Concluded once the last stage ran out.
type CharacterCondition struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CharacterID     uuid.UUID       `json:"character_id" gorm:"type:uuid;not null;uniqueIndex:idx_character_condition"`
	ConditionID     uuid.UUID       `json:"condition_id" gorm:"type:uuid;not null;uniqueIndex:idx_character_condition"`
	CurrentStage    stages.Position `json:"current_stage" gorm:"type:integer"`
	CurrentDuration int             `json:"current_duration" gorm:"not null;default:0;check:current_duration >= 0"`
	Version         int             `json:"version" gorm:"not null;default:0"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`

	// Relations
	Condition *Condition `json:"condition,omitempty" gorm:"foreignKey:ConditionID"`
}

// =============================================
// 3. REQUEST/RESPONSE MODELS
// =============================================

// ApplyConditionRequest applies a condition to a character, at stage 1 unless set
type ApplyConditionRequest struct {
	CharacterID uuid.UUID `json:"character_id" binding:"required"`
	ConditionID uuid.UUID `json:"condition_id" binding:"required"`
	Stage       int       `json:"stage" binding:"omitempty,min=1"`
}

// StageInput describes one stage of a replacement stage set
type StageInput struct {
	StageNumber int    `json:"stage_number" binding:"required,min=1"`
	RPEffect    string `json:"rp_effect"`
	Diagnosis   string `json:"diagnosis"`
	Cure        string `json:"cure"`
	Duration    int    `json:"duration" binding:"required,min=1"`
}

// ReplaceStagesRequest swaps a condition's stage set
type ReplaceStagesRequest struct {
	Stages []StageInput `json:"stages" binding:"required,min=1,dive"`
}

// ProgressResponse is returned for a single progression
type ProgressResponse struct {
	Success   bool                `json:"success"`
	Result    Result              `json:"result"`
	Condition *CharacterCondition `json:"condition"`
}

// ProgressOutcome is one line of a character-wide tick
type ProgressOutcome struct {
	InstanceID  uuid.UUID `json:"instance_id"`
	ConditionID uuid.UUID `json:"condition_id"`
	Result      Result    `json:"result"`
	Error       string    `json:"error,omitempty"`
}

// =============================================
// 4. TABLE NAMES
// =============================================

func (Condition) TableName() string          { return "conditions.conditions" }
func (ConditionStage) TableName() string     { return "conditions.condition_stages" }
func (CharacterCondition) TableName() string { return "conditions.character_conditions" }
