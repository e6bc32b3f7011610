package research

import (
	"time"

	"github.com/google/uuid"
)

// =============================================
// 1. DEFINITION MODELS
// =============================================

type ResearchType string

const (
	TypeInvention ResearchType = "invention"
	TypeArtefact  ResearchType = "artefact"
)

type RequirementType string

const (
	RequirementScience RequirementType = "science"
	RequirementItem    RequirementType = "item"
	RequirementExotic  RequirementType = "exotic"
	RequirementSample  RequirementType = "sample"
)

// Research is a multi-stage research project definition
type Research struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectName string          `json:"project_name" gorm:"type:varchar(200);not null"`
	Type        ResearchType    `json:"type" gorm:"type:varchar(20);not null;check:type IN ('invention', 'artefact')"`
	PublicID    string          `json:"public_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	Description *string         `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	Stages      []ResearchStage `json:"stages,omitempty" gorm:"foreignKey:ResearchID;constraint:OnDelete:CASCADE"`
}

// ResearchStage is one step of a research project
type ResearchStage struct {
	ID           uuid.UUID                  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ResearchID   uuid.UUID                  `json:"research_id" gorm:"type:uuid;not null;uniqueIndex:idx_research_stage_number"`
	StageNumber  int                        `json:"stage_number" gorm:"not null;uniqueIndex:idx_research_stage_number;check:stage_number >= 1"`
	Name         string                     `json:"name" gorm:"type:varchar(200);not null"`
	Description  *string                    `json:"description,omitempty" gorm:"type:text"`
	Requirements []ResearchStageRequirement `json:"requirements,omitempty" gorm:"foreignKey:StageID;constraint:OnDelete:CASCADE"`
}

func (s ResearchStage) GetStageNumber() int { return s.StageNumber }

// ResearchStageRequirement is something a character has to deliver to
// finish a stage. Target selects the science type, item blueprint, exotic
// substance or sample the requirement counts.
type ResearchStageRequirement struct {
	ID                 uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StageID            uuid.UUID       `json:"stage_id" gorm:"type:uuid;not null;index"`
	Type               RequirementType `json:"type" gorm:"type:varchar(20);not null;check:type IN ('science', 'item', 'exotic', 'sample')"`
	Target             string          `json:"target" gorm:"type:varchar(200)"`
	Amount             int             `json:"amount" gorm:"not null;check:amount > 0"`
	SampleTag          *string         `json:"sample_tag,omitempty" gorm:"type:varchar(100)"`
	RequiresResearched bool            `json:"requires_researched" gorm:"not null;default:false"`
}

// =============================================
// 2. CHARACTER TRACKING MODELS
// =============================================

// CharacterResearch tracks one character's progress through a project.
// CurrentStageID is nil once the last stage was completed.
type CharacterResearch struct {
	ID             uuid.UUID                `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CharacterID    uuid.UUID                `json:"character_id" gorm:"type:uuid;not null;uniqueIndex:idx_character_research"`
	ResearchID     uuid.UUID                `json:"research_id" gorm:"type:uuid;not null;uniqueIndex:idx_character_research"`
	CurrentStageID *uuid.UUID               `json:"current_stage_id" gorm:"type:uuid;index"`
	Version        int                      `json:"version" gorm:"not null;default:0"`
	CreatedAt      time.Time                `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time                `json:"updated_at" gorm:"autoUpdateTime"`
	Stages         []CharacterResearchStage `json:"stages" gorm:"foreignKey:CharacterResearchID;constraint:OnDelete:CASCADE"`

	// Relations
	Research *Research `json:"research,omitempty" gorm:"foreignKey:ResearchID"`
}

// CharacterResearchStage exists for every stage a character has visited
type CharacterResearchStage struct {
	ID                  uuid.UUID                           `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CharacterResearchID uuid.UUID                           `json:"character_research_id" gorm:"type:uuid;not null;uniqueIndex:idx_character_research_stage"`
	StageID             uuid.UUID                           `json:"stage_id" gorm:"type:uuid;not null;uniqueIndex:idx_character_research_stage"`
	StageCompleted      bool                                `json:"stage_completed" gorm:"not null;default:false"`
	Requirements        []CharacterResearchStageRequirement `json:"requirements" gorm:"foreignKey:CharacterResearchStageID;constraint:OnDelete:CASCADE"`
}

// CharacterResearchStageRequirement is progress towards one requirement,
// always within [0, requirement.Amount]
type CharacterResearchStageRequirement struct {
	ID                       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CharacterResearchStageID uuid.UUID `json:"character_research_stage_id" gorm:"type:uuid;not null;index"`
	RequirementID            uuid.UUID `json:"requirement_id" gorm:"type:uuid;not null;index"`
	Progress                 int       `json:"progress" gorm:"not null;default:0;check:progress >= 0"`
}

// =============================================
// 3. REQUEST/RESPONSE MODELS
// =============================================

type AssignResearchRequest struct {
	CharacterID uuid.UUID `json:"character_id" binding:"required"`
}

type UpdateProgressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

type TeachRequest struct {
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
	LearnerID uuid.UUID `json:"learner_id" binding:"required"`
}

// RequirementInput describes a requirement in an editor submission. ID is
// set for requirements that already exist and are kept.
type RequirementInput struct {
	ID                 *uuid.UUID      `json:"id,omitempty"`
	Type               RequirementType `json:"type" binding:"required,oneof=science item exotic sample"`
	Target             string          `json:"target"`
	Amount             int             `json:"amount" binding:"required,min=1"`
	SampleTag          *string         `json:"sample_tag,omitempty"`
	RequiresResearched bool            `json:"requires_researched"`
}

type ReplaceRequirementsRequest struct {
	Requirements []RequirementInput `json:"requirements" binding:"dive"`
}

// TransitionResponse wraps an advance/regress/teach result
type TransitionResponse struct {
	Success  bool               `json:"success"`
	Result   Result             `json:"result"`
	Research *CharacterResearch `json:"research,omitempty"`
}

// =============================================
// 4. TABLE NAMES
// =============================================

func (Research) TableName() string                 { return "research.research" }
func (ResearchStage) TableName() string            { return "research.research_stages" }
func (ResearchStageRequirement) TableName() string { return "research.research_stage_requirements" }
func (CharacterResearch) TableName() string        { return "research.character_research" }
func (CharacterResearchStage) TableName() string   { return "research.character_research_stages" }
func (CharacterResearchStageRequirement) TableName() string {
	return "research.character_research_stage_requirements"
}
