package downtime

import (
	"time"

	"larpcore/internal/common"

	"github.com/google/uuid"
)

// =============================================
// 1. STATUS ENUMS
// =============================================

type PeriodStatus string

const (
	PeriodPending   PeriodStatus = "pending"
	PeriodCompleted PeriodStatus = "completed"
)

type PackStatus string

const (
	StatusEnterPack     PackStatus = "enter_pack"
	StatusEnterDowntime PackStatus = "enter_downtime"
	StatusManualReview  PackStatus = "manual_review"
	StatusCompleted     PackStatus = "completed"
)

// =============================================
// 2. DATABASE MODELS
// =============================================

// Period is the downtime window of one game event
type Period struct {
	ID        uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventID   uuid.UUID    `json:"event_id" gorm:"type:uuid;not null;index"`
	Name      string       `json:"name" gorm:"type:varchar(200)"`
	Status    PeriodStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending', 'completed')"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"autoUpdateTime"`

	Packs []Pack `json:"packs,omitempty" gorm:"foreignKey:PeriodID;constraint:OnDelete:CASCADE"`
}

// Pack is one character's downtime submission for a period
type Pack struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PeriodID    uuid.UUID  `json:"period_id" gorm:"type:uuid;not null;uniqueIndex:idx_period_character"`
	CharacterID uuid.UUID  `json:"character_id" gorm:"type:uuid;not null;uniqueIndex:idx_period_character"`
	Status      PackStatus `json:"status" gorm:"type:varchar(20);not null;default:'enter_pack';check:status IN ('enter_pack', 'enter_downtime', 'manual_review', 'completed')"`

	// Pack contents
	EnergyCredits    int             `json:"energy_credits" gorm:"not null;default:0"`
	Items            common.UUIDList `json:"items" gorm:"type:jsonb;default:'[]'::jsonb"`
	ExoticSubstances common.UUIDList `json:"exotic_substances" gorm:"type:jsonb;default:'[]'::jsonb"`
	Conditions       common.UUIDList `json:"conditions" gorm:"type:jsonb;default:'[]'::jsonb"`
	Samples          common.UUIDList `json:"samples" gorm:"type:jsonb;default:'[]'::jsonb"`
	Cybernetics      common.UUIDList `json:"cybernetics" gorm:"type:jsonb;default:'[]'::jsonb"`
	ResearchTeams    common.UUIDList `json:"research_teams" gorm:"type:jsonb;default:'[]'::jsonb"`

	// Activity logs
	Purchases     common.JSONList[Purchase]         `json:"purchases" gorm:"type:jsonb;default:'[]'::jsonb"`
	Modifications common.JSONList[Modification]     `json:"modifications" gorm:"type:jsonb;default:'[]'::jsonb"`
	Engineering   common.JSONList[Engineering]      `json:"engineering" gorm:"type:jsonb;default:'[]'::jsonb"`
	Science       common.JSONList[Science]          `json:"science" gorm:"type:jsonb;default:'[]'::jsonb"`
	Research      common.JSONList[ResearchActivity] `json:"research" gorm:"type:jsonb;default:'[]'::jsonb"`
	Reputation    common.JSONList[Reputation]       `json:"reputation" gorm:"type:jsonb;default:'[]'::jsonb"`

	ReviewData common.JSONB `json:"review_data" gorm:"type:jsonb;default:'{}'::jsonb"`
	Version    int          `json:"version" gorm:"not null;default:0"`
	CreatedAt  time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// =============================================
// 3. REQUEST/RESPONSE MODELS
// =============================================

type OpenPeriodRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
	Name    string    `json:"name"`
}

type AdmitRequest struct {
	CharacterID uuid.UUID `json:"character_id" binding:"required"`
}

// PackContents is a pack-phase submission. Lists are appended to the pack
// unless Replace is set, which swaps every non-nil list instead.
type PackContents struct {
	EnergyCredits    *int        `json:"energy_credits,omitempty" binding:"omitempty,min=0"`
	Items            []uuid.UUID `json:"items,omitempty"`
	ExoticSubstances []uuid.UUID `json:"exotic_substances,omitempty"`
	Conditions       []uuid.UUID `json:"conditions,omitempty"`
	Samples          []uuid.UUID `json:"samples,omitempty"`
	Cybernetics      []uuid.UUID `json:"cybernetics,omitempty"`
	ResearchTeams    []uuid.UUID `json:"research_teams,omitempty"`
	Replace          bool        `json:"replace"`
}

type SubmitPackRequest struct {
	Contents PackContents `json:"contents"`
	Confirm  bool         `json:"confirm"`
}

type SubmitActivitiesRequest struct {
	Activities Activities `json:"activities"`
	Confirm    bool       `json:"confirm"`
}

type SubmitReviewRequest struct {
	ReviewData common.JSONB `json:"review_data"`
	Confirm    bool         `json:"confirm"`
}

// SubmitResponse is returned by every pack-phase submission
type SubmitResponse struct {
	Success bool  `json:"success"`
	Step    Step  `json:"step"`
	Pack    *Pack `json:"pack,omitempty"`
}

// =============================================
// 4. TABLE NAMES
// =============================================

func (Period) TableName() string { return "downtime.periods" }
func (Pack) TableName() string   { return "downtime.packs" }
