package pack

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"larpcore/internal/common"

	"github.com/google/uuid"
)

// =============================================
// 1. PACK
// =============================================

// Sections tracked for completion on a fresh pack
const (
	SectionItems       = "items"
	SectionExotics     = "exotics"
	SectionSamples     = "samples"
	SectionMedicaments = "medicaments"
	SectionEnergyChits = "energy_chits"
)

var DefaultSections = []string{SectionItems, SectionExotics, SectionSamples, SectionMedicaments, SectionEnergyChits}

// Pack is a character's or group's bundle of rewards for an event. Items
// holds blueprint ids.
type Pack struct {
	Items       []uuid.UUID     `json:"items"`
	Exotics     []uuid.UUID     `json:"exotics"`
	Samples     []uuid.UUID     `json:"samples"`
	Medicaments []uuid.UUID     `json:"medicaments"`
	EnergyChits int             `json:"energy_chits"`
	Completion  map[string]bool `json:"completion"`
	IsGenerated bool            `json:"is_generated"`
}

// New returns an empty pack tracking the default sections.
func New() Pack {
	completion := make(map[string]bool, len(DefaultSections))
	for _, s := range DefaultSections {
		completion[s] = false
	}
	return Pack{
		Items:       []uuid.UUID{},
		Exotics:     []uuid.UUID{},
		Samples:     []uuid.UUID{},
		Medicaments: []uuid.UUID{},
		Completion:  completion,
	}
}

// IsComplete reports whether every tracked section is done. A pack that
// tracks nothing is not complete.
func (p Pack) IsComplete() bool {
	if len(p.Completion) == 0 {
		return false
	}
	for _, done := range p.Completion {
		if !done {
			return false
		}
	}
	return true
}

// SetCompletion marks a tracked section done or not done.
func (p *Pack) SetCompletion(section string, done bool) error {
	if _, ok := p.Completion[section]; !ok {
		return fmt.Errorf("%w: pack does not track section %q", common.ErrInvalidInput, section)
	}
	p.Completion[section] = done
	return nil
}

func (p Pack) Value() (driver.Value, error) {
	bytes, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (p *Pack) Scan(value interface{}) error {
	if value == nil {
		*p = New()
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, p)
}

// =============================================
// 2. GROUP TYPE
// =============================================

type Category string

const (
	CategoryItems       Category = "items"
	CategoryExotics     Category = "exotics"
	CategoryMedicaments Category = "medicaments"
	CategoryChits       Category = "chits"
)

var Categories = []Category{CategoryItems, CategoryExotics, CategoryMedicaments, CategoryChits}

// Distribution maps an income category to its percentage of the pool
type Distribution map[Category]int

func (d Distribution) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	bytes, err := json.Marshal(map[Category]int(d))
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (d *Distribution) Scan(value interface{}) error {
	if value == nil {
		*d = Distribution{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, d)
}

// GroupType is the income policy shared by groups of one kind
type GroupType struct {
	ID                   uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                 string       `json:"name" gorm:"type:varchar(100);not null;uniqueIndex"`
	IncomeItemsDiscount  float64      `json:"income_items_discount" gorm:"not null;default:0;check:income_items_discount >= 0 AND income_items_discount <= 1"`
	IncomeSubstanceCost  int          `json:"income_substance_cost" gorm:"not null;default:0;check:income_substance_cost >= 0"`
	IncomeMedicamentCost int          `json:"income_medicament_cost" gorm:"not null;default:0;check:income_medicament_cost >= 0"`
	IncomeDistribution   Distribution `json:"income_distribution" gorm:"type:jsonb;default:'{}'::jsonb"`
}

// Validate checks the policy the allocator depends on.
func (g *GroupType) Validate() error {
	if g.IncomeItemsDiscount < 0 || g.IncomeItemsDiscount > 1 {
		return fmt.Errorf("%w: items discount must be within [0, 1]", common.ErrInvalidInput)
	}
	if g.IncomeSubstanceCost < 0 || g.IncomeMedicamentCost < 0 {
		return fmt.Errorf("%w: income costs cannot be negative", common.ErrInvalidInput)
	}

	total := 0
	for cat, pct := range g.IncomeDistribution {
		if !knownCategory(cat) {
			return fmt.Errorf("%w: unknown income category %q", common.ErrInvalidInput, cat)
		}
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: %s share must be within [0, 100]", common.ErrInvalidInput, cat)
		}
		total += pct
	}
	if total > 100 {
		return fmt.Errorf("%w: income distribution sums to %d%%", common.ErrInvalidInput, total)
	}
	return nil
}

func knownCategory(c Category) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// =============================================
// 3. GROUP
// =============================================

// Group owns one pack that income generation fills
type Group struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	GroupTypeID uuid.UUID `json:"group_type_id" gorm:"type:uuid;not null;index"`
	Pack        Pack      `json:"pack" gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	Version     int       `json:"version" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relations
	GroupType *GroupType `json:"group_type,omitempty" gorm:"foreignKey:GroupTypeID"`
}

// =============================================
// 4. REQUEST/RESPONSE MODELS
// =============================================

type GenerateRequest struct {
	EnergyCredits int `json:"energy_credits" binding:"min=0"`
}

type CompletionRequest struct {
	Section string `json:"section" binding:"required"`
	Done    bool   `json:"done"`
}

// GenerateResponse matches the {success, pack} shape collaborators expect
type GenerateResponse struct {
	Success bool  `json:"success"`
	Pack    Pack  `json:"pack"`
	Spend   Spend `json:"spend"`
}

func (GroupType) TableName() string { return "packs.group_types" }
func (Group) TableName() string     { return "packs.groups" }
