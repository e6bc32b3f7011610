package downtime

import (
	"fmt"
	"strings"

	"larpcore/internal/common"

	"github.com/google/uuid"
)

type ActivityKind string

const (
	KindPurchase     ActivityKind = "purchase"
	KindModification ActivityKind = "modification"
	KindEngineering  ActivityKind = "engineering"
	KindScience      ActivityKind = "science"
	KindResearch     ActivityKind = "research"
	KindReputation   ActivityKind = "reputation"
)

// Activity is one downtime action a character declares. Every concrete
// kind validates its own shape before it is stored.
type Activity interface {
	Kind() ActivityKind
	Validate() error
}

// Purchase buys something from a shop or contact
type Purchase struct {
	ItemID      *uuid.UUID `json:"item_id,omitempty"`
	Description string     `json:"description,omitempty"`
	Quantity    int        `json:"quantity"`
	Cost        int        `json:"cost"`
}

func (Purchase) Kind() ActivityKind { return KindPurchase }

func (p Purchase) Validate() error {
	if p.ItemID == nil && strings.TrimSpace(p.Description) == "" {
		return invalid(KindPurchase, "item_id or description is required")
	}
	if p.Quantity < 1 {
		return invalid(KindPurchase, "quantity must be at least 1")
	}
	if p.Cost < 0 {
		return invalid(KindPurchase, "cost cannot be negative")
	}
	return nil
}

// Modification installs a mod on an item the character owns
type Modification struct {
	ItemID         uuid.UUID  `json:"item_id"`
	ModificationID *uuid.UUID `json:"modification_id,omitempty"`
	Description    string     `json:"description,omitempty"`
}

func (Modification) Kind() ActivityKind { return KindModification }

func (m Modification) Validate() error {
	if m.ItemID == uuid.Nil {
		return invalid(KindModification, "item_id is required")
	}
	if m.ModificationID == nil && strings.TrimSpace(m.Description) == "" {
		return invalid(KindModification, "modification_id or description is required")
	}
	return nil
}

// Engineering builds or repairs from a blueprint
type Engineering struct {
	BlueprintID *uuid.UUID `json:"blueprint_id,omitempty"`
	Description string     `json:"description"`
}

func (Engineering) Kind() ActivityKind { return KindEngineering }

func (e Engineering) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return invalid(KindEngineering, "description is required")
	}
	return nil
}

// Science spends time generating science points of one type
type Science struct {
	ScienceType string `json:"science_type"`
	Amount      int    `json:"amount"`
	Description string `json:"description,omitempty"`
}

func (Science) Kind() ActivityKind { return KindScience }

func (s Science) Validate() error {
	if strings.TrimSpace(s.ScienceType) == "" {
		return invalid(KindScience, "science_type is required")
	}
	if s.Amount < 0 {
		return invalid(KindScience, "amount cannot be negative")
	}
	return nil
}

// ResearchActivity contributes to one of the character's research projects
type ResearchActivity struct {
	ResearchID    uuid.UUID  `json:"research_id"`
	RequirementID *uuid.UUID `json:"requirement_id,omitempty"`
	Amount        int        `json:"amount"`
	Notes         string     `json:"notes,omitempty"`
}

func (ResearchActivity) Kind() ActivityKind { return KindResearch }

func (r ResearchActivity) Validate() error {
	if r.ResearchID == uuid.Nil {
		return invalid(KindResearch, "research_id is required")
	}
	if r.Amount < 0 {
		return invalid(KindResearch, "amount cannot be negative")
	}
	return nil
}

// Reputation works a faction standing up or down
type Reputation struct {
	FactionID uuid.UUID `json:"faction_id"`
	Change    int       `json:"change"`
	Reason    string    `json:"reason,omitempty"`
}

func (Reputation) Kind() ActivityKind { return KindReputation }

func (r Reputation) Validate() error {
	if r.FactionID == uuid.Nil {
		return invalid(KindReputation, "faction_id is required")
	}
	if r.Change == 0 {
		return invalid(KindReputation, "change cannot be zero")
	}
	return nil
}

func invalid(kind ActivityKind, msg string) error {
	return fmt.Errorf("%w: %s activity: %s", common.ErrInvalidInput, kind, msg)
}

// Activities groups a submission by kind
type Activities struct {
	Purchases     []Purchase         `json:"purchases,omitempty"`
	Modifications []Modification     `json:"modifications,omitempty"`
	Engineering   []Engineering      `json:"engineering,omitempty"`
	Science       []Science          `json:"science,omitempty"`
	Research      []ResearchActivity `json:"research,omitempty"`
	Reputation    []Reputation       `json:"reputation,omitempty"`
}

// All flattens the submission in kind order.
func (a Activities) All() []Activity {
	out := make([]Activity, 0, a.Len())
	for _, v := range a.Purchases {
		out = append(out, v)
	}
	for _, v := range a.Modifications {
		out = append(out, v)
	}
	for _, v := range a.Engineering {
		out = append(out, v)
	}
	for _, v := range a.Science {
		out = append(out, v)
	}
	for _, v := range a.Research {
		out = append(out, v)
	}
	for _, v := range a.Reputation {
		out = append(out, v)
	}
	return out
}

func (a Activities) Len() int {
	return len(a.Purchases) + len(a.Modifications) + len(a.Engineering) +
		len(a.Science) + len(a.Research) + len(a.Reputation)
}

// Validate reports the first invalid entry together with its position.
func (a Activities) Validate() error {
	counts := map[ActivityKind]int{}
	for _, act := range a.All() {
		idx := counts[act.Kind()]
		counts[act.Kind()]++
		if err := act.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", idx, err)
		}
	}
	return nil
}
