package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Reference data owned by the collaborator. The core only reads it.

type Character struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string     `json:"name" gorm:"type:varchar(200);not null"`
	PlayerID  *uuid.UUID `json:"player_id,omitempty" gorm:"type:uuid;index"`
	GroupID   *uuid.UUID `json:"group_id,omitempty" gorm:"type:uuid;index"`
	IsActive  bool       `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// ItemBlueprint is a craftable or purchasable item template
type ItemBlueprint struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	BaseCost    int       `json:"base_cost" gorm:"not null;default:0;check:base_cost >= 0"`
	Purchasable bool      `json:"purchasable" gorm:"not null;default:false;index"`
}

type ExoticSubstance struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `json:"name" gorm:"type:varchar(200);not null;uniqueIndex"`
}

type Medicament struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `json:"name" gorm:"type:varchar(200);not null;uniqueIndex"`
}

type Faction struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name string    `json:"name" gorm:"type:varchar(200);not null;uniqueIndex"`
}

// Snapshot is the full read-only catalog the allocator works from
type Snapshot struct {
	Blueprints  []ItemBlueprint   `json:"blueprints"`
	Exotics     []ExoticSubstance `json:"exotics"`
	Medicaments []Medicament      `json:"medicaments"`
}

// BlueprintCosts indexes every blueprint's base cost by id.
func (s *Snapshot) BlueprintCosts() map[uuid.UUID]int {
	costs := make(map[uuid.UUID]int, len(s.Blueprints))
	for _, b := range s.Blueprints {
		costs[b.ID] = b.BaseCost
	}
	return costs
}

// Purchasable returns the blueprints a pack can be filled with.
func (s *Snapshot) Purchasable() []ItemBlueprint {
	var out []ItemBlueprint
	for _, b := range s.Blueprints {
		if b.Purchasable {
			out = append(out, b)
		}
	}
	return out
}

func (Character) TableName() string       { return "catalog.characters" }
func (ItemBlueprint) TableName() string   { return "catalog.item_blueprints" }
func (ExoticSubstance) TableName() string { return "catalog.exotic_substances" }
func (Medicament) TableName() string      { return "catalog.medicaments" }
func (Faction) TableName() string         { return "catalog.factions" }
