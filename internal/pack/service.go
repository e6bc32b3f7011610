package pack

import (
	"context"
	"fmt"
	"log"
	"time"

	"larpcore/internal/audit"
	"larpcore/internal/catalog"
	"larpcore/internal/common"
	"larpcore/internal/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db        *gorm.DB
	catalog   *catalog.Service
	allocator *Allocator
	metrics   *metrics.Recorder
}

func NewService(db *gorm.DB, cat *catalog.Service, allocator *Allocator, rec *metrics.Recorder) *Service {
	if allocator == nil {
		allocator = NewAllocator()
	}
	return &Service{db: db, catalog: cat, allocator: allocator, metrics: rec}
}

// GenerateGroupPack spends ecPool on a group's pack per its group type
func (s *Service) GenerateGroupPack(ctx context.Context, actorID uuid.UUID, groupID uuid.UUID, ecPool int) (resp *GenerateResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("generate_group_pack", start, err) }(time.Now())

	// Catalog is read before the transaction, it may come from redis
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	cat := toCatalog(snap)

	var spend Spend
	var generated Pack
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked bool
		if err := tx.Raw("SELECT pg_try_advisory_xact_lock(hashtext(?))", "group_pack:"+groupID.String()).
			Scan(&locked).Error; err != nil {
			return fmt.Errorf("failed to acquire group lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("%w: pack generation already running for group %s", common.ErrConflict, groupID)
		}

		group, err := s.lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.GroupType == nil {
			return fmt.Errorf("%w: group %s has no group type", common.ErrNotFound, groupID)
		}

		version := group.Version
		spend, err = s.allocator.Generate(&group.Pack, ecPool, group.GroupType, cat)
		if err != nil {
			return err
		}
		if err := s.savePack(tx, group, version); err != nil {
			return err
		}
		generated = group.Pack

		return audit.Record(tx, actorID, "pack.generate", audit.SubjectGroupPack, group.ID, common.JSONB{
			"energy_credits": ecPool,
			"items":          spend.Items,
			"exotics":        spend.Exotics,
			"medicaments":    spend.Medicaments,
			"chits":          spend.Chits,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Spend(string(CategoryItems), spend.Items)
	s.metrics.Spend(string(CategoryExotics), spend.Exotics)
	s.metrics.Spend(string(CategoryMedicaments), spend.Medicaments)
	s.metrics.Spend(string(CategoryChits), spend.Chits)

	log.Printf("🎁 [PACK] Group %s pack generated from %d EC (items %d, exotics %d, medicaments %d, chits %d)",
		groupID, ecPool, spend.Items, spend.Exotics, spend.Medicaments, spend.Chits)
	return &GenerateResponse{Success: true, Pack: generated, Spend: spend}, nil
}

// SetCompletion marks one section of a group's pack done or not done
func (s *Service) SetCompletion(actorID uuid.UUID, groupID uuid.UUID, section string, done bool) (p *Pack, err error) {
	defer func(start time.Time) { s.metrics.Observe("set_pack_completion", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		group, err := s.lockGroup(tx, groupID)
		if err != nil {
			return err
		}

		version := group.Version
		if group.Pack.Completion == nil {
			group.Pack.Completion = New().Completion
		}
		if err := group.Pack.SetCompletion(section, done); err != nil {
			return err
		}
		if err := s.savePack(tx, group, version); err != nil {
			return err
		}
		p = &group.Pack

		if group.Pack.IsComplete() {
			s.metrics.Transition("group_pack", "complete")
		}
		return audit.Record(tx, actorID, "pack.completion", audit.SubjectGroupPack, group.ID, common.JSONB{
			"section": section,
			"done":    done,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetGroup(groupID uuid.UUID) (*Group, error) {
	var g Group
	if err := s.db.Preload("GroupType").Where("id = ?", groupID).First(&g).Error; err != nil {
		return nil, common.TranslateDBError(err, "group")
	}
	return &g, nil
}

func (s *Service) lockGroup(tx *gorm.DB, groupID uuid.UUID) (*Group, error) {
	var g Group
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("GroupType").
		Where("id = ?", groupID).
		First(&g).Error; err != nil {
		return nil, common.TranslateDBError(err, "group")
	}
	return &g, nil
}

func (s *Service) savePack(tx *gorm.DB, g *Group, version int) error {
	res := tx.Model(&Group{}).
		Where("id = ? AND version = ?", g.ID, version).
		Updates(map[string]interface{}{
			"pack":    g.Pack,
			"version": version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update group pack: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: group %s", common.ErrConflict, g.ID)
	}
	g.Version = version + 1
	return nil
}

func toCatalog(snap *catalog.Snapshot) *Catalog {
	cat := &Catalog{
		Blueprints:  make([]Blueprint, 0, len(snap.Blueprints)),
		Exotics:     make([]uuid.UUID, 0, len(snap.Exotics)),
		Medicaments: make([]uuid.UUID, 0, len(snap.Medicaments)),
	}
	for _, b := range snap.Blueprints {
		cat.Blueprints = append(cat.Blueprints, Blueprint{ID: b.ID, BaseCost: b.BaseCost, Purchasable: b.Purchasable})
	}
	for _, e := range snap.Exotics {
		cat.Exotics = append(cat.Exotics, e.ID)
	}
	for _, m := range snap.Medicaments {
		cat.Medicaments = append(cat.Medicaments, m.ID)
	}
	return cat
}
