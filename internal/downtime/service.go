package downtime

import (
	"context"
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

// Archiver stores a JSON snapshot under a key
type Archiver interface {
	PutJSON(ctx context.Context, key string, v interface{}) error
}

// PeriodSnapshot is what gets archived when a period closes
type PeriodSnapshot struct {
	Period     Period    `json:"period"`
	Packs      []Pack    `json:"packs"`
	ArchivedAt time.Time `json:"archived_at"`
}

type Service struct {
	db       *gorm.DB
	metrics  *metrics.Recorder
	archiver Archiver
}

// NewService creates the downtime service. archiver may be nil.
func NewService(db *gorm.DB, rec *metrics.Recorder, archiver Archiver) *Service {
	return &Service{db: db, metrics: rec, archiver: archiver}
}

// =============================================
// 1. PERIODS
// =============================================

func (s *Service) OpenPeriod(actorID uuid.UUID, req *OpenPeriodRequest) (period *Period, err error) {
	defer func(start time.Time) { s.metrics.Observe("open_period", start, err) }(time.Now())

	period = OpenPeriod(req.EventID, req.Name)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(period).Error; err != nil {
			return fmt.Errorf("failed to create period: %w", err)
		}
		return audit.Record(tx, actorID, "downtime.open_period", audit.SubjectPeriod, period.ID, common.JSONB{
			"event_id": req.EventID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📅 [DOWNTIME] Period %s opened for event %s", period.ID, req.EventID)
	return period, nil
}

// ClosePeriod completes a period and archives it when an archiver is set.
// Archive failures are logged, the period stays closed.
func (s *Service) ClosePeriod(ctx context.Context, actorID uuid.UUID, periodID uuid.UUID) (period *Period, err error) {
	defer func(start time.Time) { s.metrics.Observe("close_period", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockPeriod(tx, periodID)
		if err != nil {
			return err
		}
		if err := ClosePeriod(locked, time.Now()); err != nil {
			return err
		}
		if err := tx.Model(&Period{}).
			Where("id = ?", locked.ID).
			Updates(map[string]interface{}{
				"status":    locked.Status,
				"closed_at": locked.ClosedAt,
			}).Error; err != nil {
			return fmt.Errorf("failed to close period: %w", err)
		}

		period = locked
		s.metrics.Transition("downtime_period", string(PeriodCompleted))
		return audit.Record(tx, actorID, "downtime.close_period", audit.SubjectPeriod, locked.ID, nil)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [DOWNTIME] Period %s closed", periodID)
	s.archive(ctx, period)
	return period, nil
}

func (s *Service) archive(ctx context.Context, period *Period) {
	if s.archiver == nil {
		return
	}

	packs, err := s.ListPeriodPacks(period.ID)
	if err != nil {
		log.Printf("⚠️ [DOWNTIME] Failed to load packs for archive of period %s: %v", period.ID, err)
		return
	}

	key := fmt.Sprintf("downtime/%s/%s.json", period.EventID, period.ID)
	snapshot := PeriodSnapshot{Period: *period, Packs: packs, ArchivedAt: time.Now().UTC()}
	if err := s.archiver.PutJSON(ctx, key, snapshot); err != nil {
		log.Printf("⚠️ [DOWNTIME] Failed to archive period %s: %v", period.ID, err)
		return
	}
	log.Printf("📦 [DOWNTIME] Period %s archived to %s (%d packs)", period.ID, key, len(packs))
}

// DeletePeriod removes a period together with all of its packs
func (s *Service) DeletePeriod(actorID uuid.UUID, periodID uuid.UUID) (err error) {
	defer func(start time.Time) { s.metrics.Observe("delete_period", start, err) }(time.Now())

	return s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockPeriod(tx, periodID)
		if err != nil {
			return err
		}

		res := tx.Where("period_id = ?", locked.ID).Delete(&Pack{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete packs: %w", res.Error)
		}
		if err := tx.Delete(&Period{}, "id = ?", locked.ID).Error; err != nil {
			return fmt.Errorf("failed to delete period: %w", err)
		}

		log.Printf("🗑️ [DOWNTIME] Period %s deleted with %d packs", locked.ID, res.RowsAffected)
		return audit.Record(tx, actorID, "downtime.delete_period", audit.SubjectPeriod, locked.ID, common.JSONB{
			"packs_deleted": res.RowsAffected,
		})
	})
}

func (s *Service) GetPeriod(periodID uuid.UUID) (*Period, error) {
	var p Period
	if err := s.db.Where("id = ?", periodID).First(&p).Error; err != nil {
		return nil, common.TranslateDBError(err, "downtime period")
	}
	return &p, nil
}

// =============================================
// 2. PACKS
// =============================================

// AdmitCharacter creates a character's pack in a pending period
func (s *Service) AdmitCharacter(actorID uuid.UUID, periodID uuid.UUID, characterID uuid.UUID) (pack *Pack, err error) {
	defer func(start time.Time) { s.metrics.Observe("admit_character", start, err) }(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Share lock is enough, only close/delete must wait for us
		var period Period
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id = ?", periodID).
			First(&period).Error; err != nil {
			return common.TranslateDBError(err, "downtime period")
		}

		var existing *Pack
		var found Pack
		if err := tx.Where("period_id = ? AND character_id = ?", periodID, characterID).First(&found).Error; err == nil {
			existing = &found
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing pack: %w", err)
		}

		created, err := Admit(&period, characterID, existing)
		if err != nil {
			return err
		}
		if err := tx.Create(created).Error; err != nil {
			return common.TranslateDBError(err, "downtime pack")
		}

		pack = created
		s.metrics.Transition("downtime", string(StatusEnterPack))
		return audit.Record(tx, actorID, "downtime.admit", audit.SubjectDowntimePack, created.ID, common.JSONB{
			"period_id":    periodID,
			"character_id": characterID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🎒 [DOWNTIME] Character %s admitted to period %s", characterID, periodID)
	return pack, nil
}

func (s *Service) SubmitPackContents(actorID uuid.UUID, packID uuid.UUID, req *SubmitPackRequest) (resp *SubmitResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("submit_pack_contents", start, err) }(time.Now())
	return s.submit(actorID, packID, "downtime.submit_pack", func(p *Pack) (Step, error) {
		return SubmitPackContents(p, req.Contents, req.Confirm)
	})
}

func (s *Service) SubmitDowntimeActivities(actorID uuid.UUID, packID uuid.UUID, req *SubmitActivitiesRequest) (resp *SubmitResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("submit_downtime_activities", start, err) }(time.Now())
	return s.submit(actorID, packID, "downtime.submit_activities", func(p *Pack) (Step, error) {
		return SubmitDowntimeActivities(p, req.Activities, req.Confirm)
	})
}

func (s *Service) SubmitManualReview(actorID uuid.UUID, packID uuid.UUID, req *SubmitReviewRequest) (resp *SubmitResponse, err error) {
	defer func(start time.Time) { s.metrics.Observe("submit_manual_review", start, err) }(time.Now())
	return s.submit(actorID, packID, "downtime.submit_review", func(p *Pack) (Step, error) {
		return SubmitManualReview(p, req.ReviewData, req.Confirm)
	})
}

func (s *Service) submit(actorID uuid.UUID, packID uuid.UUID, action string, op func(*Pack) (Step, error)) (*SubmitResponse, error) {
	var step Step
	var pack *Pack
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var locked Pack
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", packID).
			First(&locked).Error; err != nil {
			return common.TranslateDBError(err, "downtime pack")
		}

		version := locked.Version
		var err error
		step, err = op(&locked)
		if err != nil {
			return err
		}
		if err := s.savePack(tx, &locked, version); err != nil {
			return err
		}
		pack = &locked

		if step.Moved() || step.To == StatusManualReview {
			s.metrics.Transition("downtime", string(step.To))
		}
		return audit.Record(tx, actorID, action, audit.SubjectDowntimePack, locked.ID, common.JSONB{
			"from": step.From,
			"to":   step.To,
		})
	})
	if err != nil {
		return &SubmitResponse{Success: false, Step: step}, err
	}

	if step.Moved() {
		log.Printf("➡️ [DOWNTIME] Pack %s moved %s -> %s", packID, step.From, step.To)
	}
	return &SubmitResponse{Success: true, Step: step, Pack: pack}, nil
}

func (s *Service) savePack(tx *gorm.DB, p *Pack, version int) error {
	res := tx.Model(&Pack{}).
		Where("id = ? AND version = ?", p.ID, version).
		Updates(map[string]interface{}{
			"status":            p.Status,
			"energy_credits":    p.EnergyCredits,
			"items":             p.Items,
			"exotic_substances": p.ExoticSubstances,
			"conditions":        p.Conditions,
			"samples":           p.Samples,
			"cybernetics":       p.Cybernetics,
			"research_teams":    p.ResearchTeams,
			"purchases":         p.Purchases,
			"modifications":     p.Modifications,
			"engineering":       p.Engineering,
			"science":           p.Science,
			"research":          p.Research,
			"reputation":        p.Reputation,
			"review_data":       p.ReviewData,
			"version":           version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update pack: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: downtime pack %s", common.ErrConflict, p.ID)
	}
	p.Version = version + 1
	return nil
}

func (s *Service) GetPack(packID uuid.UUID) (*Pack, error) {
	var p Pack
	if err := s.db.Where("id = ?", packID).First(&p).Error; err != nil {
		return nil, common.TranslateDBError(err, "downtime pack")
	}
	return &p, nil
}

// ListPeriodPacks returns the packs of a period, optionally filtered by status
func (s *Service) ListPeriodPacks(periodID uuid.UUID, status ...PackStatus) ([]Pack, error) {
	q := s.db.Where("period_id = ?", periodID)
	if len(status) > 0 {
		q = q.Where("status IN ?", status)
	}

	var packs []Pack
	if err := q.Order("created_at ASC").Find(&packs).Error; err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	return packs, nil
}

func (s *Service) lockPeriod(tx *gorm.DB, periodID uuid.UUID) (*Period, error) {
	var p Period
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", periodID).
		First(&p).Error; err != nil {
		return nil, common.TranslateDBError(err, "downtime period")
	}
	return &p, nil
}
