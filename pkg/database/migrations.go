package database

import (
	"fmt"
	"log"

	"larpcore/internal/audit"
	"larpcore/internal/catalog"
	"larpcore/internal/condition"
	"larpcore/internal/downtime"
	"larpcore/internal/pack"
	"larpcore/internal/research"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Schemas owned by the service
var Schemas = []string{"catalog", "conditions", "research", "downtime", "packs", "audit"}

// Connect opens the postgres connection pool
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	log.Println("✅ [DATABASE] Connected")
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		return err
	}

	for _, schema := range Schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}

	// Auto-migrate all models
	err := db.AutoMigrate(
		// Catalog models
		&catalog.Character{},
		&catalog.ItemBlueprint{},
		&catalog.ExoticSubstance{},
		&catalog.Medicament{},
		&catalog.Faction{},
		// Condition models
		&condition.Condition{},
		&condition.ConditionStage{},
		&condition.CharacterCondition{},
		// Research models
		&research.Research{},
		&research.ResearchStage{},
		&research.ResearchStageRequirement{},
		&research.CharacterResearch{},
		&research.CharacterResearchStage{},
		&research.CharacterResearchStageRequirement{},
		// Downtime models
		&downtime.Period{},
		&downtime.Pack{},
		// Group packs
		&pack.GroupType{},
		&pack.Group{},
		// Audit
		&audit.Entry{},
	)
	if err != nil {
		return err
	}

	if err := createConditionIndexes(db); err != nil {
		return err
	}
	if err := createDowntimeIndexes(db); err != nil {
		return err
	}
	if err := createAuditIndexes(db); err != nil {
		return err
	}

	log.Println("✅ [DATABASE] Migrations complete")
	return nil
}

func createConditionIndexes(db *gorm.DB) error {
	// Running conditions of a character, for the end-of-event tick
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_character_conditions_running
		ON conditions.character_conditions (character_id)
		WHERE current_stage IS NOT NULL
	`).Error; err != nil {
		return err
	}

	return nil
}

func createDowntimeIndexes(db *gorm.DB) error {
	// Review queue of a period
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_downtime_packs_period_status
		ON downtime.packs (period_id, status)
	`).Error; err != nil {
		return err
	}

	// GIN index for item lookups across packs
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_downtime_packs_items_gin
		ON downtime.packs USING GIN (items jsonb_path_ops)
	`).Error; err != nil {
		return err
	}

	return nil
}

func createAuditIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_entries_created
		ON audit.entries (created_at DESC)
	`).Error; err != nil {
		return err
	}

	return nil
}
