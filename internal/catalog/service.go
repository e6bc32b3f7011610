package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"larpcore/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	snapshotKey  = "catalog:snapshot"
	factionsKey  = "catalog:factions"
	characterKey = "catalog:character:%s"
)

// Service reads reference data, caching it in redis when available
type Service struct {
	db    *gorm.DB
	redis *redis.Client
	ttl   time.Duration
}

// NewService creates the catalog service. redisClient may be nil, every read
// then goes to the database.
func NewService(db *gorm.DB, redisClient *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{db: db, redis: redisClient, ttl: ttl}
}

// Snapshot returns blueprints, exotic substances and medicaments
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	if s.cached(ctx, snapshotKey, &snap) {
		return &snap, nil
	}

	if err := s.db.WithContext(ctx).Order("name ASC").Find(&snap.Blueprints).Error; err != nil {
		return nil, fmt.Errorf("failed to load blueprints: %w", err)
	}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&snap.Exotics).Error; err != nil {
		return nil, fmt.Errorf("failed to load exotic substances: %w", err)
	}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&snap.Medicaments).Error; err != nil {
		return nil, fmt.Errorf("failed to load medicaments: %w", err)
	}

	s.store(ctx, snapshotKey, &snap)
	return &snap, nil
}

func (s *Service) Factions(ctx context.Context) ([]Faction, error) {
	var factions []Faction
	if s.cached(ctx, factionsKey, &factions) {
		return factions, nil
	}

	if err := s.db.WithContext(ctx).Order("name ASC").Find(&factions).Error; err != nil {
		return nil, fmt.Errorf("failed to load factions: %w", err)
	}

	s.store(ctx, factionsKey, factions)
	return factions, nil
}

func (s *Service) Character(ctx context.Context, id uuid.UUID) (*Character, error) {
	key := fmt.Sprintf(characterKey, id)
	var ch Character
	if s.cached(ctx, key, &ch) {
		return &ch, nil
	}

	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ch).Error; err != nil {
		return nil, common.TranslateDBError(err, "character")
	}

	s.store(ctx, key, &ch)
	return &ch, nil
}

// Invalidate drops every cached catalog entry. Collaborators call it after
// editing reference data.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}

	keys := []string{snapshotKey, factionsKey}
	iter := s.redis.Scan(ctx, 0, "catalog:character:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan catalog keys: %w", err)
	}

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	log.Printf("🧹 [CATALOG] Cache invalidated (%d keys)", len(keys))
	return nil
}

// cached reads key into dst. Any redis problem counts as a miss.
func (s *Service) cached(ctx context.Context, key string, dst interface{}) bool {
	if s.redis == nil {
		return false
	}

	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ [CATALOG] Redis get %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("⚠️ [CATALOG] Dropping corrupt cache entry %s: %v", key, err)
		s.redis.Del(ctx, key)
		return false
	}
	return true
}

func (s *Service) store(ctx context.Context, key string, v interface{}) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		log.Printf("⚠️ [CATALOG] Redis set %s failed: %v", key, err)
	}
}
