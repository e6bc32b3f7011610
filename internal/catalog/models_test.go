package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestSnapshotHelpers(t *testing.T) {
	a := ItemBlueprint{ID: uuid.New(), Name: "rifle", BaseCost: 40, Purchasable: true}
	b := ItemBlueprint{ID: uuid.New(), Name: "prototype", BaseCost: 500}
	snap := &Snapshot{Blueprints: []ItemBlueprint{a, b}}

	purchasable := snap.Purchasable()
	if len(purchasable) != 1 || purchasable[0].ID != a.ID {
		t.Fatalf("expected only %s purchasable, got %v", a.Name, purchasable)
	}

	costs := snap.BlueprintCosts()
	if costs[a.ID] != 40 || costs[b.ID] != 500 {
		t.Fatalf("unexpected costs %v", costs)
	}
}

func TestInvalidateWithoutRedis(t *testing.T) {
	s := NewService(nil, nil, 0)
	if s.ttl <= 0 {
		t.Fatalf("expected a default ttl, got %v", s.ttl)
	}
	if err := s.Invalidate(context.Background()); err != nil {
		t.Fatalf("expected no-op without redis, got %v", err)
	}
	var dst Snapshot
	if s.cached(context.Background(), snapshotKey, &dst) {
		t.Fatal("expected a miss without redis")
	}
}
