package pack

import (
	"errors"
	"math/rand"
	"testing"

	"larpcore/internal/common"

	"github.com/google/uuid"
)

// identity leaves the order untouched
type identity struct{}

func (identity) Shuffle(int, func(i, j int)) {}

func blueprints(costs ...int) []Blueprint {
	out := make([]Blueprint, len(costs))
	for i, c := range costs {
		out[i] = Blueprint{ID: uuid.New(), BaseCost: c, Purchasable: true}
	}
	return out
}

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func itemCost(p *Pack, cat *Catalog, discount float64) int {
	costs := map[uuid.UUID]int{}
	for _, b := range cat.Blueprints {
		costs[b.ID] = DiscountedCost(b.BaseCost, discount)
	}
	total := 0
	for _, id := range p.Items {
		total += costs[id]
	}
	return total
}

func TestItemsAndChitsScenario(t *testing.T) {
	gt := &GroupType{IncomeDistribution: Distribution{CategoryItems: 50, CategoryChits: 50}}
	cat := &Catalog{Blueprints: blueprints(40)}
	p := New()

	spend, err := Generate(&p, 100, gt, cat, identity{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(p.Items) != 1 {
		t.Fatalf("expected exactly one item, got %d", len(p.Items))
	}
	if spend.Items > 50 {
		t.Fatalf("items overspent: %d", spend.Items)
	}
	if p.EnergyChits < 10 {
		t.Fatalf("expected at least 10 chits, got %d", p.EnergyChits)
	}
	if p.EnergyChits != 60 {
		t.Fatalf("expected 60 chits (50 share + 10 unspent), got %d", p.EnergyChits)
	}
	if !p.IsGenerated {
		t.Fatal("expected pack marked generated")
	}
}

func TestBudgetSafetyAcrossSeeds(t *testing.T) {
	cat := &Catalog{
		Blueprints:  append(blueprints(5, 12, 33, 7, 50, 1, 19, 80), Blueprint{ID: uuid.New(), BaseCost: 3}),
		Exotics:     ids(6),
		Medicaments: ids(4),
	}
	distributions := []Distribution{
		{CategoryItems: 100},
		{CategoryItems: 33, CategoryExotics: 33, CategoryMedicaments: 33},
		{CategoryItems: 25, CategoryExotics: 25, CategoryMedicaments: 25, CategoryChits: 25},
		{CategoryExotics: 70},
		{},
	}

	for _, dist := range distributions {
		gt := &GroupType{
			IncomeItemsDiscount:  0.15,
			IncomeSubstanceCost:  9,
			IncomeMedicamentCost: 13,
			IncomeDistribution:   dist,
		}
		for seed := int64(0); seed < 50; seed++ {
			for _, pool := range []int{0, 1, 37, 100, 251} {
				p := New()
				spend, err := Generate(&p, pool, gt, cat, rand.New(rand.NewSource(seed)))
				if err != nil {
					t.Fatalf("generate: %v", err)
				}

				items := itemCost(&p, cat, gt.IncomeItemsDiscount)
				exotics := len(p.Exotics) * gt.IncomeSubstanceCost
				meds := len(p.Medicaments) * gt.IncomeMedicamentCost
				if total := items + exotics + meds + p.EnergyChits; total > pool {
					t.Fatalf("dist %v seed %d pool %d: spent %d", dist, seed, pool, total)
				}
				if spend.Total() > pool {
					t.Fatalf("dist %v seed %d pool %d: reported spend %d", dist, seed, pool, spend.Total())
				}
				if items > spend.Budgets[CategoryItems] {
					t.Fatalf("items %d exceed budget %d", items, spend.Budgets[CategoryItems])
				}
			}
		}
	}
}

func TestRoundingGoesToChits(t *testing.T) {
	gt := &GroupType{IncomeDistribution: Distribution{CategoryItems: 15, CategoryChits: 15}}
	p := New()

	// 10 * 15 / 100 = 1 per share, but 30% of 10 is 3
	spend, err := Generate(&p, 10, gt, &Catalog{}, identity{})
	if err != nil {
		t.Fatal(err)
	}
	if p.EnergyChits != 3 {
		t.Fatalf("expected 3 chits, got %d (spend %+v)", p.EnergyChits, spend)
	}
}

func TestRegenerationStaysWithinItemBudget(t *testing.T) {
	gt := &GroupType{IncomeDistribution: Distribution{CategoryItems: 60, CategoryChits: 40}}
	cat := &Catalog{Blueprints: blueprints(10, 10, 10, 10, 10, 10, 10, 10)}
	p := New()

	for round := 0; round < 3; round++ {
		spend, err := Generate(&p, 100, gt, cat, rand.New(rand.NewSource(int64(round))))
		if err != nil {
			t.Fatal(err)
		}
		if got := itemCost(&p, cat, 0); got > 60 {
			t.Fatalf("round %d: item cost %d exceeds budget 60", round, got)
		}
		if spend.ExistingItems+spend.Items > spend.Budgets[CategoryItems] {
			t.Fatalf("round %d: spend %+v exceeds item budget", round, spend)
		}
	}
	if len(p.Items) != 6 {
		t.Fatalf("expected the pack to stay at 6 items, got %d", len(p.Items))
	}
}

func TestExistingItemsAboveBudget(t *testing.T) {
	gt := &GroupType{IncomeDistribution: Distribution{CategoryItems: 10}}
	cat := &Catalog{Blueprints: blueprints(50, 1)}
	p := New()
	p.Items = []uuid.UUID{cat.Blueprints[0].ID}

	if _, err := Generate(&p, 100, gt, cat, identity{}); err != nil {
		t.Fatal(err)
	}
	if len(p.Items) != 1 {
		t.Fatalf("expected nothing added, got %d items", len(p.Items))
	}
	if p.EnergyChits != 0 {
		t.Fatalf("expected no chits from an overdrawn item budget, got %d", p.EnergyChits)
	}
}

func TestGreedyStopsAtFirstOverflow(t *testing.T) {
	gt := &GroupType{IncomeDistribution: Distribution{CategoryItems: 100}}
	cat := &Catalog{Blueprints: blueprints(30, 80, 5)}
	p := New()

	if _, err := Generate(&p, 100, gt, cat, identity{}); err != nil {
		t.Fatal(err)
	}
	// 30 fits, 80 does not and ends the pass, 5 is never reached
	if len(p.Items) != 1 || p.Items[0] != cat.Blueprints[0].ID {
		t.Fatalf("expected only the first blueprint, got %v", p.Items)
	}
	if p.EnergyChits != 70 {
		t.Fatalf("expected 70 chits, got %d", p.EnergyChits)
	}
}

func TestDiscountAndPurchasableFilter(t *testing.T) {
	gt := &GroupType{IncomeItemsDiscount: 0.5, IncomeDistribution: Distribution{CategoryItems: 100}}
	hidden := Blueprint{ID: uuid.New(), BaseCost: 1}
	cat := &Catalog{Blueprints: []Blueprint{hidden, {ID: uuid.New(), BaseCost: 15, Purchasable: true}}}
	p := New()

	spend, err := Generate(&p, 10, gt, cat, identity{})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Items) != 1 || p.Items[0] == hidden.ID {
		t.Fatalf("expected the purchasable blueprint only, got %v", p.Items)
	}
	if spend.Items != 7 {
		t.Fatalf("expected floor(15 * 0.5) = 7, got %d", spend.Items)
	}
}

func TestFlatCategoriesRegenerate(t *testing.T) {
	gt := &GroupType{
		IncomeSubstanceCost:  10,
		IncomeMedicamentCost: 0,
		IncomeDistribution:   Distribution{CategoryExotics: 50, CategoryMedicaments: 50},
	}
	cat := &Catalog{Exotics: ids(2), Medicaments: ids(3)}
	p := New()
	stale := uuid.New()
	p.Exotics = []uuid.UUID{stale}

	if _, err := Generate(&p, 100, gt, cat, identity{}); err != nil {
		t.Fatal(err)
	}
	if len(p.Exotics) != 2 {
		t.Fatalf("expected the two catalog exotics, got %v", p.Exotics)
	}
	for _, id := range p.Exotics {
		if id == stale {
			t.Fatal("previous exotic list was not cleared")
		}
	}
	if len(p.Medicaments) != 0 {
		t.Fatalf("expected no medicaments at zero cost, got %d", len(p.Medicaments))
	}
	// 30 unspent exotic budget + 50 medicament budget
	if p.EnergyChits != 80 {
		t.Fatalf("expected 80 chits, got %d", p.EnergyChits)
	}
}

func TestEmptyCatalogAllocatesNothing(t *testing.T) {
	gt := &GroupType{IncomeSubstanceCost: 5, IncomeDistribution: Distribution{CategoryItems: 40, CategoryExotics: 40}}
	p := New()

	spend, err := Generate(&p, 50, gt, nil, identity{})
	if err != nil {
		t.Fatalf("expected no error on empty catalog, got %v", err)
	}
	if spend.Items != 0 || spend.Exotics != 0 || p.EnergyChits != 40 {
		t.Fatalf("unexpected spend %+v chits %d", spend, p.EnergyChits)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	p := New()
	if _, err := Generate(&p, -1, &GroupType{}, nil, identity{}); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative pool, got %v", err)
	}

	bad := []*GroupType{
		{IncomeDistribution: Distribution{CategoryItems: 80, CategoryChits: 30}},
		{IncomeDistribution: Distribution{"weapons": 10}},
		{IncomeDistribution: Distribution{CategoryItems: -5}},
		{IncomeItemsDiscount: 1.5},
		{IncomeSubstanceCost: -1},
	}
	for i, gt := range bad {
		if _, err := Generate(&p, 10, gt, nil, identity{}); !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
	if p.IsGenerated {
		t.Fatal("rejected generation marked the pack generated")
	}
}

func TestAllocatorUsesFreshShuffler(t *testing.T) {
	calls := 0
	a := NewAllocatorWith(func() (Shuffler, error) {
		calls++
		return identity{}, nil
	})
	gt := &GroupType{IncomeDistribution: Distribution{CategoryChits: 100}}
	for i := 0; i < 3; i++ {
		p := New()
		if _, err := a.Generate(&p, 10, gt, nil); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 3 {
		t.Fatalf("expected one shuffler per call, got %d", calls)
	}

	if _, err := NewAllocator().Generate(&Pack{}, 10, gt, nil); err != nil {
		t.Fatalf("seeded allocator: %v", err)
	}
}

func TestPackCompletion(t *testing.T) {
	p := New()
	if p.IsComplete() {
		t.Fatal("fresh pack should not be complete")
	}
	for _, s := range DefaultSections {
		if err := p.SetCompletion(s, true); err != nil {
			t.Fatal(err)
		}
	}
	if !p.IsComplete() {
		t.Fatal("expected complete pack")
	}
	if err := p.SetCompletion("weapons", true); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if (Pack{}).IsComplete() {
		t.Fatal("pack without tracked sections should not be complete")
	}
}
