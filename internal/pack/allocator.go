package pack

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"larpcore/internal/common"

	"github.com/google/uuid"
)

// Shuffler permutes n elements in place through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Blueprint is the part of an item blueprint the allocator needs
type Blueprint struct {
	ID          uuid.UUID
	BaseCost    int
	Purchasable bool
}

// Catalog is the read-only reference data for one generation run
type Catalog struct {
	Blueprints  []Blueprint
	Exotics     []uuid.UUID
	Medicaments []uuid.UUID
}

// Spend is what a generation run allocated, in energy credits
type Spend struct {
	Budgets       map[Category]int `json:"budgets"`
	ExistingItems int              `json:"existing_items"`
	Items         int              `json:"items"`
	Exotics       int              `json:"exotics"`
	Medicaments   int              `json:"medicaments"`
	Chits         int              `json:"chits"`
}

// Total is everything the pack now holds, existing items included.
func (s Spend) Total() int {
	return s.ExistingItems + s.Items + s.Exotics + s.Medicaments + s.Chits
}

// Allocator fills packs with a fresh random source on every call
type Allocator struct {
	newShuffler func() (Shuffler, error)
}

func NewAllocator() *Allocator {
	return &Allocator{newShuffler: seededShuffler}
}

// NewAllocatorWith uses a fixed shuffler source, for tests and replays.
func NewAllocatorWith(source func() (Shuffler, error)) *Allocator {
	return &Allocator{newShuffler: source}
}

func (a *Allocator) Generate(p *Pack, ecPool int, gt *GroupType, cat *Catalog) (Spend, error) {
	shuffler, err := a.newShuffler()
	if err != nil {
		return Spend{}, err
	}
	return Generate(p, ecPool, gt, cat, shuffler)
}

func seededShuffler() (Shuffler, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))), nil
}

// DiscountedCost is floor(base * (1 - discount)).
func DiscountedCost(base int, discount float64) int {
	if base <= 0 {
		return 0
	}
	cost := int(math.Floor(float64(base)*(1-discount) + 1e-9))
	if cost < 0 {
		return 0
	}
	return cost
}

// Generate spends ecPool on p according to the group type's income split.
// Items are added on top of what the pack already holds, exotics and
// medicaments are regenerated, and everything left over becomes chits.
func Generate(p *Pack, ecPool int, gt *GroupType, cat *Catalog, shuffler Shuffler) (Spend, error) {
	if ecPool < 0 {
		return Spend{}, fmt.Errorf("%w: energy credit pool cannot be negative", common.ErrInvalidInput)
	}
	if err := gt.Validate(); err != nil {
		return Spend{}, err
	}
	if cat == nil {
		cat = &Catalog{}
	}

	// ====== 1. BUDGETS ======
	budgets, rounding := splitBudget(ecPool, gt.IncomeDistribution)
	spend := Spend{Budgets: budgets}
	leftover := rounding

	// ====== 2. ITEMS ======
	costs := make(map[uuid.UUID]int, len(cat.Blueprints))
	for _, b := range cat.Blueprints {
		costs[b.ID] = DiscountedCost(b.BaseCost, gt.IncomeItemsDiscount)
	}
	for _, id := range p.Items {
		spend.ExistingItems += costs[id]
	}

	remaining := budgets[CategoryItems] - spend.ExistingItems
	if remaining < 0 {
		remaining = 0
	}
	if enabled(gt, CategoryItems) && remaining > 0 {
		var eligible []Blueprint
		for _, b := range cat.Blueprints {
			if b.Purchasable {
				eligible = append(eligible, b)
			}
		}
		shuffler.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })

		for _, b := range eligible {
			cost := costs[b.ID]
			if cost > remaining {
				break
			}
			p.Items = append(p.Items, b.ID)
			remaining -= cost
			spend.Items += cost
		}
	}
	leftover += remaining

	// ====== 3. EXOTICS ======
	var exoticLeft int
	p.Exotics, spend.Exotics, exoticLeft = fillFlat(p.Exotics, cat.Exotics, budgets[CategoryExotics], gt.IncomeSubstanceCost, enabled(gt, CategoryExotics), shuffler)
	leftover += exoticLeft

	// ====== 4. MEDICAMENTS ======
	var medLeft int
	p.Medicaments, spend.Medicaments, medLeft = fillFlat(p.Medicaments, cat.Medicaments, budgets[CategoryMedicaments], gt.IncomeMedicamentCost, enabled(gt, CategoryMedicaments), shuffler)
	leftover += medLeft

	// ====== 5. CHITS ======
	spend.Chits = budgets[CategoryChits] + leftover
	p.EnergyChits = spend.Chits

	// ====== 6. DONE ======
	p.IsGenerated = true
	if p.Completion == nil {
		p.Completion = New().Completion
	}
	return spend, nil
}

// splitBudget floors every listed share. The rounding loss of the listed
// shares is returned separately so it can go to chits.
func splitBudget(ecPool int, dist Distribution) (map[Category]int, int) {
	budgets := make(map[Category]int, len(Categories))
	listedPct, allocated := 0, 0
	for _, cat := range Categories {
		pct := dist[cat]
		if pct <= 0 {
			continue
		}
		budgets[cat] = ecPool * pct / 100
		listedPct += pct
		allocated += budgets[cat]
	}
	return budgets, ecPool*listedPct/100 - allocated
}

func enabled(gt *GroupType, cat Category) bool {
	return gt.IncomeDistribution[cat] > 0
}

// fillFlat regenerates a flat-cost category. Returns the new list, the spend
// and the unspent budget.
func fillFlat(current []uuid.UUID, pool []uuid.UUID, budget, unitCost int, on bool, shuffler Shuffler) ([]uuid.UUID, int, int) {
	if !on || budget <= 0 {
		return current, 0, budget
	}

	out := []uuid.UUID{}
	if unitCost <= 0 {
		return out, 0, budget
	}

	shuffled := append([]uuid.UUID(nil), pool...)
	shuffler.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	remaining := budget
	for _, id := range shuffled {
		if unitCost > remaining {
			break
		}
		out = append(out, id)
		remaining -= unitCost
	}
	return out, budget - remaining, remaining
}
