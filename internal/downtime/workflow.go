package downtime

import (
	"fmt"
	"time"

	"larpcore/internal/common"

	"github.com/google/uuid"
)

// packTransitions lists the legal next states of a pack. manual_review may
// loop to itself while arbitrators keep adding decisions.
var packTransitions = map[PackStatus][]PackStatus{
	StatusEnterPack:     {StatusEnterDowntime},
	StatusEnterDowntime: {StatusManualReview},
	StatusManualReview:  {StatusManualReview, StatusCompleted},
	StatusCompleted:     {},
}

// CanTransition reports whether a pack may move from one state to another.
func CanTransition(from, to PackStatus) bool {
	for _, next := range packTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Step describes the state change a submission made. From == To when the
// submission only recorded data.
type Step struct {
	From PackStatus `json:"from"`
	To   PackStatus `json:"to"`
}

func (s Step) Moved() bool { return s.From != s.To }

// =============================================
// 1. PERIODS
// =============================================

// OpenPeriod creates a pending period. Several periods per event are allowed.
func OpenPeriod(eventID uuid.UUID, name string) *Period {
	return &Period{
		EventID: eventID,
		Name:    name,
		Status:  PeriodPending,
	}
}

// ClosePeriod completes a period whether or not its packs are completed.
func ClosePeriod(p *Period, now time.Time) error {
	if p.Status == PeriodCompleted {
		return fmt.Errorf("%w: period %s is already completed", common.ErrInvalidTransition, p.ID)
	}
	p.Status = PeriodCompleted
	p.ClosedAt = &now
	return nil
}

// Admit creates a character's pack in a pending period.
func Admit(p *Period, characterID uuid.UUID, existing *Pack) (*Pack, error) {
	if p.Status != PeriodPending {
		return nil, fmt.Errorf("%w: period %s is %s", common.ErrInvalidTransition, p.ID, p.Status)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: character %s already has a pack in period %s", common.ErrDuplicateAssignment, characterID, p.ID)
	}
	return &Pack{
		PeriodID:         p.ID,
		CharacterID:      characterID,
		Status:           StatusEnterPack,
		Items:            common.UUIDList{},
		ExoticSubstances: common.UUIDList{},
		Conditions:       common.UUIDList{},
		Samples:          common.UUIDList{},
		Cybernetics:      common.UUIDList{},
		ResearchTeams:    common.UUIDList{},
		ReviewData:       common.JSONB{},
	}, nil
}

// =============================================
// 2. PACK PHASES
// =============================================

// SubmitPackContents merges contents into a pack in enter_pack. Confirming
// moves the pack on to enter_downtime.
func SubmitPackContents(pack *Pack, contents PackContents, confirm bool) (Step, error) {
	step := Step{From: pack.Status, To: pack.Status}
	if err := requireStatus(pack, StatusEnterPack); err != nil {
		return step, err
	}

	if contents.EnergyCredits != nil {
		if *contents.EnergyCredits < 0 {
			return step, fmt.Errorf("%w: energy credits cannot be negative", common.ErrInvalidInput)
		}
		pack.EnergyCredits = *contents.EnergyCredits
	}
	pack.Items = mergeIDs(pack.Items, contents.Items, contents.Replace)
	pack.ExoticSubstances = mergeIDs(pack.ExoticSubstances, contents.ExoticSubstances, contents.Replace)
	pack.Conditions = mergeIDs(pack.Conditions, contents.Conditions, contents.Replace)
	pack.Samples = mergeIDs(pack.Samples, contents.Samples, contents.Replace)
	pack.Cybernetics = mergeIDs(pack.Cybernetics, contents.Cybernetics, contents.Replace)
	pack.ResearchTeams = mergeIDs(pack.ResearchTeams, contents.ResearchTeams, contents.Replace)

	if confirm {
		return advance(pack, StatusEnterDowntime)
	}
	return step, nil
}

// SubmitDowntimeActivities appends activity entries to a pack in
// enter_downtime. Nothing is stored if any entry is invalid.
func SubmitDowntimeActivities(pack *Pack, acts Activities, confirm bool) (Step, error) {
	step := Step{From: pack.Status, To: pack.Status}
	if err := requireStatus(pack, StatusEnterDowntime); err != nil {
		return step, err
	}
	if err := acts.Validate(); err != nil {
		return step, err
	}

	pack.Purchases = append(pack.Purchases, acts.Purchases...)
	pack.Modifications = append(pack.Modifications, acts.Modifications...)
	pack.Engineering = append(pack.Engineering, acts.Engineering...)
	pack.Science = append(pack.Science, acts.Science...)
	pack.Research = append(pack.Research, acts.Research...)
	pack.Reputation = append(pack.Reputation, acts.Reputation...)

	if confirm {
		return advance(pack, StatusManualReview)
	}
	return step, nil
}

// SubmitManualReview records arbitrator decisions. Without confirm the pack
// stays in manual_review so another arbitrator can add to it.
func SubmitManualReview(pack *Pack, review common.JSONB, confirm bool) (Step, error) {
	step := Step{From: pack.Status, To: pack.Status}
	if err := requireStatus(pack, StatusManualReview); err != nil {
		return step, err
	}

	pack.ReviewData = pack.ReviewData.Merge(review)

	if confirm {
		return advance(pack, StatusCompleted)
	}
	return advance(pack, StatusManualReview)
}

func requireStatus(pack *Pack, want PackStatus) error {
	if pack.Status != want {
		return fmt.Errorf("%w: pack is %s, expected %s", common.ErrInvalidTransition, pack.Status, want)
	}
	return nil
}

func advance(pack *Pack, to PackStatus) (Step, error) {
	step := Step{From: pack.Status, To: pack.Status}
	if !CanTransition(pack.Status, to) {
		return step, fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, pack.Status, to)
	}
	pack.Status = to
	step.To = to
	return step, nil
}

func mergeIDs(current common.UUIDList, incoming []uuid.UUID, replace bool) common.UUIDList {
	if replace && incoming != nil {
		return append(common.UUIDList{}, incoming...)
	}
	if current == nil {
		current = common.UUIDList{}
	}
	return append(current, incoming...)
}
