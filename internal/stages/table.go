// Package stages holds the ordered stage lists shared by condition and
// research definitions.
package stages

import (
	"fmt"
	"sort"

	"larpcore/internal/common"
)

// Numbered is anything that carries a 1-based stage number.
type Numbered interface {
	GetStageNumber() int
}

// Table is an immutable, number-ordered list of stages of one definition.
type Table[S Numbered] struct {
	stages   []S
	byNumber map[int]int
}

// NewTable sorts the stages by number. Duplicate numbers and numbers below 1
// are rejected; gaps are allowed here and caught by Validate.
func NewTable[S Numbered](list []S) (*Table[S], error) {
	sorted := make([]S, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GetStageNumber() < sorted[j].GetStageNumber()
	})

	byNumber := make(map[int]int, len(sorted))
	for i, s := range sorted {
		n := s.GetStageNumber()
		if n < 1 {
			return nil, fmt.Errorf("%w: stage number %d must be >= 1", common.ErrInvalidStage, n)
		}
		if _, dup := byNumber[n]; dup {
			return nil, fmt.Errorf("%w: duplicate stage number %d", common.ErrInvalidStage, n)
		}
		byNumber[n] = i
	}

	return &Table[S]{stages: sorted, byNumber: byNumber}, nil
}

// Validate checks that stage numbers run 1..N without gaps.
func (t *Table[S]) Validate() error {
	for i, s := range t.stages {
		if s.GetStageNumber() != i+1 {
			return fmt.Errorf("%w: expected stage %d, found %d", common.ErrInvalidStage, i+1, s.GetStageNumber())
		}
	}
	return nil
}

func (t *Table[S]) Len() int { return len(t.stages) }

// Lookup returns the stage with number n.
func (t *Table[S]) Lookup(n int) (S, bool) {
	var zero S
	i, ok := t.byNumber[n]
	if !ok {
		return zero, false
	}
	return t.stages[i], true
}

func (t *Table[S]) First() (S, bool) {
	var zero S
	if len(t.stages) == 0 {
		return zero, false
	}
	return t.stages[0], true
}

func (t *Table[S]) Last() (S, bool) {
	var zero S
	if len(t.stages) == 0 {
		return zero, false
	}
	return t.stages[len(t.stages)-1], true
}

// Next returns stage n+1. It does not skip over gaps.
func (t *Table[S]) Next(n int) (S, bool) { return t.Lookup(n + 1) }

// Prev returns stage n-1.
func (t *Table[S]) Prev(n int) (S, bool) { return t.Lookup(n - 1) }

// Find returns the first stage matching pred.
func (t *Table[S]) Find(pred func(S) bool) (S, bool) {
	var zero S
	for _, s := range t.stages {
		if pred(s) {
			return s, true
		}
	}
	return zero, false
}

// Stages returns a copy of the ordered stages.
func (t *Table[S]) Stages() []S {
	out := make([]S, len(t.stages))
	copy(out, t.stages)
	return out
}
