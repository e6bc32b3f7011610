package stages

import (
	"encoding/json"
	"errors"
	"testing"

	"larpcore/internal/common"
)

type testStage struct {
	n    int
	name string
}

func (s testStage) GetStageNumber() int { return s.n }

func TestNewTableSortsByNumber(t *testing.T) {
	table, err := NewTable([]testStage{{3, "c"}, {1, "a"}, {2, "b"}})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	first, ok := table.First()
	if !ok || first.name != "a" {
		t.Fatalf("expected first stage a, got %+v", first)
	}
	last, ok := table.Last()
	if !ok || last.name != "c" {
		t.Fatalf("expected last stage c, got %+v", last)
	}
	next, ok := table.Next(1)
	if !ok || next.name != "b" {
		t.Fatalf("expected next of 1 to be b, got %+v", next)
	}
	if _, ok := table.Next(3); ok {
		t.Fatal("expected no stage after the last one")
	}
	if _, ok := table.Prev(1); ok {
		t.Fatal("expected no stage before the first one")
	}
}

func TestNewTableRejectsDuplicatesAndNonPositive(t *testing.T) {
	cases := map[string][]testStage{
		"duplicate": {{1, "a"}, {1, "b"}},
		"zero":      {{0, "a"}},
		"negative":  {{-2, "a"}},
	}
	for name, list := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTable(list)
			if !errors.Is(err, common.ErrInvalidStage) {
				t.Fatalf("expected ErrInvalidStage, got %v", err)
			}
		})
	}
}

func TestValidateDetectsGaps(t *testing.T) {
	table, err := NewTable([]testStage{{1, "a"}, {3, "c"}})
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if err := table.Validate(); !errors.Is(err, common.ErrInvalidStage) {
		t.Fatalf("expected gap to be rejected, got %v", err)
	}
	if _, ok := table.Next(1); ok {
		t.Fatal("next must not skip a gap")
	}
}

func TestEmptyTable(t *testing.T) {
	table, err := NewTable[testStage](nil)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d", table.Len())
	}
	if _, ok := table.First(); ok {
		t.Fatal("expected no first stage")
	}
}

func TestStagesReturnsCopy(t *testing.T) {
	table, _ := NewTable([]testStage{{1, "a"}})
	list := table.Stages()
	list[0].name = "mutated"
	s, _ := table.Lookup(1)
	if s.name != "a" {
		t.Fatalf("table must be immutable, got %q", s.name)
	}
}

func TestPositionRoundTrips(t *testing.T) {
	if !At(0).IsConcluded() {
		t.Fatal("stage 0 should be concluded")
	}

	var p Position
	if err := p.Scan(int64(4)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n, ok := p.Stage(); !ok || n != 4 {
		t.Fatalf("expected stage 4, got %v", p)
	}
	if v, _ := Concluded.Value(); v != nil {
		t.Fatalf("expected NULL for concluded, got %v", v)
	}

	data, err := json.Marshal(struct {
		A Position `json:"a"`
		B Position `json:"b"`
	}{At(2), Concluded})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a":2,"b":null}` {
		t.Fatalf("unexpected json %s", data)
	}

	var back struct {
		A Position `json:"a"`
		B Position `json:"b"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.A != At(2) || back.B != Concluded {
		t.Fatalf("unexpected round trip %v %v", back.A, back.B)
	}
}
