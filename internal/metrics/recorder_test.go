package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"larpcore/internal/common"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	rec.Observe("advance_research", time.Now(), nil)
	rec.Observe("advance_research", time.Now(), fmt.Errorf("%w: finished", common.ErrInvalidTransition))
	rec.Observe("advance_research", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("advance_research", "ok")); got != 1 {
		t.Fatalf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("advance_research", "rejected")); got != 1 {
		t.Fatalf("expected 1 rejected, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("advance_research", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}

func TestRecorderTransitionsAndSpend(t *testing.T) {
	rec := NewRecorder(prometheus.NewRegistry())

	rec.Transition("downtime_pack", "enter_downtime")
	rec.Spend("items", 40)
	rec.Spend("items", 0)

	if got := testutil.ToFloat64(rec.transitions.WithLabelValues("downtime_pack", "enter_downtime")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(rec.spend.WithLabelValues("items")); got != 40 {
		t.Fatalf("expected 40 ec spent, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Observe("x", time.Now(), nil)
	rec.Transition("m", "s")
	rec.Spend("items", 10)
}
