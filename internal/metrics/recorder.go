package metrics

import (
	"errors"
	"time"

	"larpcore/internal/common"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder publishes operation results and state transitions.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	spend       *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larpcore",
			Name:      "operations_total",
			Help:      "Service operations by result.",
		}, []string{"operation", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "larpcore",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larpcore",
			Name:      "state_transitions_total",
			Help:      "State machine transitions by machine and target state.",
		}, []string{"machine", "to"}),
		spend: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "larpcore",
			Name:      "pack_allocation_ec_total",
			Help:      "Energy credits allocated by generated packs, per category.",
		}, []string{"category"}),
	}
	reg.MustRegister(r.operations, r.durations, r.transitions, r.spend)
	return r
}

// Observe records the outcome of one service operation.
func (r *Recorder) Observe(operation string, started time.Time, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, resultLabel(err)).Inc()
	r.durations.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Transition counts a committed state change.
func (r *Recorder) Transition(machine, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(machine, to).Inc()
}

// Spend adds allocated energy credits for a category.
func (r *Recorder) Spend(category string, ec int) {
	if r == nil || ec <= 0 {
		return
	}
	r.spend.WithLabelValues(category).Add(float64(ec))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrInvalidStage),
		errors.Is(err, common.ErrInvalidTransition),
		errors.Is(err, common.ErrDuplicateAssignment),
		errors.Is(err, common.ErrNoStages),
		errors.Is(err, common.ErrInsufficientTeachingProgress),
		errors.Is(err, common.ErrInvalidInput):
		return "rejected"
	default:
		return "error"
	}
}
