package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records the money-movement operations of the orchestrator.
// Partial commits are the operator alert surface: an external call succeeded
// but the local transaction did not.
type SettlementMetrics struct {
	operations      *prometheus.CounterVec
	failures        *prometheus.CounterVec
	partialCommits  *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_operations_total",
		Help: "Completed settlement operations by stage.",
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_failures_total",
		Help: "Failed settlement operations by stage and error code.",
	}, []string{"operation", "code"})
	partialCommits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_partial_commits_total",
		Help: "External call succeeded but local commit failed; reconciliation required.",
	}, []string{"operation"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_reconciliations_total",
		Help: "Reconciliation passes by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_operation_duration_seconds",
		Help:    "Duration of settlement operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(operations, failures, partialCommits, reconciliations, duration)
	return &SettlementMetrics{
		operations:      operations,
		failures:        failures,
		partialCommits:  partialCommits,
		reconciliations: reconciliations,
		duration:        duration,
	}
}

// IncOperation counts a completed settlement operation.
func (m *SettlementMetrics) IncOperation(operation string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure counts a failed settlement operation.
func (m *SettlementMetrics) IncFailure(operation, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// IncPartialCommit counts a money-moved-but-not-recorded incident.
func (m *SettlementMetrics) IncPartialCommit(operation string) {
	if m == nil || m.partialCommits == nil {
		return
	}
	m.partialCommits.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncReconciliation counts a reconciliation pass by outcome.
func (m *SettlementMetrics) IncReconciliation(outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long a settlement operation took.
func (m *SettlementMetrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
