package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ClientOutcomeSucceeded = "succeeded"
	ClientOutcomeSkipped   = "skipped"
	ClientOutcomeFailed    = "failed"
)

const (
	MonthOutcomeSucceeded = "succeeded"
	MonthOutcomeFailed    = "failed"
)

const (
	TimeEntryStrategyBillableFilter = "billable_filter"
	TimeEntryStrategyDateRange      = "date_range"
)

// Config carries the labels stamped onto every reconciler metric.
type Config struct {
	ServiceName string
	Environment string
}

// ReconcilerMetrics captures reconciliation health signals.
type ReconcilerMetrics struct {
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	clientOutcomes *prometheus.CounterVec
	monthOutcomes  *prometheus.CounterVec
	strategyUsed   *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
}

var (
	reconcilerMetricsOnce sync.Once
	reconcilerMetrics     *ReconcilerMetrics
)

// Reconciler returns the singleton reconciler metrics registry.
func Reconciler() *ReconcilerMetrics {
	return ReconcilerWithConfig(Config{})
}

// ReconcilerWithConfig returns the singleton reconciler metrics registry using config labels.
func ReconcilerWithConfig(cfg Config) *ReconcilerMetrics {
	reconcilerMetricsOnce.Do(func() {
		reconcilerMetrics = newReconcilerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reconcilerMetrics
}

// ResetReconcilerMetricsForTest resets the reconciler metrics singleton for tests.
func ResetReconcilerMetricsForTest() {
	reconcilerMetricsOnce = sync.Once{}
	reconcilerMetrics = nil
}

func newReconcilerMetrics(registerer prometheus.Registerer, cfg Config) *ReconcilerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "usagesync"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &ReconcilerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "usagesync_reconcile_runs_total",
			Help:        "Reconciliation runs started.",
			ConstLabels: constLabels,
		}, []string{"trigger"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "usagesync_reconcile_run_duration_seconds",
			Help:        "Wall time per reconciliation run.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"trigger"}),
		clientOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "usagesync_reconcile_clients_total",
			Help:        "Per-client reconciliation outcomes.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		monthOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "usagesync_reconcile_months_total",
			Help:        "Per-month reconciliation outcomes.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		strategyUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "usagesync_time_entry_strategy_total",
			Help:        "Which time entry query strategy served an aggregation.",
			ConstLabels: constLabels,
		}, []string{"strategy"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "usagesync_psa_errors_total",
			Help:        "Upstream PSA call failures by endpoint.",
			ConstLabels: constLabels,
		}, []string{"endpoint"}),
	}

	registerer.MustRegister(
		m.runs,
		m.runDuration,
		m.clientOutcomes,
		m.monthOutcomes,
		m.strategyUsed,
		m.upstreamErrors,
	)

	return m
}

func (m *ReconcilerMetrics) IncRun(trigger string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(trigger).Inc()
}

func (m *ReconcilerMetrics) ObserveRunDuration(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *ReconcilerMetrics) IncClientOutcome(outcome string) {
	if m == nil {
		return
	}
	m.clientOutcomes.WithLabelValues(outcome).Inc()
}

func (m *ReconcilerMetrics) IncMonthOutcome(outcome string) {
	if m == nil {
		return
	}
	m.monthOutcomes.WithLabelValues(outcome).Inc()
}

func (m *ReconcilerMetrics) IncStrategyUsed(strategy string) {
	if m == nil {
		return
	}
	m.strategyUsed.WithLabelValues(strategy).Inc()
}

func (m *ReconcilerMetrics) IncUpstreamError(endpoint string) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(endpoint).Inc()
}
