package gtfssql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultMetricsJob is the Pushgateway job name used when none is given
const DefaultMetricsJob = "gtfssql"

// Metrics collects import counters on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	rowsLoaded     *prometheus.CounterVec // gtfssql_rows_loaded_total{table}
	batchesFlushed *prometheus.CounterVec // gtfssql_batches_total{table}
	issues         *prometheus.CounterVec // gtfssql_issues_total{kind}
	filesMissing   prometheus.Counter
	loadDuration   *prometheus.SummaryVec // gtfssql_load_duration_seconds{table,status}
	phaseDuration  *prometheus.SummaryVec // gtfssql_phase_duration_seconds{phase}
}

// NewMetrics registers the import collectors on a fresh registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		rowsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfssql_rows_loaded_total",
				Help: "Rows inserted per table.",
			},
			[]string{"table"},
		),
		batchesFlushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfssql_batches_total",
				Help: "Insert batches flushed per table.",
			},
			[]string{"table"},
		),
		issues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gtfssql_issues_total",
				Help: "Issues recorded, partitioned by kind.",
			},
			[]string{"kind"},
		),
		filesMissing: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gtfssql_files_missing_total",
				Help: "Source files absent from the feed.",
			},
		),
		loadDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "gtfssql_load_duration_seconds",
				Help:       "Duration of one table load in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"table", "status"},
		),
		phaseDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "gtfssql_phase_duration_seconds",
				Help:       "Duration of the index and optimizer phases in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"phase"},
		),
	}

	collectors := []prometheus.Collector{
		m.rowsLoaded, m.batchesFlushed, m.issues, m.filesMissing, m.loadDuration, m.phaseDuration,
	}
	for _, c := range collectors {
		if err := m.reg.Register(c); err != nil {
			return nil, fmt.Errorf("gtfssql: register metrics: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry holding the import collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) addRows(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsLoaded.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) addBatches(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.batchesFlushed.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) incIssue(kind string) {
	if m == nil {
		return
	}
	m.issues.WithLabelValues(kind).Inc()
}

func (m *Metrics) incFileMissing() {
	if m == nil {
		return
	}
	m.filesMissing.Inc()
}

func (m *Metrics) observeLoad(table string, status FileStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.WithLabelValues(table, string(status)).Observe(d.Seconds())
}

func (m *Metrics) observePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Push sends the current values to a Prometheus Pushgateway.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil {
		return nil
	}
	if gatewayURL == "" {
		return errors.New("gtfssql: pushgateway URL is required")
	}
	if job == "" {
		job = DefaultMetricsJob
	}
	if err := push.New(gatewayURL, job).Gatherer(m.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("gtfssql: push metrics: %w", err)
	}
	return nil
}
