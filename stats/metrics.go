package stats

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsNamespace = "caronae_dw"

// Run outcomes counted by Metrics.CountRun.
const (
	RunOutcomeSuccess = "success"
	RunOutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors of the ETL on a private registry.
// A nil *Metrics ignores every call.
type Metrics struct {
	registry      *prometheus.Registry
	rowsSupplied  *prometheus.CounterVec
	rowsLoaded    *prometheus.CounterVec
	stepFailures  *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	watermark     prometheus.Gauge
	runs          *prometheus.CounterVec
	lastRunFinish prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsSupplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_extracted_total",
			Help:      "Rows extracted or generated per pipeline step.",
		}, []string{"step"}),
		rowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_loaded_total",
			Help:      "Rows upserted into the warehouse per pipeline step.",
		}, []string{"step"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "step_failures_total",
			Help:      "Failed pipeline steps.",
		}, []string{"step"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of pipeline steps.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"step"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unknown_member_fallbacks_total",
			Help:      "Fact foreign keys resolved to the unknown member per dimension.",
		}, []string{"dimension"}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Watermark written by the last successful run.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		lastRunFinish: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_finish_timestamp_seconds",
			Help:      "Time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.rowsSupplied, m.rowsLoaded, m.stepFailures, m.stepDuration, m.fallbacks,
		m.watermark, m.runs, m.lastRunFinish)
	return m
}

// ObserveStep records the final stats of a step.
func (m *Metrics) ObserveStep(s Stats, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rowsSupplied.WithLabelValues(s.StepName).Add(float64(s.RowsSupplied))
	m.rowsLoaded.WithLabelValues(s.StepName).Add(float64(s.RowsLoaded))
	m.stepDuration.WithLabelValues(s.StepName).Observe(elapsed.Seconds())
	if s.StatusText == StatusFailed {
		m.stepFailures.WithLabelValues(s.StepName).Inc()
	}
}

// AddFallbacks adds unknown member fallback counts keyed by dimension.
func (m *Metrics) AddFallbacks(counts map[string]int) {
	if m == nil {
		return
	}
	for dim, n := range counts {
		m.fallbacks.WithLabelValues(dim).Add(float64(n))
	}
}

func (m *Metrics) SetWatermark(t time.Time) {
	if m == nil {
		return
	}
	m.watermark.Set(float64(t.Unix()))
}

func (m *Metrics) CountRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.lastRunFinish.SetToCurrentTime()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the registry to a Prometheus Pushgateway.
func (m *Metrics) Push(ctx context.Context, url string, job string) error {
	if m == nil {
		return nil
	}
	if strings.TrimSpace(url) == "" {
		return errors.New("pushgateway url is required")
	}
	if strings.TrimSpace(job) == "" {
		return errors.New("pushgateway job is required")
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return errors.Wrap(err, "error pushing metrics")
	}
	return nil
}
