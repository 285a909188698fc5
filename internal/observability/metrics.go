package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "predictor"

// Metrics is the prometheus sink for reconciliation and settlement counters.
type Metrics struct {
	registry        *prometheus.Registry
	passDuration    *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	settlements     *prometheus.CounterVec
	pointsAwarded   prometheus.Counter
	providerErrors  *prometheus.CounterVec
	providerRegress prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "reconciliation",
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes by job and final status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "match",
			Name:      "transitions_total",
			Help:      "Committed match status transitions.",
		}, []string{"from", "to", "source"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "wagers_total",
			Help:      "Wagers processed by settlement runs, by result.",
		}, []string{"result"}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "settlement",
			Name:      "points_awarded_total",
			Help:      "Points credited to members by settlement.",
		}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "fixture_source",
			Name:      "errors_total",
			Help:      "Failed fixture source calls by operation.",
		}, []string{"operation"}),
		providerRegress: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "match",
			Name:      "conflicts_total",
			Help:      "Provider reports that disagree with a finished or manually managed match.",
		}),
	}
	registry.MustRegister(m.passDuration, m.transitions, m.settlements, m.pointsAwarded, m.providerErrors, m.providerRegress)
	return m
}

func (m *Metrics) ObservePass(job, status string, duration time.Duration) {
	m.passDuration.WithLabelValues(job, status).Observe(duration.Seconds())
}

func (m *Metrics) AddTransition(from, to, source string) {
	m.transitions.WithLabelValues(from, to, source).Inc()
}

func (m *Metrics) AddSettlement(applied, skipped, failed int, points int64) {
	m.settlements.WithLabelValues("applied").Add(float64(applied))
	m.settlements.WithLabelValues("skipped").Add(float64(skipped))
	m.settlements.WithLabelValues("failed").Add(float64(failed))
	if points > 0 {
		m.pointsAwarded.Add(float64(points))
	}
}

func (m *Metrics) AddProviderError(operation string) {
	m.providerErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) AddConflict() {
	m.providerRegress.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
