package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	LoginAttempts       *prometheus.CounterVec
	Lockouts            prometheus.Counter
	ActiveRecoveries    prometheus.Gauge
	RecoveryEvents      *prometheus.CounterVec
	ExplanationRequests *prometheus.CounterVec
	GeneratorErrors     *prometheus.CounterVec
	GeneratorLatency    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login evaluations by outcome.",
		}, []string{"outcome"}),
		Lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Accounts locked by the lockout policy.",
		}),
		ActiveRecoveries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_recovery_conversations",
			Help:      "Number of live recovery conversations.",
		}),
		RecoveryEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_events_total",
			Help:      "Recovery conversation events by type.",
		}, []string{"event"}),
		ExplanationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explanation_requests_total",
			Help:      "Status explanations by strategy and result.",
		}, []string{"strategy", "result"}),
		GeneratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_errors_total",
			Help:      "Dialogue generator errors by kind.",
		}, []string{"kind"}),
		GeneratorLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_latency_ms",
			Help:      "Dialogue generator round-trip latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		}),
	}
}

func (m *Metrics) ObserveGeneratorLatency(d time.Duration) {
	m.GeneratorLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
