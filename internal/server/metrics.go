package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/sqlheur/internal/engine"
	"github.com/roach88/sqlheur/internal/ir"
)

const (
	metricsNamespace = "sqlheur"
	metricsSubsystem = "heuristic"
)

// Metrics holds the Prometheus metrics of observed queries.
//
// Metrics implements engine.Sink; pass it to the observer with
// engine.WithSink so that every observation is counted.
//
// Thread-safety: all operations are thread-safe via Prometheus's internal
// locking.
type Metrics struct {
	// ObservationsTotal counts observations by outcome.
	// Labels: outcome (scored, fallback, failed)
	ObservationsTotal *prometheus.CounterVec

	// FallbacksTotal counts queries that scored the fallback distance.
	FallbacksTotal prometheus.Counter

	// Distance is the distribution of appended distances.
	Distance prometheus.Histogram

	// ResetsTotal counts resets of the heuristic list.
	ResetsTotal prometheus.Counter
}

var _ engine.Sink = (*Metrics)(nil)

// NewMetrics creates the metrics and registers them with reg.
// Returns an error if any metric is already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ObservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "observations_total",
			Help:      "Observed filtering queries by outcome.",
		}, []string{"outcome"}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "fallbacks_total",
			Help:      "Queries that could not be scored and received the fallback distance.",
		}),
		Distance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "distance",
			Help:      "Distances appended to the heuristic list.",
			Buckets:   append([]float64{0}, prometheus.ExponentialBuckets(0.001, 10, 13)...),
		}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "resets_total",
			Help:      "Resets of the heuristic list.",
		}),
	}

	for _, c := range []prometheus.Collector{m.ObservationsTotal, m.FallbacksTotal, m.Distance, m.ResetsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observed records one observation.
func (m *Metrics) Observed(obs ir.Observation) {
	m.ObservationsTotal.WithLabelValues(string(obs.Outcome)).Inc()
	if obs.Outcome == ir.OutcomeFallback {
		m.FallbacksTotal.Inc()
	}
	if obs.Counted() {
		m.Distance.Observe(obs.Distance)
	}
}
