// Package metrics defines the collector interface for document store
// instrumentation, with a Prometheus implementation and a no-op default.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives document store operation outcomes.
type Collector interface {
	// ObserveStoreOp records one store round-trip: the operation name
	// (commit, get, history, query), its duration, and whether it failed.
	ObserveStoreOp(op string, duration time.Duration, err error)

	// RecordBreakerState records a circuit breaker state change.
	RecordBreakerState(state string)
}

// =============================================================================
// NO-OP COLLECTOR
// =============================================================================

// NoOp discards all observations. The default when metrics are disabled.
type NoOp struct{}

func (NoOp) ObserveStoreOp(string, time.Duration, error) {}
func (NoOp) RecordBreakerState(string)                   {}

// =============================================================================
// PROMETHEUS COLLECTOR
// =============================================================================

// Prometheus implements Collector with prometheus counters and histograms.
type Prometheus struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	breaker  *prometheus.GaugeVec
}

// NewPrometheus creates a collector and registers its metrics with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_store_ops_total",
			Help: "Document store operations by name and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_store_op_duration_seconds",
			Help:    "Document store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		breaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_store_breaker_state",
			Help: "Circuit breaker state (1 = current state).",
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{p.ops, p.duration, p.breaker} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) ObserveStoreOp(op string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.ops.WithLabelValues(op, outcome).Inc()
	p.duration.WithLabelValues(op).Observe(duration.Seconds())
}

func (p *Prometheus) RecordBreakerState(state string) {
	p.breaker.Reset()
	p.breaker.WithLabelValues(state).Set(1)
}
