package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus records gate outcomes and latencies on a prometheus registry.
type Prometheus struct {
	outcomes  *prometheus.CounterVec
	latencies *prometheus.HistogramVec
}

// NewPrometheus registers the gate's collectors on reg. Passing nil uses the
// default registry.
func NewPrometheus(reg prometheus.Registerer) Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paygate",
			Name:      "gate_outcomes_total",
			Help:      "Payment gate outcomes per request",
		},
		[]string{"outcome", "network"},
	)

	latencies := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paygate",
			Name:      "pipeline_latency_seconds",
			Help:      "Latency of payment pipeline stages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "network"},
	)

	reg.MustRegister(outcomes, latencies)

	return &Prometheus{outcomes: outcomes, latencies: latencies}
}

func (p *Prometheus) IncOutcome(outcome, network string) {
	p.outcomes.WithLabelValues(outcome, network).Inc()
}

func (p *Prometheus) ObserveLatency(operation, network string, d time.Duration) {
	p.latencies.WithLabelValues(operation, network).Observe(d.Seconds())
}
