package transfer

import "github.com/prometheus/client_golang/prometheus"

// Batch outcomes as recorded in custody_batches_total.
const (
	OutcomeCommitted           = "committed"
	OutcomeRejected            = "rejected"
	OutcomeCompensated         = "compensated"
	OutcomeNeedsReconciliation = "needs_reconciliation"
)

// Metrics holds the transfer engine's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	Batches           *prometheus.CounterVec
	BatchTools        prometheus.Histogram
	CompensationFails *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_batches_total",
			Help: "Batch transfers by outcome.",
		}, []string{"outcome"}),
		BatchTools: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "custody_batch_tools",
			Help:    "Number of tools in committed batch transfers.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		CompensationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_compensation_step_failures_total",
			Help: "Compensation steps that failed after all retries.",
		}, []string{"step"}),
	}

	if reg != nil {
		reg.MustRegister(m.Batches, m.BatchTools, m.CompensationFails)
	}
	return m
}

func (m *Metrics) outcome(outcome string) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) committed(tools int) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(OutcomeCommitted).Inc()
	m.BatchTools.Observe(float64(tools))
}

func (m *Metrics) stepFailed(step string) {
	if m == nil {
		return
	}
	m.CompensationFails.WithLabelValues(step).Inc()
}
