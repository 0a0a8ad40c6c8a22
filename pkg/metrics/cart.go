package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cart mutation outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// CartMetrics records cart store activity.
type CartMetrics struct {
	mutations  *prometheus.CounterVec
	recoveries prometheus.Counter
	sessions   prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	recoveries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_snapshot_recoveries_total",
		Help: "Corrupt cart snapshots reset to an empty cart on load.",
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_open_sessions",
		Help: "Cart sessions currently held in memory.",
	})
	reg.MustRegister(mutations, recoveries, sessions)
	return &CartMetrics{
		mutations:  mutations,
		recoveries: recoveries,
		sessions:   sessions,
	}
}

// ObserveMutation counts a cart mutation with its outcome.
func (c *CartMetrics) ObserveMutation(op, outcome string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

// IncRecovery counts a corrupt snapshot that was reset.
func (c *CartMetrics) IncRecovery() {
	if c == nil || c.recoveries == nil {
		return
	}
	c.recoveries.Inc()
}

// SetOpenSessions reports the number of sessions held in memory.
func (c *CartMetrics) SetOpenSessions(n int) {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
