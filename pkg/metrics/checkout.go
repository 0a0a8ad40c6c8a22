package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records simulated order placement.
type CheckoutMetrics struct {
	orders     *prometheus.CounterVec
	orderValue prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Checkout submissions by outcome.",
	}, []string{"outcome"})
	orderValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_order_total_amount",
		Help:    "Order totals (including shipping and tax) of completed checkouts.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
	})
	reg.MustRegister(orders, orderValue)
	return &CheckoutMetrics{orders: orders, orderValue: orderValue}
}

// IncOrder counts a checkout submission with its outcome.
func (c *CheckoutMetrics) IncOrder(outcome string) {
	if c == nil || c.orders == nil {
		return
	}
	c.orders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveOrderTotal records the total of a completed order.
func (c *CheckoutMetrics) ObserveOrderTotal(total float64) {
	if c == nil || c.orderValue == nil {
		return
	}
	c.orderValue.Observe(total)
}
