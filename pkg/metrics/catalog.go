package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics records remote catalog calls.
type CatalogMetrics struct {
	duration *prometheus.HistogramVec
	cache    *prometheus.CounterVec
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Duration of remote catalog requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Catalog cache lookups by result (hit, miss, error).",
	}, []string{"result"})
	reg.MustRegister(duration, cache)
	return &CatalogMetrics{duration: duration, cache: cache}
}

// ObserveRequest records the duration of a catalog request.
func (c *CatalogMetrics) ObserveRequest(endpoint string, err error, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.duration.WithLabelValues(normalizeLabel(endpoint), outcome).Observe(duration.Seconds())
}

// IncCache counts a cache lookup result.
func (c *CatalogMetrics) IncCache(result string) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.WithLabelValues(normalizeLabel(result)).Inc()
}
