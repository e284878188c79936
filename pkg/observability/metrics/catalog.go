package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics counts listing operations.
type CatalogMetrics struct {
	operations  *prometheus.CounterVec
	searchTime  prometheus.Histogram
	searchHits  prometheus.Histogram
	allocations *prometheus.CounterVec
}

func newCatalogMetrics() *CatalogMetrics {
	return &CatalogMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_listing_operations_total",
				Help: "Listing operations by name and outcome",
			},
			[]string{"operation", "outcome"},
		),
		searchTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketplace_listing_search_duration_seconds",
				Help:    "Time spent answering catalog searches",
				Buckets: prometheus.DefBuckets,
			},
		),
		searchHits: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketplace_listing_search_matches",
				Help:    "Total matches per catalog search before pagination",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		allocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_sequence_allocations_total",
				Help: "Sequence numbers handed out by backend",
			},
			[]string{"backend"},
		),
	}
}

func (m *CatalogMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.operations, m.searchTime, m.searchHits, m.allocations)
}

// Operation records the outcome ("ok", "not_found", "invalid", "error") of a listing operation.
func (m *CatalogMetrics) Operation(name, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

// Search records the duration and total match count of one search.
func (m *CatalogMetrics) Search(duration time.Duration, total int64) {
	if m == nil {
		return
	}
	m.searchTime.Observe(duration.Seconds())
	m.searchHits.Observe(float64(total))
}

// Allocation counts one sequence number handed out by backend.
func (m *CatalogMetrics) Allocation(backend string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(backend).Inc()
}
