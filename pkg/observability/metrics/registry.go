// Package metrics exposes Prometheus metrics for the HTTP layer and the listing catalog.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a Prometheus registry preloaded with the HTTP, catalog and
// Go runtime collectors. Each Registry is independent so tests can create
// as many as they like.
type Registry struct {
	registry *prometheus.Registry
	HTTP     *HTTPMetrics
	Catalog  *CatalogMetrics
}

// NewRegistry creates a registry with default collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	httpMetrics := newHTTPMetrics()
	catalog := newCatalogMetrics()
	httpMetrics.register(reg)
	catalog.register(reg)

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{
		registry: reg,
		HTTP:     httpMetrics,
		Catalog:  catalog,
	}
}

// Register registers a custom Prometheus collector.
func (r *Registry) Register(collector prometheus.Collector) error {
	return r.registry.Register(collector)
}

// MustRegister registers collectors and panics on error.
func (r *Registry) MustRegister(collectors ...prometheus.Collector) {
	r.registry.MustRegister(collectors...)
}

// Handler serves the registry in Prometheus exposition format.
// It is mounted on the management server at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gatherer returns the underlying prometheus.Gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
