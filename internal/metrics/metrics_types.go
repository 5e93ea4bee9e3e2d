// Package metrics exposes Prometheus collectors for the editor core: edge
// creation, cost recomputation, saves, and the live channel.
//
// Every Record method is safe to call on a nil *Registry so components can be
// constructed without metrics in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Graph Metrics
	GraphNodes          prometheus.Gauge
	GraphEdges          prometheus.Gauge
	EdgesCreatedTotal   *prometheus.CounterVec
	EdgeRejectionsTotal *prometheus.CounterVec

	// Cost Metrics
	CostRecomputeTotal *prometheus.CounterVec
	CostFetchDuration  prometheus.Histogram

	// Persistence Metrics
	SavesTotal       *prometheus.CounterVec
	SaveDuration     prometheus.Histogram
	SavePayloadBytes prometheus.Histogram

	// Channel Metrics
	ChannelState       *prometheus.GaugeVec
	ChannelEventsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initGraphMetrics()
	r.initCostMetrics()
	r.initPersistMetrics()
	r.initChannelMetrics()

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
