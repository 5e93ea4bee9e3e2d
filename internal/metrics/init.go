package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "nodeflow_graph_nodes",
			Help: "Number of nodes in the open recipe",
		},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "nodeflow_graph_edges",
			Help: "Number of edges in the open recipe",
		},
	)

	r.EdgesCreatedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodeflow_edges_created_total",
			Help: "Total number of edges created",
		},
		[]string{"origin"}, // manual, proximity
	)

	r.EdgeRejectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodeflow_edge_rejections_total",
			Help: "Total number of rejected connection attempts",
		},
		[]string{"reason"}, // cycle, incompatible, arity, duplicate, ...
	)
}

func (r *Registry) initCostMetrics() {
	r.CostRecomputeTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodeflow_cost_recompute_total",
			Help: "Total number of cost recomputations",
		},
		[]string{"mode", "status"},
	)

	r.CostFetchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodeflow_cost_fetch_duration_seconds",
			Help:    "Duration of combinatorial cost requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
}

func (r *Registry) initPersistMetrics() {
	r.SavesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodeflow_saves_total",
			Help: "Total number of save attempts by outcome",
		},
		[]string{"outcome"}, // saved, skipped, conflict, unknown
	)

	r.SaveDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodeflow_save_duration_seconds",
			Help:    "Duration of recipe save requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.SavePayloadBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodeflow_save_payload_bytes",
			Help:    "Size of serialized recipe save payloads in bytes",
			Buckets: []float64{1000, 10000, 100000, 1000000, 10000000},
		},
	)
}

func (r *Registry) initChannelMetrics() {
	r.ChannelState = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodeflow_channel_state",
			Help: "Live channel state (1 for current state, 0 otherwise)",
		},
		[]string{"state"}, // disconnected, connecting, connected
	)

	r.ChannelEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodeflow_channel_events_total",
			Help: "Total number of events received on the live channel",
		},
		[]string{"event"},
	)
}
