package metrics

import (
	"time"
)

// Channel states reported by SetChannelState.
var channelStates = []string{"disconnected", "connecting", "connected"}

// UpdateGraphSize records the current node and edge counts.
func (r *Registry) UpdateGraphSize(nodes, edges int) {
	if r == nil {
		return
	}
	r.GraphNodes.Set(float64(nodes))
	r.GraphEdges.Set(float64(edges))
}

// RecordEdgeCreated counts a new edge by origin.
func (r *Registry) RecordEdgeCreated(origin string) {
	if r == nil {
		return
	}
	r.EdgesCreatedTotal.WithLabelValues(origin).Inc()
}

// RecordEdgeRejected counts a refused connection by reason.
func (r *Registry) RecordEdgeRejected(reason string) {
	if r == nil {
		return
	}
	r.EdgeRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordCostRecompute records a recomputation and, for remote lookups, its duration.
func (r *Registry) RecordCostRecompute(mode, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.CostRecomputeTotal.WithLabelValues(mode, status).Inc()
	if duration > 0 {
		r.CostFetchDuration.Observe(duration.Seconds())
	}
}

// RecordSave records a save attempt. Duration and size are only observed for
// attempts that reached the remote store.
func (r *Registry) RecordSave(outcome string, duration time.Duration, payloadBytes int) {
	if r == nil {
		return
	}
	r.SavesTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		r.SaveDuration.Observe(duration.Seconds())
	}
	if payloadBytes > 0 {
		r.SavePayloadBytes.Observe(float64(payloadBytes))
	}
}

// SetChannelState sets the current live channel state
func (r *Registry) SetChannelState(state string) {
	if r == nil {
		return
	}
	for _, s := range channelStates {
		r.ChannelState.WithLabelValues(s).Set(0)
	}
	r.ChannelState.WithLabelValues(state).Set(1)
}

// RecordChannelEvent counts an inbound live channel event.
func (r *Registry) RecordChannelEvent(event string) {
	if r == nil {
		return
	}
	r.ChannelEventsTotal.WithLabelValues(event).Inc()
}
