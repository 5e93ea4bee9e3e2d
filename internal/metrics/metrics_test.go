package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.NotNil(t, r.EdgesCreatedTotal)
	assert.NotNil(t, r.SavesTotal)
	assert.NotNil(t, r.ChannelState)
	assert.NotNil(t, r.registry)
}

func TestRecordEdges(t *testing.T) {
	r := NewRegistry()
	r.RecordEdgeCreated("manual")
	r.RecordEdgeCreated("proximity")
	r.RecordEdgeCreated("proximity")
	r.RecordEdgeRejected("cycle")

	c, err := r.EdgesCreatedTotal.GetMetricWithLabelValues("proximity")
	require.NoError(t, err)
	assert.Equal(t, 2.0, counterValue(t, c))

	c, err = r.EdgeRejectionsTotal.GetMetricWithLabelValues("cycle")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, c))
}

func TestRecordSave(t *testing.T) {
	r := NewRegistry()
	r.RecordSave("saved", 20*time.Millisecond, 2048)
	r.RecordSave("skipped", 0, 0)

	c, err := r.SavesTotal.GetMetricWithLabelValues("saved")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, c))

	var m dto.Metric
	require.NoError(t, r.SavePayloadBytes.Write(&m))
	assert.Equal(t, uint64(1), m.Histogram.GetSampleCount())
}

func TestSetChannelState(t *testing.T) {
	r := NewRegistry()
	r.SetChannelState("connecting")
	r.SetChannelState("connected")

	g, err := r.ChannelState.GetMetricWithLabelValues("connected")
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, g))

	g, err = r.ChannelState.GetMetricWithLabelValues("connecting")
	require.NoError(t, err)
	assert.Equal(t, 0.0, counterValue(t, g))
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.RecordEdgeCreated("manual")
		r.RecordSave("saved", time.Second, 1)
		r.SetChannelState("connected")
		r.RecordChannelEvent("batch_run_status")
		r.RecordCostRecompute("predictable", "ok", 0)
		r.UpdateGraphSize(1, 1)
	})
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordChannelEvent("batch_run_status")

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `nodeflow_channel_events_total{event="batch_run_status"} 1`)
}
