package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/testutil"
)

var testPrices = []ModelPrice{
	{Name: "flux-pro", Type: "image", Credits: 10},
	{Name: "flux-dev", Type: "image", Credits: 4, Multiplier: "num_outputs"},
	{
		Name: "video-gen", Type: "video", Credits: 50,
		Overrides: []PriceOverride{
			{Params: map[string]string{"duration": "10", "resolution": "1080p"}, Credits: 200},
			{Params: map[string]string{"duration": "10"}, Credits: 100},
		},
	},
}

func TestMapsPrice(t *testing.T) {
	m := NewMaps(testPrices, 1)

	testCases := []struct {
		name   string
		model  string
		typ    string
		params map[string]any
		want   float64
	}{
		{name: "by name", model: "flux-pro", want: 10},
		{name: "multiplier", model: "flux-dev", params: map[string]any{"num_outputs": 3.0}, want: 12},
		{name: "multiplier absent", model: "flux-dev", want: 4},
		{name: "first matching override wins", model: "video-gen", params: map[string]any{"duration": 10, "resolution": "1080p"}, want: 200},
		{name: "partial override", model: "video-gen", params: map[string]any{"duration": 10, "resolution": "720p"}, want: 100},
		{name: "no override", model: "video-gen", params: map[string]any{"duration": 5}, want: 50},
		{name: "falls back to type", typ: "image", want: 10},
		{name: "unknown uses default", model: "nope", typ: "nope", want: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := testutil.ModelNode("n", tc.model, nil)
			if tc.typ != "" {
				n.Type = tc.typ
			}
			assert.Equal(t, tc.want, m.Price(n, tc.params))
		})
	}
}

func TestRelevantParams(t *testing.T) {
	got := RelevantParams(map[string]any{"duration": 5, "prompt": "a cat", "quality": "hd"}, []string{"duration", "quality", "resolution"})
	assert.Equal(t, map[string]any{"duration": 5, "quality": "hd"}, got)
}

type fakeFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeFetcher) GetModelPrices(ctx context.Context) ([]ModelPrice, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return testPrices, nil
}

func TestLoader_LoadsOnce(t *testing.T) {
	ctx, _ := testutil.Context(t)
	f := &fakeFetcher{release: make(chan struct{})}
	l := NewLoader(ctx, f, 1)
	assert.Equal(t, StateInitial, l.State())

	var wg sync.WaitGroup
	results := make([]*Maps, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := l.Load(ctx)
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}

	require.Eventually(t, func() bool { return l.State() == StateLoading }, time.Second, time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, StateLoaded, l.State())
	for _, m := range results {
		assert.Same(t, results[0], m)
	}

	m, ok := l.Maps()
	require.True(t, ok)
	assert.Contains(t, m.ModelsByName, "flux-pro")
}

func TestLoader_ErrorThenRetry(t *testing.T) {
	ctx, logs := testutil.Context(t)
	f := &fakeFetcher{err: errors.New("boom")}
	l := NewLoader(ctx, f, 1)

	_, err := l.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, l.State())
	assert.Contains(t, logs.String(), "Model prices could not be loaded.")

	f.err = nil
	m, err := l.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Equal(t, StateLoaded, l.State())
	assert.Equal(t, int32(2), f.calls.Load())
}
