package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/cost"
	"github.com/vk/nodeflow/internal/iterators"
	"github.com/vk/nodeflow/internal/model"
	"github.com/vk/nodeflow/internal/persist"
	"github.com/vk/nodeflow/internal/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctx, _ := testutil.Context(t)
	c := New(ctx, Config{BaseURL: srv.URL, Token: "tok", Timeout: 5 * time.Second})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSaveRecipe(t *testing.T) {
	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/recipes/r1/save", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"nodes":[]}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"updatedAt":"2025-03-01T12:00:00Z"}`))
	})

	got, err := c.SaveRecipe(context.Background(), "r1", []byte(`{"nodes":[]}`))
	require.NoError(t, err)
	assert.True(t, updated.Equal(got))
}

func TestSaveRecipe_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stale", http.StatusConflict)
	})

	_, err := c.SaveRecipe(context.Background(), "r1", []byte(`{}`))
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.HTTPStatus())
	assert.Contains(t, statusErr.Body, "stale")
}

// The client plugs into the coordinator, which turns 409 into a conflict.
func TestSaveRecipe_ConflictThroughCoordinator(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	ctx, _ := testutil.Context(t)
	store := testutil.Store(t, []*model.Node{testutil.PassThrough("a")})
	coord := persist.NewCoordinator(ctx, store, c, persist.Config{RecipeID: "r1", Role: "editor"})

	res, err := coord.Save(ctx, persist.Options{})
	assert.ErrorIs(t, err, persist.ErrConflict)
	assert.Equal(t, persist.KindConflict, res.Kind)
}

func TestGetModelPrices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/prices", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"flux-pro","type":"image","credits":10},
			{"name":"video-gen","type":"video","credits":50,"multiplier":"duration",
			 "overrides":[{"params":{"resolution":"1080p"},"credits":80}]}
		]`))
	})

	prices, err := c.GetModelPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "flux-pro", prices[0].Name)
	assert.Equal(t, 10.0, prices[0].Credits)
	assert.Equal(t, "duration", prices[1].Multiplier)
	require.Len(t, prices[1].Overrides, 1)
	assert.Equal(t, 80.0, prices[1].Overrides[0].Credits)
}

func TestGetModelPrices_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.GetModelPrices(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestCostCalculator(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipes/r1/cost", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req costRequest
		require.NoError(t, sonic.Unmarshal(body, &req))
		assert.Equal(t, []string{"m"}, req.NodeIDs)
		assert.Equal(t, 3, req.Runs)
		require.Len(t, req.Iterators, 1)
		assert.Equal(t, "it", req.Iterators[0].NodeID)
		assert.Len(t, req.Iterators[0].Values, 4)

		_, _ = w.Write([]byte(`{"cost":120}`))
	})

	calc := c.CostCalculator("r1")
	got, err := calc(context.Background(), cost.Request{
		NodeIDs: []string{"m"},
		Runs:    3,
		Iterators: []iterators.PrecedingIteratorData{
			{IteratorNode: testutil.IteratorNode("it", "a", "b", "c", "d"), Path: []string{"m", "it"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, got)
}
