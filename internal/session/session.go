// Package session owns the state of one open recipe. A Session wires the
// graph store to every component that reacts to it and tears them all down
// together; nothing in it outlives Close.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/connect"
	"github.com/vk/nodeflow/internal/cost"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/graph"
	"github.com/vk/nodeflow/internal/livesync"
	"github.com/vk/nodeflow/internal/metrics"
	"github.com/vk/nodeflow/internal/model"
	"github.com/vk/nodeflow/internal/persist"
	"github.com/vk/nodeflow/internal/pricing"
	"github.com/vk/nodeflow/internal/registry"
)

// Access is the caller's role and credentials on the open recipe.
type Access struct {
	Role     model.Role
	Token    string
	Provider string
}

// Factory opens sessions sharing the same settings and backends.
type Factory struct {
	Settings *config.Settings
	Saver    persist.Saver
	Prices   pricing.Fetcher
	// Calculate prices selections fed by iterators. Without it such
	// selections cannot be estimated.
	Calculate cost.CalculateFunc
	// Dialer creates live channel transports. A nil Dialer disables the
	// live channel.
	Dialer   livesync.Dialer
	Registry *registry.Registry
	Metrics  *metrics.Registry
}

// Session is the owned state of one open recipe.
type Session struct {
	recipe    *model.Recipe
	logger    *slog.Logger
	metrics   *metrics.Registry
	store     *graph.Store
	engine    *connect.Engine
	proximity *connect.Proximity
	prices    *pricing.Loader
	estimator *cost.Estimator
	saves     *persist.Coordinator
	channel   *livesync.Channel

	mu      sync.Mutex
	access  Access
	closed  bool
	unwatch func()
}

// Open loads recipe into a fresh graph store and builds the components
// around it. Nodes without handles get the ones their type declares. A
// recipe whose edges form a cycle is rejected.
func (f *Factory) Open(ctx context.Context, recipe *model.Recipe, access Access) (*Session, error) {
	if f.Saver == nil || f.Prices == nil {
		return nil, fmt.Errorf("session factory needs a saver and a price fetcher")
	}
	settings := f.Settings
	if settings == nil {
		settings = config.DefaultSettings()
	}
	ctx = ctxlog.With(ctx, "recipe_id", recipe.ID)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Opening session.", "nodes", len(recipe.Nodes), "edges", len(recipe.Edges))

	nodes := make([]*model.Node, 0, len(recipe.Nodes))
	for _, n := range recipe.Nodes {
		if f.Registry != nil {
			n = f.Registry.ApplyDefaults(n)
		}
		nodes = append(nodes, n)
	}
	if err := graph.DetectCycles(nodes, recipe.Edges); err != nil {
		return nil, fmt.Errorf("recipe %s: %w", recipe.ID, err)
	}

	store := graph.New(ctx)
	if err := store.Reset(nodes, recipe.Edges); err != nil {
		return nil, fmt.Errorf("recipe %s: %w", recipe.ID, err)
	}

	s := &Session{
		recipe:  recipe,
		logger:  logger,
		metrics: f.Metrics,
		store:   store,
		access:  access,
	}
	s.engine = connect.NewEngine(ctx, store, f.Metrics)
	s.engine.RefreshAllValidation()
	s.proximity = connect.NewProximity(ctx, s.engine, settings.Proximity)
	s.prices = pricing.NewLoader(ctx, f.Prices, settings.DefaultPrice)
	s.estimator = cost.New(ctx, store, s.prices, cost.Options{
		Debounce:       settings.CostDebounce,
		RelevantParams: settings.PricingParams,
		Calculate:      f.Calculate,
		Metrics:        f.Metrics,
	})
	s.saves = persist.NewCoordinator(ctx, store, f.Saver, persist.Config{
		RecipeID:  recipe.ID,
		Version:   recipe.Version,
		UpdatedAt: recipe.UpdatedAt,
		Role:      access.Role,
		Metrics:   f.Metrics,
	})
	if f.Dialer != nil {
		s.channel = livesync.NewChannel(ctx, f.Dialer, f.Metrics)
		if err := s.channel.Update(ctx, s.channelParams()); err != nil {
			logger.Warn("Live channel could not be opened.", "error", err)
		}
	}

	s.unwatch = store.Observe(s.onChange)
	f.Metrics.UpdateGraphSize(store.Len(), len(store.Edges()))
	return s, nil
}

// LoadPrices fetches the price list if it is not loaded yet and reprices the
// selection once it is.
func (s *Session) LoadPrices(ctx context.Context) error {
	if _, err := s.prices.Load(ctx); err != nil {
		return err
	}
	s.estimator.Refresh()
	return nil
}

// SetAccess applies a new role or new credentials. Saves are gated on the
// role immediately; the live channel is reopened or closed to match.
func (s *Session) SetAccess(ctx context.Context, access Access) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session for recipe %s is closed", s.recipe.ID)
	}
	s.access = access
	params := s.channelParams()
	s.mu.Unlock()

	s.saves.SetRole(access.Role)
	if s.channel == nil {
		return nil
	}
	return s.channel.Update(ctx, params)
}

// Recipe returns the recipe as currently held: the live graph, the
// sections and metadata it was opened with, and the last observed
// updatedAt.
func (s *Session) Recipe() *model.Recipe {
	snap := s.store.Snapshot()
	r := *s.recipe
	r.Nodes = snap.Nodes
	r.Edges = snap.Edges
	r.UpdatedAt = s.saves.UpdatedAt()
	return &r
}

func (s *Session) Store() *graph.Store { return s.store }
func (s *Session) Engine() *connect.Engine { return s.engine }
func (s *Session) Proximity() *connect.Proximity { return s.proximity }
func (s *Session) Prices() *pricing.Loader { return s.prices }
func (s *Session) Estimator() *cost.Estimator { return s.estimator }
func (s *Session) Saves() *persist.Coordinator { return s.saves }

// Channel returns the live channel, or nil when the session has none.
func (s *Session) Channel() *livesync.Channel { return s.channel }

// Close stops every timer, closes the live channel and detaches from the
// store. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unwatch()
	s.proximity.Close()
	s.estimator.Close()
	if s.channel != nil {
		s.channel.Close()
	}
	s.logger.Debug("Session closed.")
}

// channelParams must be called with mu held, or before the session is shared.
func (s *Session) channelParams() livesync.Params {
	return livesync.Params{
		RecipeID: s.recipe.ID,
		Token:    s.access.Token,
		Provider: s.access.Provider,
		Role:     s.access.Role,
	}
}

func (s *Session) onChange(c graph.Change) {
	switch c.Op {
	case graph.OpAddNode:
		s.engine.RefreshValidation(c.NodeID)
	default:
		s.engine.RefreshAllValidation()
	}
	s.metrics.UpdateGraphSize(s.store.Len(), len(s.store.Edges()))
	s.estimator.Invalidate()
}
