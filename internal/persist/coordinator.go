// Package persist saves the open recipe to the remote store.
//
// # Single-Flight Saves
//
// At most one save per recipe is in flight. A Save issued while another is
// outstanding returns immediately with OutcomeSkipped; it is neither queued
// nor rejected with an error. Callers that need a save after the in-flight
// one must retry themselves.
//
// # Optimistic Concurrency
//
// Every payload carries the last updatedAt the coordinator observed. The
// store answers 409 when another writer advanced it first; that failure is
// classified as KindConflict and leaves the local clock untouched. Only a
// successful save advances it.
//
// # Error Surfacing
//
// Unlike the other editor operations, a failed save is never swallowed: the
// *SaveError is returned to the caller and also recorded as the workflow
// error (LastError) until ClearError or the next successful save.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/graph"
	"github.com/vk/nodeflow/internal/metrics"
	"github.com/vk/nodeflow/internal/model"
	"github.com/vk/nodeflow/internal/validation"
)

// Payload is the body of a save request.
type Payload struct {
	Nodes             []*model.Node  `json:"nodes" validate:"required,min=1,dive,required"`
	Edges             []*model.Edge  `json:"edges" validate:"dive,required"`
	Version           int            `json:"version" validate:"gte=0"`
	PosterImageURL    string         `json:"posterImageUrl,omitempty" validate:"omitempty,url"`
	DesignAppMetadata map[string]any `json:"designAppMetadata,omitempty"`
	LastUpdatedAt     time.Time      `json:"lastUpdatedAt"`
}

// Saver submits an encoded payload and returns the store's new updatedAt.
// Errors carrying an HTTP status expose it through an HTTPStatus() int method.
type Saver interface {
	SaveRecipe(ctx context.Context, recipeID string, body []byte) (time.Time, error)
}

// Options are the per-call extras of a save.
type Options struct {
	PosterImageURL    string
	DesignAppMetadata map[string]any
}

// Config configures a Coordinator.
type Config struct {
	RecipeID  string
	Version   int
	UpdatedAt time.Time
	Role      model.Role
	// Sanitizer defaults to DefaultSanitizer.
	Sanitizer Sanitizer
	Metrics   *metrics.Registry
}

// Coordinator serializes saves of one recipe.
type Coordinator struct {
	recipeID  string
	source    graph.Reader
	saver     Saver
	sanitizer Sanitizer
	metrics   *metrics.Registry
	logger    *slog.Logger

	inFlight atomic.Bool

	mu        sync.Mutex
	role      model.Role
	version   int
	updatedAt time.Time
	lastErr   *SaveError
}

// NewCoordinator creates a coordinator saving the graph read from source.
func NewCoordinator(ctx context.Context, source graph.Reader, saver Saver, cfg Config) *Coordinator {
	sanitizer := cfg.Sanitizer
	if sanitizer == nil {
		sanitizer = DefaultSanitizer
	}
	return &Coordinator{
		recipeID:  cfg.RecipeID,
		source:    source,
		saver:     saver,
		sanitizer: sanitizer,
		metrics:   cfg.Metrics,
		logger:    ctxlog.FromContext(ctx).With("component", "persist", "recipe_id", cfg.RecipeID),
		role:      cfg.Role,
		version:   cfg.Version,
		updatedAt: cfg.UpdatedAt,
	}
}

// SetRole changes the caller role used by the save guard.
func (c *Coordinator) SetRole(role model.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.role = role
}

// UpdatedAt returns the last logical clock value observed from the store.
func (c *Coordinator) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Saving reports whether a save is in flight.
func (c *Coordinator) Saving() bool {
	return c.inFlight.Load()
}

// LastError returns the recorded workflow error, or nil.
func (c *Coordinator) LastError() *SaveError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ClearError forgets the recorded workflow error.
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
}

// Save persists the current graph. Guards that prevent a save return
// OutcomeSkipped with a nil error. A failed save returns OutcomeFailed
// together with a *SaveError.
func (c *Coordinator) Save(ctx context.Context, opts Options) (Result, error) {
	c.mu.Lock()
	role := c.role
	c.mu.Unlock()

	if !role.CanEdit() {
		return c.skip(ReasonNotEditor), nil
	}
	nodes := c.source.Nodes()
	if len(nodes) == 0 {
		c.logger.Warn("Refusing to save a recipe without nodes.")
		return c.skip(ReasonNoNodes), nil
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return c.skip(ReasonInFlight), nil
	}
	defer c.inFlight.Store(false)

	nodes, edges := c.sanitizer.Sanitize(nodes, c.source.Edges())

	c.mu.Lock()
	payload := &Payload{
		Nodes:             nodes,
		Edges:             edges,
		Version:           c.version,
		PosterImageURL:    opts.PosterImageURL,
		DesignAppMetadata: opts.DesignAppMetadata,
		LastUpdatedAt:     c.updatedAt,
	}
	c.mu.Unlock()

	if err := validation.Struct(payload); err != nil {
		return c.fail(KindUnknown, fmt.Errorf("invalid save payload: %w", err), 0, 0, len(nodes), len(edges))
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return c.fail(KindUnknown, fmt.Errorf("failed to encode save payload: %w", err), 0, 0, len(nodes), len(edges))
	}

	c.logger.Debug("Saving recipe.", "payload_bytes", len(body), "nodes", len(nodes), "edges", len(edges))
	start := time.Now()
	updatedAt, err := c.saver.SaveRecipe(ctx, c.recipeID, body)
	duration := time.Since(start)
	if err != nil {
		return c.fail(classify(err), err, duration, len(body), len(nodes), len(edges))
	}

	c.mu.Lock()
	c.updatedAt = updatedAt
	c.lastErr = nil
	c.mu.Unlock()

	c.metrics.RecordSave(string(OutcomeSaved), duration, len(body))
	c.logger.Info("Recipe saved.", "updated_at", updatedAt, "duration", duration)
	return Result{Outcome: OutcomeSaved, UpdatedAt: updatedAt}, nil
}

func (c *Coordinator) skip(reason string) Result {
	c.metrics.RecordSave(string(OutcomeSkipped), 0, 0)
	c.logger.Debug("Save skipped.", "reason", reason)
	return Result{Outcome: OutcomeSkipped, Reason: reason}
}

func (c *Coordinator) fail(kind Kind, err error, duration time.Duration, payloadBytes, nodes, edges int) (Result, error) {
	saveErr := &SaveError{Kind: kind, RecipeID: c.recipeID, Err: err}

	c.mu.Lock()
	c.lastErr = saveErr
	c.mu.Unlock()

	c.metrics.RecordSave(string(kind), duration, payloadBytes)
	c.logger.Error("Recipe save failed.",
		"kind", kind, "payload_bytes", payloadBytes, "nodes", nodes, "edges", edges, "error", err)
	return Result{Outcome: OutcomeFailed, Kind: kind}, saveErr
}

func classify(err error) Kind {
	var status interface{ HTTPStatus() int }
	if errors.As(err, &status) && status.HTTPStatus() == http.StatusConflict {
		return KindConflict
	}
	return KindUnknown
}
