// Package cost estimates the credit cost of running the selected nodes.
//
// Selections without upstream iterators have a predictable cost computed
// locally from the price maps. Selections fed by iterators fan out into
// combinations the backend prices; the estimator only decides when to ask.
//
// Recomputation is driven by a dependency Snapshot: a trigger whose snapshot
// equals the last one is ignored, and the rest are coalesced by a debouncer so
// only the last trigger in a quiet window is priced. Requests already in
// flight are never cancelled and whichever resolves last sets the cost.
package cost

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/graph"
	"github.com/vk/nodeflow/internal/iterators"
	"github.com/vk/nodeflow/internal/metrics"
	"github.com/vk/nodeflow/internal/pricing"
	"github.com/vk/nodeflow/internal/scheduler"
)

// Mode is the way a cost was computed.
type Mode string

const (
	ModePredictable   Mode = "predictable"
	ModeCombinatorial Mode = "combinatorial"
)

// Request is passed to a CalculateFunc.
type Request struct {
	NodeIDs   []string
	Runs      int
	Iterators []iterators.PrecedingIteratorData
}

// CalculateFunc prices a selection fed by iterators.
type CalculateFunc func(ctx context.Context, req Request) (float64, error)

// PriceSource provides the price maps once they are loaded.
type PriceSource interface {
	Maps() (*pricing.Maps, bool)
}

// Estimate is the observable state of the estimator.
type Estimate struct {
	Cost    float64
	Mode    Mode
	Loading bool
	// Valid is false until a cost has been computed once.
	Valid bool
}

// Options configures an Estimator.
type Options struct {
	Debounce       time.Duration
	RelevantParams []string
	Calculate      CalculateFunc
	Metrics        *metrics.Registry
}

// Estimator keeps the cost of the current selection up to date.
type Estimator struct {
	ctx       context.Context
	store     graph.Reader
	prices    PriceSource
	calculate CalculateFunc
	relevant  []string
	debouncer *scheduler.Debouncer
	metrics   *metrics.Registry
	logger    *slog.Logger

	mu        sync.Mutex
	selection []string
	runs      int
	last      *Snapshot
	estimate  Estimate
	inFlight  int

	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

type listener struct {
	id int
	fn func(Estimate)
}

// New creates an estimator reading the graph from store. ctx is used for
// logging and for the CalculateFunc calls made by debounced recomputations.
func New(ctx context.Context, store graph.Reader, prices PriceSource, opts Options) *Estimator {
	return &Estimator{
		ctx:       ctx,
		store:     store,
		prices:    prices,
		calculate: opts.Calculate,
		relevant:  slices.Clone(opts.RelevantParams),
		debouncer: scheduler.NewDebouncer(opts.Debounce),
		metrics:   opts.Metrics,
		logger:    ctxlog.FromContext(ctx).With("component", "cost"),
		runs:      1,
	}
}

// SetSelection changes the priced nodes and run count and schedules a
// recomputation when that changes the dependencies.
func (e *Estimator) SetSelection(nodeIDs []string, runs int) {
	e.mu.Lock()
	e.selection = slices.Clone(nodeIDs)
	e.runs = runs
	e.mu.Unlock()
	e.Invalidate()
}

// Invalidate recomputes the dependency snapshot and, when it differs from the
// last one, schedules a debounced recomputation using this snapshot.
func (e *Estimator) Invalidate() {
	snap, its, changed := e.capture()
	if !changed {
		return
	}
	e.debouncer.Trigger(func() {
		if _, err := e.recompute(e.ctx, snap, its); err != nil {
			e.logger.Warn("Cost recomputation failed, keeping the last value.", "error", err)
		}
	})
}

// Refresh forgets the last dependency snapshot and schedules a
// recomputation. Use it when prices change underneath an unchanged graph.
func (e *Estimator) Refresh() {
	e.mu.Lock()
	e.last = nil
	e.mu.Unlock()
	e.Invalidate()
}

// ForceGetCost cancels any pending recomputation and prices the current
// selection immediately. Unlike debounced recomputations it returns the error.
func (e *Estimator) ForceGetCost(ctx context.Context) (float64, error) {
	e.debouncer.Cancel()
	snap, its, _ := e.capture()
	return e.recompute(ctx, snap, its)
}

// Estimate returns the current estimate.
func (e *Estimator) Estimate() Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.estimate
}

// OnChange registers fn to be called after every estimate update. The
// returned function removes it.
func (e *Estimator) OnChange(fn func(Estimate)) func() {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	return func() {
		e.listenersMu.Lock()
		defer e.listenersMu.Unlock()
		e.listeners = slices.DeleteFunc(e.listeners, func(l listener) bool { return l.id == id })
	}
}

// Close cancels any pending recomputation. In-flight requests run to
// completion.
func (e *Estimator) Close() {
	e.debouncer.Stop()
}

func (e *Estimator) capture() (Snapshot, []iterators.PrecedingIteratorData, bool) {
	nodes, edges := e.store.Nodes(), e.store.Edges()

	e.mu.Lock()
	defer e.mu.Unlock()
	snap, its := Dependencies(nodes, edges, e.selection, e.runs, e.relevant)
	if e.last != nil && e.last.Equal(snap) {
		return snap, its, false
	}
	e.last = &snap
	return snap, its, true
}

func (e *Estimator) recompute(ctx context.Context, snap Snapshot, its []iterators.PrecedingIteratorData) (float64, error) {
	if !snap.HasIterators() {
		prices, ok := e.prices.Maps()
		if !ok {
			e.metrics.RecordCostRecompute(string(ModePredictable), "error", 0)
			return 0, fmt.Errorf("model prices are not loaded")
		}
		cost := Predictable(snap, prices)
		e.metrics.RecordCostRecompute(string(ModePredictable), "ok", 0)
		e.logger.Debug("Predictable cost computed.", "nodes", len(snap.Tuples), "runs", snap.Runs, "cost", cost)
		e.update(func(est *Estimate) {
			*est = Estimate{Cost: cost, Mode: ModePredictable, Loading: est.Loading, Valid: true}
		})
		return cost, nil
	}

	if e.calculate == nil {
		return 0, fmt.Errorf("selection is fed by %d iterator(s) but no cost calculator is configured", len(its))
	}

	e.update(func(est *Estimate) {
		e.inFlight++
		est.Loading = true
	})

	req := Request{Runs: snap.Runs, Iterators: its}
	for _, t := range snap.Tuples {
		req.NodeIDs = append(req.NodeIDs, t.NodeID)
	}

	start := time.Now()
	cost, err := e.calculate(ctx, req)
	duration := time.Since(start)

	if err != nil {
		e.metrics.RecordCostRecompute(string(ModeCombinatorial), "error", duration)
		e.logger.Error("Cost calculation request failed.", "nodes", len(req.NodeIDs), "iterators", len(its), "error", err)
		e.update(func(est *Estimate) {
			e.inFlight--
			est.Loading = e.inFlight > 0
		})
		return 0, fmt.Errorf("cost calculation failed: %w", err)
	}

	e.metrics.RecordCostRecompute(string(ModeCombinatorial), "ok", duration)
	e.logger.Debug("Combinatorial cost computed.", "nodes", len(req.NodeIDs), "iterator_values", snap.IteratorValueCount, "cost", cost)
	e.update(func(est *Estimate) {
		e.inFlight--
		*est = Estimate{Cost: cost, Mode: ModeCombinatorial, Loading: e.inFlight > 0, Valid: true}
	})
	return cost, nil
}

func (e *Estimator) update(fn func(est *Estimate)) {
	e.mu.Lock()
	fn(&e.estimate)
	est := e.estimate
	e.mu.Unlock()

	e.listenersMu.Lock()
	listeners := slices.Clone(e.listeners)
	e.listenersMu.Unlock()
	for _, l := range listeners {
		l.fn(est)
	}
}
