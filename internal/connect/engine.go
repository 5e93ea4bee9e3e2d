package connect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/graph"
	"github.com/vk/nodeflow/internal/handleid"
	"github.com/vk/nodeflow/internal/metrics"
	"github.com/vk/nodeflow/internal/model"
)

const (
	originManual    = "manual"
	originProximity = "proximity"
)

// Engine validates and creates edges in a graph store.
type Engine struct {
	store   *graph.Store
	metrics *metrics.Registry
	logger  *slog.Logger

	// connectMu serializes check-then-add so two concurrent connects cannot
	// both pass the cycle check.
	connectMu sync.Mutex

	memoMu  sync.Mutex
	memoRev uint64
	memo    map[[2]string]bool
}

// NewEngine creates an engine over store. m may be nil.
func NewEngine(ctx context.Context, store *graph.Store, m *metrics.Registry) *Engine {
	return &Engine{
		store:   store,
		metrics: m,
		logger:  ctxlog.FromContext(ctx).With("component", "connect"),
		memo:    make(map[[2]string]bool),
	}
}

// CanConnect reports whether an edge from the output handle src to the input
// handle dst would be structurally valid, ignoring cycles.
func (e *Engine) CanConnect(src, dst handleid.Address) bool {
	return e.rejection(src, dst) == ""
}

// Explain returns why an edge from src to dst would be refused, as one of
// the rejection labels ("direction", "self", "missing_node",
// "missing_handle", "incompatible", "duplicate", "arity", "cycle"), or ""
// when ConnectEdge would accept it.
func (e *Engine) Explain(src, dst handleid.Address) string {
	if reason := e.rejection(src, dst); reason != "" {
		return reason
	}
	if e.WouldConnectionResultInCycle(src.NodeID, dst.NodeID) {
		return "cycle"
	}
	return ""
}

// rejection returns the reason a connection is refused, or "" when allowed.
func (e *Engine) rejection(src, dst handleid.Address) string {
	if src.Direction != model.Output || dst.Direction != model.Input {
		return "direction"
	}
	if src.NodeID == dst.NodeID {
		return "self"
	}

	srcNode, ok := e.store.Node(src.NodeID)
	if !ok {
		return "missing_node"
	}
	dstNode, ok := e.store.Node(dst.NodeID)
	if !ok {
		return "missing_node"
	}
	out, ok := srcNode.Handle(model.Output, src.Key)
	if !ok {
		return "missing_handle"
	}
	in, ok := dstNode.Handle(model.Input, dst.Key)
	if !ok {
		return "missing_handle"
	}
	if !out.Kind.Compatible(in.Kind) {
		return "incompatible"
	}

	incoming := e.store.IncomingEdges(dst.NodeID, dst.Key)
	for _, edge := range incoming {
		if edge.Source == src.NodeID && edge.SourceHandle == src.Key {
			return "duplicate"
		}
	}
	if limit := in.MaxConnections(); limit != model.Unlimited && len(incoming) >= limit {
		return "arity"
	}
	if limit := out.MaxConnections(); limit != model.Unlimited && len(e.store.OutgoingEdges(src.NodeID, src.Key)) >= limit {
		return "arity"
	}
	return ""
}

// WouldConnectionResultInCycle reports whether adding an edge from
// sourceNodeID to targetNodeID would close a cycle, that is whether the target
// already reaches the source. Answers are memoized until the graph changes, so
// repeated calls during one drag gesture cost a map lookup.
func (e *Engine) WouldConnectionResultInCycle(sourceNodeID, targetNodeID string) bool {
	if sourceNodeID == targetNodeID {
		return true
	}

	snap := e.store.Snapshot()
	key := [2]string{sourceNodeID, targetNodeID}

	e.memoMu.Lock()
	if e.memoRev != snap.Revision {
		e.memo = make(map[[2]string]bool)
		e.memoRev = snap.Revision
	}
	if cached, ok := e.memo[key]; ok {
		e.memoMu.Unlock()
		return cached
	}
	e.memoMu.Unlock()

	cycle := graph.Reaches(graph.Adjacency(snap.Edges), targetNodeID, sourceNodeID)

	e.memoMu.Lock()
	if e.memoRev == snap.Revision {
		e.memo[key] = cycle
	}
	e.memoMu.Unlock()
	return cycle
}

// ConnectEdge creates an edge between two handles. It returns false, without
// touching the graph, when the connection is invalid or would close a cycle.
func (e *Engine) ConnectEdge(sourceNodeID, targetNodeID, sourceHandle, targetHandle string) (*model.Edge, bool) {
	return e.connect(originManual, handleid.Source(sourceNodeID, sourceHandle), handleid.Target(targetNodeID, targetHandle))
}

func (e *Engine) connect(origin string, src, dst handleid.Address) (*model.Edge, bool) {
	e.connectMu.Lock()
	defer e.connectMu.Unlock()

	if reason := e.rejection(src, dst); reason != "" {
		e.logger.Debug("Connection rejected.", "source", src.String(), "target", dst.String(), "reason", reason)
		e.metrics.RecordEdgeRejected(reason)
		return nil, false
	}
	if e.WouldConnectionResultInCycle(src.NodeID, dst.NodeID) {
		e.logger.Debug("Connection rejected.", "source", src.String(), "target", dst.String(), "reason", "cycle")
		e.metrics.RecordEdgeRejected("cycle")
		return nil, false
	}

	edge := model.NewEdge(src.NodeID, src.Key, dst.NodeID, dst.Key)
	if err := e.store.AddEdge(edge); err != nil {
		e.logger.Warn("Failed to add edge.", "source", src.String(), "target", dst.String(), "error", err)
		return nil, false
	}
	e.metrics.RecordEdgeCreated(origin)
	e.RefreshValidation(dst.NodeID)
	return edge, true
}

// RefreshValidation recomputes the validation state of a node: every required
// input without an incoming edge is reported.
func (e *Engine) RefreshValidation(nodeID string) {
	n, ok := e.store.Node(nodeID)
	if !ok || n.Data == nil {
		return
	}

	var issues []string
	for _, in := range n.Data.Handles.Input {
		if in.Required && len(e.store.IncomingEdges(nodeID, in.Key)) == 0 {
			issues = append(issues, fmt.Sprintf("input '%s' is required", in.Key))
		}
	}
	e.store.SetValidation(nodeID, issues)
}

// RefreshAllValidation recomputes the validation state of every node.
func (e *Engine) RefreshAllValidation() {
	for _, n := range e.store.Nodes() {
		e.RefreshValidation(n.ID)
	}
}
