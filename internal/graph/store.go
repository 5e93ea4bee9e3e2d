package graph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/model"
)

// Store is the thread-safe, in-memory owner of the open recipe's graph.
type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger

	order      []string               // node ids in insertion order
	nodes      map[string]*model.Node // keyed by node id
	edges      []*model.Edge
	validation map[string][]string
	revision   uint64

	obsMu     sync.Mutex
	observers []observer
	nextObsID int
}

type observer struct {
	id int
	fn func(Change)
}

// New creates a new, empty store.
func New(ctx context.Context) *Store {
	return &Store{
		logger:     ctxlog.FromContext(ctx).With("component", "graph"),
		nodes:      make(map[string]*model.Node),
		validation: make(map[string][]string),
	}
}

// Reset replaces the whole graph. Edges referencing unknown nodes are dropped
// with a warning; duplicate node ids are rejected and leave the store untouched.
func (s *Store) Reset(nodes []*model.Node, edges []*model.Edge) error {
	order := make([]string, 0, len(nodes))
	index := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		if _, exists := index[n.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		index[n.ID] = n
		order = append(order, n.ID)
	}

	kept := make([]*model.Edge, 0, len(edges))
	for _, e := range edges {
		_, srcOK := index[e.Source]
		_, dstOK := index[e.Target]
		if !srcOK || !dstOK {
			s.logger.Warn("Dropping edge with a missing endpoint.", "edge_id", e.ID, "source", e.Source, "target", e.Target)
			continue
		}
		kept = append(kept, e)
	}

	s.mu.Lock()
	s.order = order
	s.nodes = index
	s.edges = kept
	s.validation = make(map[string][]string)
	rev := s.bump()
	s.mu.Unlock()

	s.logger.Debug("Graph reset.", "nodes", len(order), "edges", len(kept), "revision", rev)
	s.notify(Change{Revision: rev, Op: OpReset})
	return nil
}

// Nodes implements Reader.
func (s *Store) Nodes() []*model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodesLocked()
}

func (s *Store) nodesLocked() []*model.Node {
	out := make([]*model.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// Node implements Reader.
func (s *Store) Node(id string) (*model.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Edges implements Reader.
func (s *Store) Edges() []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.edges)
}

// IncomingEdges implements Reader.
func (s *Store) IncomingEdges(nodeID, handleKey string) []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Edge
	for _, e := range s.edges {
		if e.Target == nodeID && (handleKey == "" || e.TargetHandle == handleKey) {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingEdges returns the edges that start at the given output handle.
// An empty handleKey matches every output handle of the node.
func (s *Store) OutgoingEdges(nodeID, handleKey string) []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Edge
	for _, e := range s.edges {
		if e.Source == nodeID && (handleKey == "" || e.SourceHandle == handleKey) {
			out = append(out, e)
		}
	}
	return out
}

// Revision implements Reader.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns a consistent copy of nodes and edges.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Nodes:    s.nodesLocked(),
		Edges:    slices.Clone(s.edges),
		Revision: s.revision,
	}
}

// AddNode inserts a new node. The id must be unique.
func (s *Store) AddNode(n *model.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("node must have an id")
	}

	s.mu.Lock()
	if _, exists := s.nodes[n.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	rev := s.bump()
	s.mu.Unlock()

	s.logger.Debug("Node added.", "node_id", n.ID, "type", n.Type)
	s.notify(Change{Revision: rev, Op: OpAddNode, NodeID: n.ID})
	return nil
}

// ReplaceNode stores n in place of the node with the same id.
func (s *Store) ReplaceNode(n *model.Node) error {
	s.mu.Lock()
	if _, exists := s.nodes[n.ID]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, n.ID)
	}
	s.nodes[n.ID] = n
	rev := s.bump()
	s.mu.Unlock()

	s.notify(Change{Revision: rev, Op: OpReplaceNode, NodeID: n.ID})
	return nil
}

// UpdateNodeData applies fn to a private copy of the node's data and stores the
// result as a new node. The previously stored node is left untouched.
func (s *Store) UpdateNodeData(id string, fn func(data *model.NodeData)) (*model.Node, error) {
	s.mu.Lock()
	current, exists := s.nodes[id]
	if !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	data := current.Data.Clone()
	fn(data)
	updated := current.WithData(data)
	s.nodes[id] = updated
	rev := s.bump()
	s.mu.Unlock()

	s.notify(Change{Revision: rev, Op: OpReplaceNode, NodeID: id})
	return updated, nil
}

// MoveNode stores a copy of the node at a new position.
func (s *Store) MoveNode(id string, pos model.Position) error {
	s.mu.Lock()
	current, exists := s.nodes[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	s.nodes[id] = current.WithPosition(pos)
	rev := s.bump()
	s.mu.Unlock()

	s.notify(Change{Revision: rev, Op: OpReplaceNode, NodeID: id})
	return nil
}

// RemoveNode deletes a node together with every edge that references it and
// returns the removed edges.
func (s *Store) RemoveNode(id string) ([]*model.Edge, error) {
	s.mu.Lock()
	if _, exists := s.nodes[id]; !exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	delete(s.nodes, id)
	delete(s.validation, id)
	s.order = slices.DeleteFunc(slices.Clone(s.order), func(other string) bool { return other == id })

	var removed []*model.Edge
	kept := make([]*model.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.References(id) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	rev := s.bump()
	s.mu.Unlock()

	s.logger.Debug("Node removed.", "node_id", id, "edges_removed", len(removed))
	s.notify(Change{Revision: rev, Op: OpRemoveNode, NodeID: id})
	return removed, nil
}

// AddEdge inserts an edge after checking that both endpoints exist. It does not
// check kind compatibility, arity, or cycles.
func (s *Store) AddEdge(e *model.Edge) error {
	s.mu.Lock()
	if _, ok := s.nodes[e.Source]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, e.Source)
	}
	if _, ok := s.nodes[e.Target]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, e.Target)
	}
	for _, existing := range s.edges {
		if existing.ID == e.ID {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID)
		}
	}
	s.edges = append(slices.Clip(s.edges), e)
	rev := s.bump()
	s.mu.Unlock()

	s.logger.Debug("Edge added.", "edge_id", e.ID, "source", e.Source, "target", e.Target)
	s.notify(Change{Revision: rev, Op: OpAddEdge, EdgeID: e.ID, NodeID: e.Target})
	return nil
}

// RemoveEdge deletes an edge by id.
func (s *Store) RemoveEdge(id string) error {
	s.mu.Lock()
	idx := slices.IndexFunc(s.edges, func(e *model.Edge) bool { return e.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	target := s.edges[idx].Target
	s.edges = slices.Delete(slices.Clone(s.edges), idx, idx+1)
	rev := s.bump()
	s.mu.Unlock()

	s.notify(Change{Revision: rev, Op: OpRemoveEdge, EdgeID: id, NodeID: target})
	return nil
}

// SetValidation records the validation issues of a node. An empty slice clears them.
// Validation state does not advance the revision.
func (s *Store) SetValidation(nodeID string, issues []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[nodeID]; !exists {
		return
	}
	if len(issues) == 0 {
		delete(s.validation, nodeID)
		return
	}
	s.validation[nodeID] = slices.Clone(issues)
}

// Validation returns the recorded issues of a node.
func (s *Store) Validation(nodeID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.validation[nodeID])
}

// Observe registers fn to be called after every committed mutation. Calls are
// made outside the store lock, in registration order. The returned function
// removes the observer.
func (s *Store) Observe(fn func(Change)) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		s.observers = slices.DeleteFunc(s.observers, func(o observer) bool { return o.id == id })
	}
}

// bump must be called with mu held.
func (s *Store) bump() uint64 {
	s.revision++
	return s.revision
}

func (s *Store) notify(c Change) {
	s.obsMu.Lock()
	observers := slices.Clone(s.observers)
	s.obsMu.Unlock()

	for _, o := range observers {
		o.fn(c)
	}
}
