// Package graph holds the node/edge graph of the recipe currently open in the
// editor.
//
// # Why Graph Package Exists
//
// Every other component (connection engine, cost estimator, persistence
// coordinator) reads the same nodes and edges. The Store is the single owner of
// that state and enforces the structural rules that keep it coherent:
//   - **Unique ids:** Two nodes never share an id
//   - **No dangling edges:** Removing a node removes every edge that references it
//   - **Immutable values:** A node is never edited in place; a change stores a
//     new *model.Node so observers can compare by pointer and shape
//
// # What the Store Does Not Do
//
// The Store does not decide whether an edge is *allowed* (kind compatibility,
// arity, acyclicity). That is the connection engine's job. AddEdge only checks
// that both endpoints exist.
//
// # Lifecycle
//
// 1. **Created** by the session when a recipe is opened
// 2. **Reset** with the recipe's nodes and edges
// 3. **Mutated** by editor operations and the connection engine
// 4. **Read** by the estimator and the save path through snapshots
// 5. **Discarded** when the session closes
package graph

import (
	"errors"

	"github.com/vk/nodeflow/internal/model"
)

var (
	// ErrDuplicateNode is returned when a node id is already taken.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrNodeNotFound is returned when an operation references an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrDuplicateEdge is returned when an edge id is already taken.
	ErrDuplicateEdge = errors.New("duplicate edge id")
	// ErrEdgeNotFound is returned when an operation references an unknown edge.
	ErrEdgeNotFound = errors.New("edge not found")
)

// Reader is the read side of the Store. Components that only inspect the graph
// depend on this interface rather than on *Store.
//
// # Thread-Safety
//
// Implementations MUST be safe for concurrent use. Returned slices are owned by
// the caller; the nodes and edges they point to MUST NOT be modified.
type Reader interface {
	// Nodes returns all nodes in insertion order.
	Nodes() []*model.Node

	// Node looks up a single node by id.
	Node(id string) (*model.Node, bool)

	// Edges returns all edges in insertion order.
	Edges() []*model.Edge

	// IncomingEdges returns the edges that end at the given input handle.
	// An empty handleKey matches every input handle of the node.
	IncomingEdges(nodeID, handleKey string) []*model.Edge

	// Revision is a counter incremented on every successful mutation. Two reads
	// returning the same revision observed the same graph.
	Revision() uint64
}

// Snapshot is a consistent, point-in-time copy of the graph.
type Snapshot struct {
	Nodes    []*model.Node
	Edges    []*model.Edge
	Revision uint64
}

// Change describes a committed mutation, delivered to observers.
type Change struct {
	Revision uint64
	Op       string
	NodeID   string
	EdgeID   string
}

// Mutation operation names carried by Change.Op.
const (
	OpReset       = "reset"
	OpAddNode     = "add_node"
	OpReplaceNode = "replace_node"
	OpRemoveNode  = "remove_node"
	OpAddEdge     = "add_edge"
	OpRemoveEdge  = "remove_edge"
)
