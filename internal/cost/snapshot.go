package cost

import (
	"reflect"

	"github.com/vk/nodeflow/internal/iterators"
	"github.com/vk/nodeflow/internal/model"
	"github.com/vk/nodeflow/internal/pricing"
)

// Tuple is the pricing-relevant view of one selected node.
type Tuple struct {
	NodeID string
	Type   string
	Model  string
	Params map[string]any
}

// Snapshot captures everything a cost depends on. Two snapshots that are
// deeply equal always price the same, so the estimator skips recomputation
// between them.
type Snapshot struct {
	Runs               int
	Tuples             []Tuple
	IteratorIDs        []string
	IteratorValueCount int
}

// HasIterators reports whether the selection is fed by iterator nodes.
func (s Snapshot) HasIterators() bool {
	return len(s.IteratorIDs) > 0
}

// Equal compares snapshots by value.
func (s Snapshot) Equal(other Snapshot) bool {
	return reflect.DeepEqual(s, other)
}

// Dependencies computes the snapshot of the selected nodes together with the
// iterators preceding them. Unknown node ids are ignored. Only the parameters
// in relevant are captured, so edits to any other parameter leave the
// snapshot unchanged.
func Dependencies(nodes []*model.Node, edges []*model.Edge, selection []string, runs int, relevant []string) (Snapshot, []iterators.PrecedingIteratorData) {
	if runs < 1 {
		runs = 1
	}
	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	snap := Snapshot{Runs: runs}
	var present []string
	for _, id := range selection {
		n, ok := byID[id]
		if !ok {
			continue
		}
		present = append(present, id)
		t := Tuple{NodeID: id, Type: n.Type, Params: map[string]any{}}
		if n.Data != nil {
			t.Model = n.Data.Model
			t.Params = pricing.RelevantParams(n.Data.Params, relevant)
		}
		snap.Tuples = append(snap.Tuples, t)
	}

	its := iterators.Preceding(present, nodes, edges)
	if its != nil {
		snap.IteratorIDs = iterators.IDs(its)
		snap.IteratorValueCount = iterators.ValueCount(its)
	}
	return snap, its
}

// Predictable prices a snapshot without iterators: the sum of the selected
// nodes' prices times the number of runs.
func Predictable(s Snapshot, prices *pricing.Maps) float64 {
	var sum float64
	for _, t := range s.Tuples {
		n := &model.Node{ID: t.NodeID, Type: t.Type, Data: &model.NodeData{Model: t.Model}}
		sum += prices.Price(n, t.Params)
	}
	return sum * float64(s.Runs)
}
