// Package iterators finds the iterator nodes that fan out the runs of a node.
package iterators

import (
	"slices"

	"github.com/vk/nodeflow/internal/model"
)

// PrecedingIteratorData is an iterator node found upstream of a start node.
// Path lists node ids from the start node back to the iterator, both included.
type PrecedingIteratorData struct {
	IteratorNode *model.Node
	Path         []string
}

// Preceding walks edges backwards from each of nodeIDs and returns every
// iterator node reachable upstream, deduplicated by id, in discovery order.
// Each entry carries the shortest path to it from the first start node that
// reached it.
//
// It returns nil, not an empty slice, when no iterator feeds the nodes, so
// callers can take the scalar cost fast path. The walk keeps a visited set and
// terminates on cyclic input.
func Preceding(nodeIDs []string, nodes []*model.Node, edges []*model.Edge) []PrecedingIteratorData {
	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	parents := make(map[string][]string, len(edges))
	for _, e := range edges {
		parents[e.Target] = append(parents[e.Target], e.Source)
	}

	var out []PrecedingIteratorData
	seen := make(map[string]bool)

	for _, start := range nodeIDs {
		// prev records the BFS tree so paths can be rebuilt.
		prev := map[string]string{start: ""}
		queue := []string{start}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, up := range parents[current] {
				if _, visited := prev[up]; visited {
					continue
				}
				prev[up] = current
				queue = append(queue, up)

				n, ok := byID[up]
				if !ok || !n.IsIterator() || seen[up] {
					continue
				}
				seen[up] = true
				out = append(out, PrecedingIteratorData{IteratorNode: n, Path: pathTo(prev, up)})
			}
		}
	}
	return out
}

func pathTo(prev map[string]string, id string) []string {
	var path []string
	for id != "" {
		path = append(path, id)
		id = prev[id]
	}
	slices.Reverse(path)
	return path
}

// ValueCount is the total number of enumerable values across the iterators.
func ValueCount(data []PrecedingIteratorData) int {
	total := 0
	for _, d := range data {
		if d.IteratorNode.Data != nil {
			total += len(d.IteratorNode.Data.Values)
		}
	}
	return total
}

// IDs returns the iterator node ids in order.
func IDs(data []PrecedingIteratorData) []string {
	ids := make([]string, 0, len(data))
	for _, d := range data {
		ids = append(ids, d.IteratorNode.ID)
	}
	return ids
}
