package graph

import (
	"fmt"

	"github.com/vk/nodeflow/internal/model"
)

var _ Reader = (*Store)(nil)

// Adjacency indexes edges by source node: the result maps a node id to the ids
// of the nodes its outputs feed, in edge order.
func Adjacency(edges []*model.Edge) map[string][]string {
	adj := make(map[string][]string, len(edges))
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	return adj
}

// Reaches reports whether `to` is reachable from `from` by following edges
// forward. A node always reaches itself. The walk is breadth-first with a
// visited set, so it terminates on cyclic input.
func Reaches(adj map[string][]string, from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adj[current] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// DetectCycles checks a whole graph for cycles. It returns a non-nil error
// naming the first node found on a cycle. Nodes are visited in the given order
// so the result is deterministic.
func DetectCycles(nodes []*model.Node, edges []*model.Edge) error {
	adj := Adjacency(edges)

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and not part of a cycle.
	// temporary: on the recursion stack of the current traversal.
	// unvisited: all other nodes.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("cycle detected involving node '%s'", id)
		}

		temporary[id] = true
		for _, next := range adj[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, n := range nodes {
		if err := visit(n.ID); err != nil {
			return err
		}
	}
	return nil
}
