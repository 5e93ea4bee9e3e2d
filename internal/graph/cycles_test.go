package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/nodeflow/internal/model"
)

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, DetectCycles(nil, nil))
	})

	t.Run("graph with nodes but no edges has no cycles", func(t *testing.T) {
		assert.NoError(t, DetectCycles([]*model.Node{node("a"), node("b")}, nil))
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		nodes := []*model.Node{node("a"), node("b"), node("c"), node("d")}
		edges := []*model.Edge{edge("1", "a", "b"), edge("2", "a", "c"), edge("3", "b", "d"), edge("4", "c", "d")}
		assert.NoError(t, DetectCycles(nodes, edges))
	})

	t.Run("simple cycle", func(t *testing.T) {
		nodes := []*model.Node{node("a"), node("b")}
		edges := []*model.Edge{edge("1", "a", "b"), edge("2", "b", "a")}
		assert.ErrorContains(t, DetectCycles(nodes, edges), "cycle detected")
	})

	t.Run("self loop", func(t *testing.T) {
		assert.ErrorContains(t, DetectCycles([]*model.Node{node("a")}, []*model.Edge{edge("1", "a", "a")}), "node 'a'")
	})
}

func TestReaches(t *testing.T) {
	adj := Adjacency([]*model.Edge{edge("1", "a", "b"), edge("2", "b", "c"), edge("3", "c", "b")})

	assert.True(t, Reaches(adj, "a", "c"))
	assert.True(t, Reaches(adj, "a", "a"))
	assert.False(t, Reaches(adj, "c", "a"))
	assert.False(t, Reaches(adj, "x", "a"))
}
