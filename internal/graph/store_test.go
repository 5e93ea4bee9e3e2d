package graph

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/model"
)

func node(id string) *model.Node {
	return &model.Node{ID: id, Type: "test", Data: &model.NodeData{Params: map[string]any{"k": "v"}}}
}

func edge(id, src, dst string) *model.Edge {
	return &model.Edge{ID: id, Source: src, SourceHandle: "out", Target: dst, TargetHandle: "in"}
}

func newStore(t *testing.T, nodes []*model.Node, edges []*model.Edge) *Store {
	t.Helper()
	s := New(context.Background())
	require.NoError(t, s.Reset(nodes, edges))
	return s
}

func TestStore_AddNode(t *testing.T) {
	s := New(context.Background())

	require.NoError(t, s.AddNode(node("a")))
	require.NoError(t, s.AddNode(node("b")))

	err := s.AddNode(node("a"))
	require.ErrorIs(t, err, ErrDuplicateNode)

	nodes := s.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].ID)
	assert.Equal(t, "b", nodes[1].ID)
}

func TestStore_ResetRejectsDuplicateIDs(t *testing.T) {
	s := newStore(t, []*model.Node{node("keep")}, nil)

	err := s.Reset([]*model.Node{node("a"), node("a")}, nil)
	require.ErrorIs(t, err, ErrDuplicateNode)

	_, ok := s.Node("keep")
	assert.True(t, ok, "failed reset must leave the previous graph untouched")
}

func TestStore_ResetDropsDanglingEdges(t *testing.T) {
	s := newStore(t, []*model.Node{node("a"), node("b")}, []*model.Edge{
		edge("e1", "a", "b"),
		edge("e2", "a", "ghost"),
	})

	edges := s.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "e1", edges[0].ID)
}

func TestStore_RemoveNodeCascadesEdges(t *testing.T) {
	s := newStore(t,
		[]*model.Node{node("a"), node("b"), node("c")},
		[]*model.Edge{edge("ab", "a", "b"), edge("bc", "b", "c"), edge("ac", "a", "c")},
	)
	s.SetValidation("b", []string{"missing input"})

	removed, err := s.RemoveNode("b")
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	for _, e := range s.Edges() {
		assert.False(t, e.References("b"), "edge %s still references removed node", e.ID)
	}
	assert.Len(t, s.Edges(), 1)
	assert.Empty(t, s.Validation("b"))

	_, err = s.RemoveNode("b")
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestStore_UpdateNodeDataIsStructural(t *testing.T) {
	s := newStore(t, []*model.Node{node("a")}, nil)
	before, _ := s.Node("a")

	updated, err := s.UpdateNodeData("a", func(d *model.NodeData) {
		d.Params["k"] = "changed"
	})
	require.NoError(t, err)

	after, _ := s.Node("a")
	assert.Same(t, updated, after)
	assert.NotSame(t, before, after)
	assert.NotSame(t, before.Data, after.Data)
	assert.Equal(t, "v", before.Data.Params["k"], "the previous value must not be mutated")
	assert.Equal(t, "changed", after.Data.Params["k"])
}

func TestStore_MoveNode(t *testing.T) {
	s := newStore(t, []*model.Node{node("a")}, nil)
	before, _ := s.Node("a")

	require.NoError(t, s.MoveNode("a", model.Position{X: 10, Y: 20}))

	after, _ := s.Node("a")
	assert.Equal(t, model.Position{}, before.Position)
	assert.Equal(t, model.Position{X: 10, Y: 20}, after.Position)
	require.ErrorIs(t, s.MoveNode("ghost", model.Position{}), ErrNodeNotFound)
}

func TestStore_AddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		s := newStore(t, []*model.Node{node("a"), node("b")}, nil)
		require.NoError(t, s.AddEdge(edge("e1", "a", "b")))
		assert.Len(t, s.IncomingEdges("b", "in"), 1)
		assert.Len(t, s.OutgoingEdges("a", ""), 1)
		assert.Empty(t, s.IncomingEdges("b", "other"))
	})

	t.Run("error cases", func(t *testing.T) {
		s := newStore(t, []*model.Node{node("a"), node("b")}, nil)
		require.NoError(t, s.AddEdge(edge("e1", "a", "b")))

		assert.ErrorIs(t, s.AddEdge(edge("e2", "dne", "b")), ErrNodeNotFound)
		assert.ErrorIs(t, s.AddEdge(edge("e3", "a", "dne")), ErrNodeNotFound)
		assert.ErrorIs(t, s.AddEdge(edge("e1", "a", "b")), ErrDuplicateEdge)
		assert.ErrorIs(t, s.RemoveEdge("dne"), ErrEdgeNotFound)
	})
}

func TestStore_RevisionAndObservers(t *testing.T) {
	s := New(context.Background())
	var changes []Change
	unsubscribe := s.Observe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, s.AddNode(node("a")))
	require.NoError(t, s.AddNode(node("b")))
	require.NoError(t, s.AddEdge(edge("e", "a", "b")))
	require.NoError(t, s.RemoveEdge("e"))

	require.Len(t, changes, 4)
	assert.Equal(t, OpAddNode, changes[0].Op)
	assert.Equal(t, OpRemoveEdge, changes[3].Op)
	assert.Equal(t, uint64(4), s.Revision())

	unsubscribe()
	require.NoError(t, s.AddNode(node("c")))
	assert.Len(t, changes, 4)
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := newStore(t, []*model.Node{node("a"), node("b")}, []*model.Edge{edge("e", "a", "b")})
	snap := s.Snapshot()

	_, err := s.RemoveNode("a")
	require.NoError(t, err)

	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)
	assert.Less(t, snap.Revision, s.Revision())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(context.Background())
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.AddNode(node(fmt.Sprintf("n%d", i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Nodes()
			_ = s.Edges()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
