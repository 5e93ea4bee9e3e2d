package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/nodeflow/internal/graph"
	"github.com/vk/nodeflow/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// In declares an input handle of the given kind.
func In(key string, kind cty.Type) model.Handle {
	return model.Handle{Key: key, Direction: model.Input, Kind: model.KindOf(kind)}
}

// Out declares an output handle of the given kind.
func Out(key string, kind cty.Type) model.Handle {
	return model.Handle{Key: key, Direction: model.Output, Kind: model.KindOf(kind)}
}

// Node builds a node at the origin with the given handles.
func Node(id string, handles ...model.Handle) *model.Node {
	data := &model.NodeData{Name: id, Params: map[string]any{}}
	for _, h := range handles {
		if h.Direction == model.Output {
			data.Handles.Output = append(data.Handles.Output, h)
		} else {
			data.Handles.Input = append(data.Handles.Input, h)
		}
	}
	return &model.Node{ID: id, Type: "model", Data: data}
}

// PassThrough builds a node with one string input "in" and one string output
// "out", the shape most graph tests need.
func PassThrough(id string) *model.Node {
	return Node(id, In("in", cty.String), Out("out", cty.String))
}

// ModelNode builds a pass-through node priced as the given model.
func ModelNode(id, modelName string, params map[string]any) *model.Node {
	n := PassThrough(id)
	n.Data.Model = modelName
	if params != nil {
		n.Data.Params = params
	}
	return n
}

// IteratorNode builds an iterator node with an "out" output and the given values.
func IteratorNode(id string, values ...any) *model.Node {
	n := Node(id, Out("out", cty.String))
	n.Type = "iterator"
	n.Data.Iterator = true
	n.Data.Values = values
	return n
}

// Link builds an edge from src's "out" handle to dst's "in" handle.
func Link(src, dst string) *model.Edge {
	return model.NewEdge(src, "out", dst, "in")
}

// Store returns a graph store reset with nodes and edges.
func Store(t *testing.T, nodes []*model.Node, edges ...*model.Edge) *graph.Store {
	t.Helper()
	ctx, _ := Context(t)
	s := graph.New(ctx)
	require.NoError(t, s.Reset(nodes, edges))
	return s
}
