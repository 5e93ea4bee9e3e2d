package persist

import (
	"maps"
	"strings"

	"github.com/vk/nodeflow/internal/model"
)

// Sanitizer prepares the graph for persistence.
type Sanitizer interface {
	Sanitize(nodes []*model.Node, edges []*model.Edge) ([]*model.Node, []*model.Edge)
}

// SanitizerFunc adapts a function to the Sanitizer interface.
type SanitizerFunc func(nodes []*model.Node, edges []*model.Edge) ([]*model.Node, []*model.Edge)

// Sanitize implements Sanitizer.
func (f SanitizerFunc) Sanitize(nodes []*model.Node, edges []*model.Edge) ([]*model.Node, []*model.Edge) {
	return f(nodes, edges)
}

// TransientParamPrefix marks node parameters that only live in the editor.
const TransientParamPrefix = "_"

// DefaultSanitizer drops transient parameters and edges whose endpoints are
// missing. Input nodes are never modified; cleaned nodes are copies.
var DefaultSanitizer Sanitizer = SanitizerFunc(defaultSanitize)

func defaultSanitize(nodes []*model.Node, edges []*model.Edge) ([]*model.Node, []*model.Edge) {
	ids := make(map[string]bool, len(nodes))
	outNodes := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
		outNodes = append(outNodes, stripTransient(n))
	}

	outEdges := make([]*model.Edge, 0, len(edges))
	for _, e := range edges {
		if ids[e.Source] && ids[e.Target] {
			outEdges = append(outEdges, e)
		}
	}
	return outNodes, outEdges
}

func stripTransient(n *model.Node) *model.Node {
	if n.Data == nil {
		return n
	}
	transient := false
	for k := range n.Data.Params {
		if strings.HasPrefix(k, TransientParamPrefix) {
			transient = true
			break
		}
	}
	if !transient {
		return n
	}

	data := n.Data.Clone()
	maps.DeleteFunc(data.Params, func(k string, _ any) bool {
		return strings.HasPrefix(k, TransientParamPrefix)
	})
	return n.WithData(data)
}
