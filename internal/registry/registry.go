package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/model"
)

// Registry holds the node type definitions for a single application instance.
type Registry struct {
	DefinitionRegistry map[string]*config.NodeTypeDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		DefinitionRegistry: make(map[string]*config.NodeTypeDefinition),
	}
}

// PopulateDefinitionsFromModel copies the loaded node type definitions from
// the config model into the registry.
func (r *Registry) PopulateDefinitionsFromModel(m *config.Model) {
	for key, val := range m.NodeTypes {
		r.DefinitionRegistry[key] = val
	}
}

// Definition looks up a node type.
func (r *Registry) Definition(nodeType string) (*config.NodeTypeDefinition, bool) {
	def, ok := r.DefinitionRegistry[nodeType]
	return def, ok
}

// Types returns the registered node type names, sorted.
func (r *Registry) Types() []string {
	return slices.Sorted(maps.Keys(r.DefinitionRegistry))
}

// NewNode builds a node of the given type at pos, with a fresh id and the
// handles its definition declares.
func (r *Registry) NewNode(nodeType string, pos model.Position) (*model.Node, error) {
	def, ok := r.Definition(nodeType)
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}
	return &model.Node{
		ID:       model.NewNodeID(),
		Type:     nodeType,
		Position: pos,
		Data: &model.NodeData{
			Name:     def.Type,
			Model:    def.Model,
			Handles:  handlesOf(def),
			Iterator: def.Iterator,
			Params:   map[string]any{},
		},
	}, nil
}

// ApplyDefaults returns n with the catalog's handles and model filled in when
// the node declares none. Nodes of unknown types, and nodes that already carry
// handles, are returned unchanged.
func (r *Registry) ApplyDefaults(n *model.Node) *model.Node {
	def, ok := r.Definition(n.Type)
	if !ok || n.Data == nil {
		return n
	}
	if len(n.Data.Handles.Input) > 0 || len(n.Data.Handles.Output) > 0 {
		return n
	}
	data := n.Data.Clone()
	data.Handles = handlesOf(def)
	if data.Model == "" {
		data.Model = def.Model
	}
	if def.Iterator {
		data.Iterator = true
	}
	return n.WithData(data)
}

func handlesOf(def *config.NodeTypeDefinition) model.Handles {
	var h model.Handles
	for _, in := range def.Inputs {
		h.Input = append(h.Input, handleOf(in, model.Input))
	}
	for _, out := range def.Outputs {
		h.Output = append(h.Output, handleOf(out, model.Output))
	}
	return h
}

func handleOf(def *config.HandleDefinition, dir model.Direction) model.Handle {
	return model.Handle{
		Key:       def.Key,
		Direction: dir,
		Kind:      model.KindOf(def.Type),
		Arity:     def.MaxConnections,
		Required:  def.Required,
		Offset:    model.Position{X: def.OffsetX, Y: def.OffsetY},
	}
}
