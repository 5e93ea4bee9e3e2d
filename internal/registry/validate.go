package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// ValidateRegistry checks that every node type definition can be wired:
// iterator types must produce something, and arities must be meaningful.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, nodeType := range r.Types() {
		def := r.DefinitionRegistry[nodeType]

		if def.Iterator && len(def.Outputs) == 0 {
			errs = append(errs, fmt.Sprintf("node type '%s': iterator types must declare at least one output", nodeType))
		}

		for _, in := range def.Inputs {
			if in.MaxConnections < model.Unlimited {
				errs = append(errs, fmt.Sprintf("node type '%s', input '%s': max_connections must be -1 (unlimited), 0 (default) or positive", nodeType, in.Key))
			}
			if in.Type.Equals(cty.DynamicPseudoType) {
				logger.Debug("Node type has an input with 'type = any', which accepts every connection.", "node_type", nodeType, "input", in.Key)
			}
		}
		for _, out := range def.Outputs {
			if out.MaxConnections < model.Unlimited {
				errs = append(errs, fmt.Sprintf("node type '%s', output '%s': max_connections must be -1 (unlimited), 0 (default) or positive", nodeType, out.Key))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// CheckNode compares a node with its catalog definition and returns the
// problems found. A nil result means the node is consistent.
func (r *Registry) CheckNode(n *model.Node) []string {
	def, ok := r.Definition(n.Type)
	if !ok {
		return []string{fmt.Sprintf("node '%s': unknown node type '%s'", n.ID, n.Type)}
	}

	var issues []string
	check := func(dir model.Direction, key string, declared cty.Type) {
		h, found := n.Handle(dir, key)
		if !found {
			issues = append(issues, fmt.Sprintf("node '%s': missing %s handle '%s'", n.ID, dir, key))
			return
		}
		if !h.Kind.Type().Equals(declared) {
			issues = append(issues, fmt.Sprintf("node '%s': %s handle '%s' has kind '%s', catalog declares '%s'",
				n.ID, dir, key, h.Kind, declared.FriendlyName()))
		}
	}
	for _, in := range def.Inputs {
		check(model.Input, in.Key, in.Type)
	}
	for _, out := range def.Outputs {
		check(model.Output, out.Key, out.Type)
	}
	return issues
}
