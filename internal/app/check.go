package app

import (
	"context"
	"fmt"

	"github.com/vk/nodeflow/internal/connect"
	"github.com/vk/nodeflow/internal/graph"
	"github.com/vk/nodeflow/internal/handleid"
	"github.com/vk/nodeflow/internal/model"
)

// check reports every structural problem of a recipe without contacting any
// backend. Edges are replayed through the connection engine in file order, so
// each rejected edge is reported with the reason the editor would give.
func (a *App) check(ctx context.Context, recipe *model.Recipe) error {
	var problems []string

	nodes := make([]*model.Node, 0, len(recipe.Nodes))
	for _, n := range recipe.Nodes {
		n = a.registry.ApplyDefaults(n)
		if len(a.registry.Types()) > 0 {
			problems = append(problems, a.registry.CheckNode(n)...)
		}
		nodes = append(nodes, n)
	}
	if err := graph.DetectCycles(nodes, recipe.Edges); err != nil {
		problems = append(problems, err.Error())
	}

	store := graph.New(ctx)
	if err := store.Reset(nodes, nil); err != nil {
		problems = append(problems, err.Error())
		return a.report(recipe, problems)
	}
	engine := connect.NewEngine(ctx, store, a.metrics)
	for _, e := range recipe.Edges {
		src := handleid.Source(e.Source, e.SourceHandle)
		dst := handleid.Target(e.Target, e.TargetHandle)
		if reason := engine.Explain(src, dst); reason != "" {
			problems = append(problems, fmt.Sprintf("edge '%s' (%s -> %s): rejected: %s", e.ID, src, dst, reason))
			continue
		}
		if err := store.AddEdge(e); err != nil {
			problems = append(problems, fmt.Sprintf("edge '%s': %v", e.ID, err))
		}
	}

	engine.RefreshAllValidation()
	for _, n := range store.Nodes() {
		for _, issue := range store.Validation(n.ID) {
			problems = append(problems, fmt.Sprintf("node '%s': %s", n.ID, issue))
		}
	}
	return a.report(recipe, problems)
}

func (a *App) report(recipe *model.Recipe, problems []string) error {
	for _, p := range problems {
		fmt.Fprintln(a.outW, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("recipe %s has %d problem(s)", recipe.ID, len(problems))
	}
	fmt.Fprintf(a.outW, "Recipe %s is valid: %d node(s), %d edge(s).\n", recipe.ID, len(recipe.Nodes), len(recipe.Edges))
	return nil
}
