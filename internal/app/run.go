package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/vk/nodeflow/internal/api"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/livesync"
	"github.com/vk/nodeflow/internal/model"
	"github.com/vk/nodeflow/internal/persist"
	"github.com/vk/nodeflow/internal/session"
)

// Run executes the configured command against the recipe. watch blocks until
// ctx is cancelled; every other command returns when done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	recipe, err := model.LoadRecipe(a.config.RecipePath)
	if err != nil {
		return err
	}
	a.logger.Debug("Recipe loaded.", "recipe_id", recipe.ID, "nodes", len(recipe.Nodes), "edges", len(recipe.Edges))

	if a.config.Command == CommandCheck {
		return a.check(ctx, recipe)
	}

	if a.settings.APIURL == "" {
		return fmt.Errorf("the %s command needs an API URL", a.config.Command)
	}
	client := api.New(ctx, api.Config{
		BaseURL: a.settings.APIURL,
		Token:   a.config.Token,
		Timeout: a.settings.RequestTimeout,
	})
	defer client.Close()

	factory := &session.Factory{
		Settings:  a.settings,
		Saver:     client,
		Prices:    client,
		Calculate: client.CostCalculator(recipe.ID),
		Registry:  a.registry,
		Metrics:   a.metrics,
	}
	if a.config.Command == CommandWatch {
		if a.dialer == nil {
			return errors.New("the watch command needs a socket URL")
		}
		factory.Dialer = a.dialer
	}

	s, err := factory.Open(ctx, recipe, session.Access{
		Role:     a.config.Role,
		Token:    a.config.Token,
		Provider: a.settings.Provider,
	})
	if err != nil {
		return fmt.Errorf("failed to open recipe: %w", err)
	}
	defer s.Close()

	switch a.config.Command {
	case CommandEstimate:
		return a.estimate(ctx, s)
	case CommandSave:
		return a.save(ctx, s)
	case CommandWatch:
		return a.watch(ctx, s)
	}
	return fmt.Errorf("unknown command %q", a.config.Command)
}

func (a *App) estimate(ctx context.Context, s *session.Session) error {
	selection := a.config.Selection
	if len(selection) == 0 {
		for _, n := range s.Store().Nodes() {
			if n.Data != nil && n.Data.Model != "" {
				selection = append(selection, n.ID)
			}
		}
	}
	for _, id := range selection {
		if _, ok := s.Store().Node(id); !ok {
			return fmt.Errorf("selected node %q is not in the recipe", id)
		}
	}
	if len(selection) == 0 {
		fmt.Fprintln(a.outW, "Nothing to estimate: no priced nodes in the recipe.")
		return nil
	}

	if err := s.LoadPrices(ctx); err != nil {
		return err
	}
	s.Estimator().SetSelection(selection, a.config.Runs)
	cost, err := s.Estimator().ForceGetCost(ctx)
	if err != nil {
		return err
	}

	est := s.Estimator().Estimate()
	fmt.Fprintf(a.outW, "Estimated cost: %s credits (%s, %d node(s) x %d run(s))\n",
		strconv.FormatFloat(cost, 'f', -1, 64), est.Mode, len(selection), a.config.Runs)
	return nil
}

func (a *App) save(ctx context.Context, s *session.Session) error {
	recipe := s.Recipe()
	res, err := s.Saves().Save(ctx, persist.Options{
		PosterImageURL:    recipe.PosterImageURL,
		DesignAppMetadata: recipe.DesignAppMetadata,
	})
	if err != nil {
		return err
	}
	if res.Outcome == persist.OutcomeSkipped {
		fmt.Fprintf(a.outW, "Save skipped: %s\n", res.Reason)
		return nil
	}

	if err := writeRecipeFile(a.config.RecipePath, s.Recipe()); err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Saved recipe %s, updated at %s\n", recipe.ID, res.UpdatedAt.UTC().Format(time.RFC3339))
	return nil
}

func (a *App) watch(ctx context.Context, s *session.Session) error {
	ch := s.Channel()
	if ch.State() == livesync.StateDisconnected {
		if err := ch.Params().Eligible(time.Now()); err != nil {
			return fmt.Errorf("cannot watch recipe: %w", err)
		}
		return errors.New("cannot watch recipe: live channel did not open")
	}

	if _, err := a.healthCheckServer(a.config.HealthcheckPort); err != nil {
		return err
	}
	defer a.closeHealthCheckServer()

	defer ch.AddListener(livesync.EventBatchRunStatus, func(args ...any) {
		buf, err := sonic.Marshal(args)
		if err != nil {
			a.logger.Warn("Failed to encode batch run status.", "error", err)
			return
		}
		fmt.Fprintf(a.outW, "%s %s\n", livesync.EventBatchRunStatus, buf)
	})()
	defer ch.AddListener(livesync.EventDisconnect, func(args ...any) {
		a.logger.Warn("Live channel dropped, not reconnecting.", "reason", firstOf(args))
	})()

	a.logger.Info("Watching recipe.", "recipe_id", ch.Params().RecipeID)
	<-ctx.Done()
	a.logger.Info("Stopped watching recipe.")
	return nil
}

// writeRecipeFile replaces path atomically.
func writeRecipeFile(path string, recipe *model.Recipe) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".recipe-*.json")
	if err != nil {
		return fmt.Errorf("failed to write recipe: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := model.WriteRecipe(tmp, recipe); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write recipe: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write recipe: %w", err)
	}
	return nil
}

func firstOf(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
