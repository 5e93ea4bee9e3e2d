package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/livesync"
	"github.com/vk/nodeflow/internal/metrics"
	"github.com/vk/nodeflow/internal/registry"
)

// Option customizes an App.
type Option func(*App)

// WithDialer replaces the socket.io dialer used by the watch command.
func WithDialer(d livesync.Dialer) Option {
	return func(a *App) { a.dialer = d }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	ctx        context.Context
	logger     *slog.Logger
	config     *Config
	settings   *config.Settings
	registry   *registry.Registry
	metrics    *metrics.Registry
	dialer     livesync.Dialer
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the editor
// configuration, applies the command-line overrides and builds the node type
// catalog. Configuration errors are fatal and reported with a panic, which the
// entrypoint recovers.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfgModel, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.", "node_types", len(cfgModel.NodeTypes))

	settings := cfgModel.Settings
	if cfg.APIURL != "" {
		settings.APIURL = cfg.APIURL
	}
	if cfg.SocketURL != "" {
		settings.SocketURL = cfg.SocketURL
	}
	if cfg.Provider != "" {
		settings.Provider = cfg.Provider
	}
	if err := settings.Validate(); err != nil {
		panic(err)
	}

	reg := registry.New()
	reg.PopulateDefinitionsFromModel(cfgModel)
	if err := reg.ValidateRegistry(ctx); err != nil {
		// A catalog that cannot be wired is a configuration bug, so we panic.
		panic(err)
	}
	logger.Debug("Registry validation passed.", "types", reg.Types())

	a := &App{
		outW:     outW,
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		settings: settings,
		registry: reg,
		metrics:  metrics.NewRegistry(),
	}
	if settings.SocketURL != "" {
		a.dialer = &livesync.SocketIODialer{
			URL:       settings.SocketURL,
			Path:      settings.SocketPath,
			Namespace: settings.Namespace,
			Timeout:   settings.RequestTimeout,
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Settings returns the effective settings. This is primarily for testing.
func (a *App) Settings() *config.Settings {
	return a.settings
}
