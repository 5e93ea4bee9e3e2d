package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/nodeflow/internal/model"
)

// Commands understood by App.Run.
const (
	CommandCheck    = "check"
	CommandEstimate = "estimate"
	CommandSave     = "save"
	CommandWatch    = "watch"
)

// Commands lists every command, in usage order.
var Commands = []string{CommandCheck, CommandEstimate, CommandSave, CommandWatch}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command     string
	RecipePath  string   // recipe JSON document
	ConfigPaths []string // hcl files or directories

	// Overrides of the matching settings; empty keeps the configured value.
	APIURL    string
	SocketURL string
	Provider  string

	Token     string
	Role      model.Role
	Selection []string
	Runs      int

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if !slices.Contains(Commands, cfg.Command) {
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.RecipePath == "" {
		return nil, errors.New("RecipePath is a required configuration field and cannot be empty")
	}
	if cfg.Runs == 0 {
		cfg.Runs = 1
	}
	if cfg.Runs < 0 {
		return nil, fmt.Errorf("runs must be positive, got %d", cfg.Runs)
	}
	if cfg.Role == "" {
		cfg.Role = model.RoleEditor
	}
	if _, err := model.ParseRole(string(cfg.Role)); err != nil {
		return nil, err
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("healthcheck port must not be negative, got %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
