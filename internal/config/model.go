package config

import (
	"fmt"
	"time"

	"github.com/vk/nodeflow/internal/validation"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the editor
// configuration.
type Model struct {
	Settings  *Settings
	NodeTypes map[string]*NodeTypeDefinition
}

// NewModel returns a model with default settings and an empty catalog.
func NewModel() *Model {
	return &Model{
		Settings:  DefaultSettings(),
		NodeTypes: make(map[string]*NodeTypeDefinition),
	}
}

// Settings holds the runtime tuning of the editor core.
type Settings struct {
	APIURL         string        `validate:"omitempty,url"`
	SocketURL      string        `validate:"omitempty,url"`
	SocketPath     string        `validate:"required,startswith=/"`
	Namespace      string        `validate:"required,startswith=/"`
	Provider       string        `validate:"required"`
	RequestTimeout time.Duration `validate:"gt=0"`
	CostDebounce   time.Duration `validate:"gt=0"`
	// DefaultPrice is charged for models missing from the price list.
	DefaultPrice float64 `validate:"gte=0"`
	Proximity    Proximity
	// PricingParams lists the node parameters that influence a model's price.
	// Changes to any other parameter never trigger a cost recomputation.
	PricingParams []string `validate:"dive,required"`
}

// Proximity tunes the modifier-drag auto-connect behaviour.
type Proximity struct {
	Interval     time.Duration `validate:"gt=0"`
	Threshold    float64       `validate:"gt=0"`
	Radius       float64       `validate:"gtfield=Threshold"`
	ReleaseGrace time.Duration `validate:"gte=0"`
}

// DefaultSettings returns the settings used when no configuration file sets them.
func DefaultSettings() *Settings {
	return &Settings{
		SocketPath:     "/socket.io/",
		Namespace:      "/workflow",
		Provider:       "password",
		RequestTimeout: 30 * time.Second,
		CostDebounce:   300 * time.Millisecond,
		Proximity: Proximity{
			Interval:     100 * time.Millisecond,
			Threshold:    32,
			Radius:       500,
			ReleaseGrace: 150 * time.Millisecond,
		},
		PricingParams: []string{"num_outputs", "duration", "resolution", "quality", "aspect_ratio"},
	}
}

// Validate checks the settings for consistency.
func (s *Settings) Validate() error {
	if err := validation.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// --- Node Type Catalog ---

// NodeTypeDefinition is the format-agnostic representation of a node type.
type NodeTypeDefinition struct {
	Type        string
	Description string
	// Model is the default pricing model name for nodes of this type.
	Model    string
	Iterator bool
	Inputs   []*HandleDefinition
	Outputs  []*HandleDefinition
}

// HandleDefinition declares one input or output of a node type.
type HandleDefinition struct {
	Key            string
	Type           cty.Type
	Description    string
	Required       bool
	MaxConnections int
	OffsetX        float64
	OffsetY        float64
}
