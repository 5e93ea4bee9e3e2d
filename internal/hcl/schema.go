package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Settings  []*settingsBlock `hcl:"settings,block"`
	NodeTypes []*nodeTypeBlock `hcl:"node_type,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

// settingsBlock mirrors config.Settings. Every attribute is optional so that
// several files can each override a subset.
type settingsBlock struct {
	APIURL         *string         `hcl:"api_url,optional"`
	SocketURL      *string         `hcl:"socket_url,optional"`
	SocketPath     *string         `hcl:"socket_path,optional"`
	Namespace      *string         `hcl:"namespace,optional"`
	Provider       *string         `hcl:"provider,optional"`
	RequestTimeout *string         `hcl:"request_timeout,optional"`
	CostDebounce   *string         `hcl:"cost_debounce,optional"`
	DefaultPrice   *float64        `hcl:"default_price,optional"`
	PricingParams  []string        `hcl:"pricing_params,optional"`
	Proximity      *proximityBlock `hcl:"proximity,block"`
}

type proximityBlock struct {
	Interval     *string  `hcl:"interval,optional"`
	Threshold    *float64 `hcl:"threshold,optional"`
	Radius       *float64 `hcl:"radius,optional"`
	ReleaseGrace *string  `hcl:"release_grace,optional"`
}

type nodeTypeBlock struct {
	Type        string         `hcl:"type,label"`
	Description string         `hcl:"description,optional"`
	Model       string         `hcl:"model,optional"`
	Iterator    bool           `hcl:"iterator,optional"`
	Inputs      []*handleBlock `hcl:"input,block"`
	Outputs     []*handleBlock `hcl:"output,block"`
}

type handleBlock struct {
	Key            string         `hcl:"key,label"`
	Type           hcl.Expression `hcl:"type,optional"`
	Description    string         `hcl:"description,optional"`
	Required       bool           `hcl:"required,optional"`
	MaxConnections int            `hcl:"max_connections,optional"`
	Offset         []float64      `hcl:"offset,optional"`
}
