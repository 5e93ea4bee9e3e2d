// Package pricing turns the flat model price list into lookup maps and prices
// individual nodes.
package pricing

import (
	"fmt"
	"strconv"

	"github.com/vk/nodeflow/internal/model"
)

// PriceOverride replaces a model's base price when every listed parameter
// matches the node's value.
type PriceOverride struct {
	Params  map[string]string `json:"params"`
	Credits float64           `json:"credits"`
}

// ModelPrice is one entry of the price list.
type ModelPrice struct {
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Credits   float64         `json:"credits"`
	Overrides []PriceOverride `json:"overrides,omitempty"`
	// Multiplier names a numeric parameter the price is multiplied by, such
	// as the number of outputs.
	Multiplier string `json:"multiplier,omitempty"`
}

// Maps is the read-only price lookup built once per session.
type Maps struct {
	ModelsByType map[string]ModelPrice
	ModelsByName map[string]ModelPrice
	DefaultPrice float64
}

// NewMaps indexes a price list. When several entries share a type, the first
// one wins for the by-type lookup.
func NewMaps(prices []ModelPrice, defaultPrice float64) *Maps {
	m := &Maps{
		ModelsByType: make(map[string]ModelPrice, len(prices)),
		ModelsByName: make(map[string]ModelPrice, len(prices)),
		DefaultPrice: defaultPrice,
	}
	for _, p := range prices {
		if p.Name != "" {
			m.ModelsByName[p.Name] = p
		}
		if _, exists := m.ModelsByType[p.Type]; p.Type != "" && !exists {
			m.ModelsByType[p.Type] = p
		}
	}
	return m
}

// Lookup finds the price entry of a node: by model name first, then by node
// type.
func (m *Maps) Lookup(n *model.Node) (ModelPrice, bool) {
	if n.Data != nil && n.Data.Model != "" {
		if p, ok := m.ModelsByName[n.Data.Model]; ok {
			return p, true
		}
	}
	p, ok := m.ModelsByType[n.Type]
	return p, ok
}

// Price returns the credits of a single run of node n with the given
// pricing-relevant parameters. Unknown models cost DefaultPrice.
func (m *Maps) Price(n *model.Node, params map[string]any) float64 {
	p, ok := m.Lookup(n)
	if !ok {
		return m.DefaultPrice
	}

	credits := p.Credits
	for _, o := range p.Overrides {
		if matches(o.Params, params) {
			credits = o.Credits
			break
		}
	}
	if p.Multiplier != "" {
		if f, ok := toFloat(params[p.Multiplier]); ok && f > 0 {
			credits *= f
		}
	}
	return credits
}

// RelevantParams keeps only the parameters listed in keys.
func RelevantParams(params map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := params[k]; ok {
			out[k] = v
		}
	}
	return out
}

func matches(want map[string]string, params map[string]any) bool {
	for k, v := range want {
		got, ok := params[k]
		if !ok || fmt.Sprint(got) != v {
			return false
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
