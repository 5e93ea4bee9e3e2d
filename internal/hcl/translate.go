// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic configuration model defined in the config package.

package hcl

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/nodeflow/internal/config"
)

// mergeSettings applies every attribute set in the block on top of dst.
func mergeSettings(dst *config.Settings, s *settingsBlock) error {
	setString(&dst.APIURL, s.APIURL)
	setString(&dst.SocketURL, s.SocketURL)
	setString(&dst.SocketPath, s.SocketPath)
	setString(&dst.Namespace, s.Namespace)
	setString(&dst.Provider, s.Provider)
	if s.DefaultPrice != nil {
		dst.DefaultPrice = *s.DefaultPrice
	}
	if s.PricingParams != nil {
		dst.PricingParams = append([]string(nil), s.PricingParams...)
	}
	if err := setDuration(&dst.RequestTimeout, s.RequestTimeout, "request_timeout"); err != nil {
		return err
	}
	if err := setDuration(&dst.CostDebounce, s.CostDebounce, "cost_debounce"); err != nil {
		return err
	}

	if p := s.Proximity; p != nil {
		if err := setDuration(&dst.Proximity.Interval, p.Interval, "proximity.interval"); err != nil {
			return err
		}
		if err := setDuration(&dst.Proximity.ReleaseGrace, p.ReleaseGrace, "proximity.release_grace"); err != nil {
			return err
		}
		if p.Threshold != nil {
			dst.Proximity.Threshold = *p.Threshold
		}
		if p.Radius != nil {
			dst.Proximity.Radius = *p.Radius
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, attr string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("settings: invalid duration for %s: %w", attr, err)
	}
	*dst = d
	return nil
}

// translateNodeType converts the HCL-specific node type schema into the agnostic model.
func translateNodeType(ctx context.Context, b *nodeTypeBlock) (*config.NodeTypeDefinition, error) {
	def := &config.NodeTypeDefinition{
		Type:        b.Type,
		Description: b.Description,
		Model:       b.Model,
		Iterator:    b.Iterator,
	}

	seen := make(map[string]struct{})
	translate := func(hb *handleBlock, kind string) (*config.HandleDefinition, error) {
		key := kind + ":" + hb.Key
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("node_type '%s': duplicate %s '%s'", b.Type, kind, hb.Key)
		}
		seen[key] = struct{}{}

		ty, err := typeExprToCtyType(ctx, hb.Type)
		if err != nil {
			return nil, fmt.Errorf("node_type '%s', %s '%s': %w", b.Type, kind, hb.Key, err)
		}
		h := &config.HandleDefinition{
			Key:            hb.Key,
			Type:           ty,
			Description:    hb.Description,
			Required:       hb.Required,
			MaxConnections: hb.MaxConnections,
		}
		switch len(hb.Offset) {
		case 0:
		case 2:
			h.OffsetX, h.OffsetY = hb.Offset[0], hb.Offset[1]
		default:
			return nil, fmt.Errorf("node_type '%s', %s '%s': offset must have exactly two elements", b.Type, kind, hb.Key)
		}
		return h, nil
	}

	for _, in := range b.Inputs {
		h, err := translate(in, "input")
		if err != nil {
			return nil, err
		}
		def.Inputs = append(def.Inputs, h)
	}
	for _, out := range b.Outputs {
		h, err := translate(out, "output")
		if err != nil {
			return nil, err
		}
		if h.Required {
			return nil, fmt.Errorf("node_type '%s', output '%s': outputs cannot be required", b.Type, out.Key)
		}
		def.Outputs = append(def.Outputs, h)
	}
	return def, nil
}
