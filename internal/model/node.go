// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Node, the unit the user places on the canvas.
//
// Why copy-on-write helpers?
//
// Stored nodes are shared between the graph store and every observer that
// took a snapshot. Writing through a shared pointer would silently change
// what those observers already hold, so every change goes through a helper
// that returns a fresh value.
package model

import (
	"maps"
	"math"

	"github.com/google/uuid"
)

// Position is a point on the canvas, in pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the translation of p by o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Distance returns the euclidean distance between two points.
func (p Position) Distance(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// NodeData is the type-specific payload of a node.
type NodeData struct {
	Name    string         `json:"name,omitempty"`
	Model   string         `json:"model,omitempty"`
	Handles Handles        `json:"handles"`
	Params  map[string]any `json:"params,omitempty"`
	// Iterator marks nodes whose Values fan a downstream run out into
	// one run per value.
	Iterator bool  `json:"iterator,omitempty"`
	Values   []any `json:"values,omitempty"`
}

// Clone returns a copy that shares no mutable state with d.
func (d *NodeData) Clone() *NodeData {
	if d == nil {
		return &NodeData{}
	}
	c := *d
	c.Handles = d.Handles.clone()
	c.Params = maps.Clone(d.Params)
	c.Values = append([]any(nil), d.Values...)
	return &c
}

// Node is a typed processing unit in the recipe graph.
type Node struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Position Position  `json:"position"`
	Data     *NodeData `json:"data"`
}

// NewNodeID returns a fresh random node id.
func NewNodeID() string {
	return uuid.NewString()
}

// WithData returns a copy of n carrying data.
func (n *Node) WithData(data *NodeData) *Node {
	c := *n
	c.Data = data
	return &c
}

// WithPosition returns a copy of n moved to pos.
func (n *Node) WithPosition(pos Position) *Node {
	c := *n
	c.Position = pos
	return &c
}

// IsIterator reports whether the node enumerates values for downstream runs.
func (n *Node) IsIterator() bool {
	return n != nil && n.Data != nil && n.Data.Iterator
}

// Handle looks up one of the node's handles.
func (n *Node) Handle(dir Direction, key string) (Handle, bool) {
	if n == nil || n.Data == nil {
		return Handle{}, false
	}
	return n.Data.Handles.Find(dir, key)
}

// HandlePosition returns the absolute canvas position of a handle.
func (n *Node) HandlePosition(h Handle) Position {
	return n.Position.Add(h.Offset)
}
