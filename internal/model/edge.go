// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Edge, a directed wire between two handles.
package model

import "github.com/google/uuid"

// Edge connects an output handle of Source to an input handle of Target.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle"`
}

// NewEdge builds an edge with a fresh random id.
func NewEdge(source, sourceHandle, target, targetHandle string) *Edge {
	return &Edge{
		ID:           uuid.NewString(),
		Source:       source,
		SourceHandle: sourceHandle,
		Target:       target,
		TargetHandle: targetHandle,
	}
}

// References reports whether the edge touches the given node.
func (e *Edge) References(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// SameEndpoints reports whether two edges wire the same pair of handles.
func (e *Edge) SameEndpoints(o *Edge) bool {
	return e.Source == o.Source && e.SourceHandle == o.SourceHandle &&
		e.Target == o.Target && e.TargetHandle == o.TargetHandle
}
