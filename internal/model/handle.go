// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines handles, the typed connection points of a node.
package model

// Direction tells whether a handle consumes or produces values.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Input || d == Output
}

// Unlimited is the arity value for handles accepting any number of edges.
const Unlimited = -1

// Handle is a single connection point on a node.
type Handle struct {
	ID        string    `json:"id,omitempty"`
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
	Kind      Kind      `json:"kind"`
	// Arity caps the number of edges attached to the handle. Zero selects the
	// default: one for inputs, unlimited for outputs.
	Arity    int      `json:"arity,omitempty"`
	Required bool     `json:"required,omitempty"`
	Offset   Position `json:"offset"`
}

// MaxConnections resolves the effective arity of the handle.
func (h Handle) MaxConnections() int {
	if h.Arity != 0 {
		return h.Arity
	}
	if h.Direction == Output {
		return Unlimited
	}
	return 1
}

// Handles groups a node's declared inputs and outputs.
type Handles struct {
	Input  []Handle `json:"input,omitempty"`
	Output []Handle `json:"output,omitempty"`
}

// Find looks up a handle by direction and key.
func (h Handles) Find(dir Direction, key string) (Handle, bool) {
	list := h.Input
	if dir == Output {
		list = h.Output
	}
	for _, handle := range list {
		if handle.Key == key {
			if handle.Direction == "" {
				handle.Direction = dir
			}
			return handle, true
		}
	}
	return Handle{}, false
}

// All returns every handle with its direction filled in.
func (h Handles) All() []Handle {
	all := make([]Handle, 0, len(h.Input)+len(h.Output))
	for _, in := range h.Input {
		in.Direction = Input
		all = append(all, in)
	}
	for _, out := range h.Output {
		out.Direction = Output
		all = append(all, out)
	}
	return all
}

func (h Handles) clone() Handles {
	return Handles{
		Input:  append([]Handle(nil), h.Input...),
		Output: append([]Handle(nil), h.Output...),
	}
}
