// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Recipe, the root container persisted by the remote
// store, and the helpers to read it from disk.
//
// Why is UpdatedAt special?
//
// UpdatedAt is the logical clock for optimistic concurrency. Every save sends
// the value it last observed; the store rejects the write with a conflict if
// another writer advanced it in between. Only a successful save moves it.
package model

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
)

// Section groups nodes visually on the canvas.
type Section struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	NodeIDs []string `json:"nodeIds,omitempty"`
}

// Recipe is a saved workflow graph.
type Recipe struct {
	ID                string         `json:"id"`
	Name              string         `json:"name,omitempty"`
	Nodes             []*Node        `json:"nodes"`
	Edges             []*Edge        `json:"edges"`
	Version           int            `json:"version"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	Sections          []Section      `json:"sections,omitempty"`
	PosterImageURL    string         `json:"posterImageUrl,omitempty"`
	DesignAppMetadata map[string]any `json:"designAppMetadata,omitempty"`
}

// ReadRecipe decodes a recipe document.
func ReadRecipe(r io.Reader) (*Recipe, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	var recipe Recipe
	if err := sonic.Unmarshal(buf, &recipe); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	if recipe.ID == "" {
		return nil, fmt.Errorf("recipe is missing an id")
	}
	for i, n := range recipe.Nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("recipe node at index %d is missing an id", i)
		}
		if n.Data == nil {
			n.Data = &NodeData{}
		}
	}
	return &recipe, nil
}

// LoadRecipe reads a recipe document from a file.
func LoadRecipe(path string) (*Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipe %s: %w", path, err)
	}
	defer f.Close()

	recipe, err := ReadRecipe(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recipe, nil
}

// WriteRecipe encodes a recipe document, indented for humans.
func WriteRecipe(w io.Writer, recipe *Recipe) error {
	buf, err := sonic.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}
	_, err = w.Write(append(buf, '\n'))
	return err
}
