// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go representation of a workflow recipe: the nodes
// a user places on the canvas, the edges wiring their handles together, and
// the recipe envelope the remote store persists.
//
// # Core Concepts
//
// The model is built around a few key structures:
//
//   - Recipe: The root container for a single workflow. It aggregates nodes,
//     edges, sections, and the logical clock (`UpdatedAt`) used for optimistic
//     concurrency when saving.
//
//   - Node: A typed processing unit. Its `Data` carries declared input and
//     output handles, user parameters, and, for iterator nodes, the list of
//     values the node enumerates.
//
//   - Edge: A directed wire from an output handle of one node to an input
//     handle of another.
//
//   - Handle: A typed connection point. Its `Kind` is a cty type; the zero
//     Kind behaves as the "any" wildcard.
//
// Why are nodes treated as immutable values?
//
// Observers (the cost estimator, the save path, UI diffing) compare nodes by
// pointer and shape. A mutation therefore always produces a new *Node with a
// new *NodeData rather than editing the stored one in place. The helpers in
// this package (`WithData`, `WithPosition`, `NodeData.Clone`) make that cheap
// and explicit.
package model
