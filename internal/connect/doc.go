// Package connect decides which edges may exist and creates them.
//
// The Engine enforces the structural rules the graph store leaves open: an
// edge joins an output to an input on two different nodes, the handle kinds
// are compatible, the target's arity is not exhausted, and the new edge does
// not close a cycle. A rejected connection is a normal outcome, not an error,
// so ConnectEdge reports it with a boolean.
//
// Proximity drives the modifier-drag auto-connect gesture on top of the
// Engine. While a modifier is held and nodes are being dragged it samples the
// handles around the dragged nodes at a fixed interval and connects the
// closest compatible output/input pair within the threshold.
package connect
