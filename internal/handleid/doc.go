// Package handleid provides the structured identifier of a single handle in a
// recipe graph: the owning node, the handle's direction, and its key.
//
// The canonical string form is `node:direction:key`, e.g.
// `3f2c9a:output:image`. It is used as a map key by the connection engine and
// in log attributes.
package handleid
