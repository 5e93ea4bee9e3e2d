// Package registry provides the node-type catalog.
//
// The Registry maps the type string stored on every node (e.g. "image_gen") to
// the parsed, format-agnostic definition from configuration: the handles the
// type declares, their value kinds, arity, and whether the type is an
// iterator. It is used to build new nodes with the right handles, to fill in
// handles on nodes loaded from older recipes, and to check recipes against
// the catalog.
//
// During application startup the registry is populated and then validated so
// that a broken catalog fails fast rather than producing nodes nobody can wire.
package registry
