// Package config defines the format-agnostic configuration model of the
// editor core: runtime settings (endpoints, timing, proximity tuning, pricing
// inputs) and the catalog of node types with their declared handles.
//
// Concrete loaders (see internal/hcl) translate a specific file format into
// this model so that the rest of the application never depends on HCL.
package config
