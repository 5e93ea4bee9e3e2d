// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Kind, the value kind carried by a handle.
//
// Why wrap cty.Type?
//
// A handle that declares no type must behave as the "any" wildcard, and a
// recipe read from disk may omit the kind entirely. cty.NilType cannot be
// serialized, so Kind normalizes the zero value to cty.DynamicPseudoType at
// every boundary.
package model

import (
	"github.com/zclconf/go-cty/cty"
)

// Kind is the value kind a handle accepts or produces.
type Kind struct {
	t cty.Type
}

// AnyKind is the wildcard kind, compatible with every other kind.
var AnyKind = Kind{t: cty.DynamicPseudoType}

// KindOf wraps a cty type.
func KindOf(t cty.Type) Kind {
	return Kind{t: t}
}

// Type returns the underlying cty type. The zero Kind reports cty.DynamicPseudoType.
func (k Kind) Type() cty.Type {
	if k.t == cty.NilType {
		return cty.DynamicPseudoType
	}
	return k.t
}

// IsAny reports whether the kind is the wildcard.
func (k Kind) IsAny() bool {
	return k.Type().Equals(cty.DynamicPseudoType)
}

// Compatible reports whether a value of kind k may flow into a handle of kind other.
// Kinds are compatible when either side is the wildcard or both are identical.
func (k Kind) Compatible(other Kind) bool {
	if k.IsAny() || other.IsAny() {
		return true
	}
	return k.Type().Equals(other.Type())
}

// String returns the cty friendly name, e.g. "string" or "list of string".
func (k Kind) String() string {
	return k.Type().FriendlyName()
}

// MarshalJSON encodes the kind using cty's JSON type notation.
func (k Kind) MarshalJSON() ([]byte, error) {
	return k.Type().MarshalJSON()
}

// UnmarshalJSON decodes cty's JSON type notation. A JSON null leaves the wildcard.
func (k *Kind) UnmarshalJSON(buf []byte) error {
	if string(buf) == "null" {
		*k = AnyKind
		return nil
	}
	var t cty.Type
	if err := t.UnmarshalJSON(buf); err != nil {
		return err
	}
	k.t = t
	return nil
}
