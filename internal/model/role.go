// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the caller roles that gate saves and the live channel.
package model

import "fmt"

// Role is the caller's access level on the open recipe.
type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"
)

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleEditor, RoleViewer, RoleGuest:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q: must be 'editor', 'viewer' or 'guest'", s)
	}
}

// CanEdit reports whether the role may save the recipe and hold a live channel.
func (r Role) CanEdit() bool {
	return r == RoleEditor
}
