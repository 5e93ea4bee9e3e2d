package handleid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/nodeflow/internal/model"
)

// Address is the structured representation of a handle identifier.
type Address struct {
	NodeID    string
	Direction model.Direction
	Key       string
}

// New builds an address for an output or input handle.
func New(nodeID string, dir model.Direction, key string) Address {
	return Address{NodeID: nodeID, Direction: dir, Key: key}
}

// Source is shorthand for an output handle address.
func Source(nodeID, key string) Address {
	return New(nodeID, model.Output, key)
}

// Target is shorthand for an input handle address.
func Target(nodeID, key string) Address {
	return New(nodeID, model.Input, key)
}

// String serializes the Address into its canonical representation.
func (a Address) String() string {
	if a.NodeID == "" {
		return ""
	}
	return a.NodeID + ":" + string(a.Direction) + ":" + a.Key
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// nodeIDRegex restricts node ids to the characters produced by id generators
// and hand-written recipes. The separator ':' is excluded.
var nodeIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Parse creates an Address from its canonical string representation. The key
// is everything after the second separator and may itself contain ':'.
func Parse(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("handle identifier cannot be empty")
	}

	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return Address{}, fmt.Errorf("invalid handle identifier %q: expected node:direction:key", raw)
	}

	nodeID, dir, key := parts[0], model.Direction(parts[1]), parts[2]
	if !nodeIDRegex.MatchString(nodeID) {
		return Address{}, fmt.Errorf("invalid node id %q", nodeID)
	}
	if !dir.Valid() {
		return Address{}, fmt.Errorf("invalid handle direction %q", dir)
	}
	if key == "" {
		return Address{}, fmt.Errorf("handle identifier %q has an empty key", raw)
	}

	return Address{NodeID: nodeID, Direction: dir, Key: key}, nil
}
