package persist

import (
	"errors"
	"fmt"
	"time"
)

// Outcome tags the result of a save.
type Outcome string

const (
	OutcomeSkipped Outcome = "skipped"
	OutcomeSaved   Outcome = "saved"
	OutcomeFailed  Outcome = "failed"
)

// Kind classifies a failed save.
type Kind string

const (
	// KindConflict means another writer saved a newer version first.
	KindConflict Kind = "conflict"
	// KindUnknown covers transport and server failures.
	KindUnknown Kind = "unknown"
)

// Reasons reported with OutcomeSkipped.
const (
	ReasonNotEditor = "not_editor"
	ReasonNoNodes   = "no_nodes"
	ReasonInFlight  = "in_flight"
)

// ErrConflict matches every SaveError of KindConflict with errors.Is.
var ErrConflict = errors.New("recipe was saved by another writer")

// Result is the tagged outcome of Coordinator.Save.
type Result struct {
	Outcome Outcome
	// Reason explains a skipped save.
	Reason string
	// UpdatedAt is the new logical clock after a successful save.
	UpdatedAt time.Time
	// Kind classifies a failed save.
	Kind Kind
}

// SaveError is returned, and recorded as the workflow error, when a save does
// not land.
type SaveError struct {
	Kind     Kind
	RecipeID string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save recipe %s (%s): %v", e.RecipeID, e.Kind, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// Is reports conflicts as ErrConflict.
func (e *SaveError) Is(target error) bool {
	return target == ErrConflict && e.Kind == KindConflict
}
