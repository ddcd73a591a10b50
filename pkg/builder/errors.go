package builder

import "fmt"

var (
	// ErrPrerequisite is returned when an operation targets an entity
	// that has not been persisted yet (e.g. adding a page to an unsaved
	// survey).
	ErrPrerequisite = fmt.Errorf("entity not persisted yet")
	// ErrInvalidOperation is returned when an operation is not valid
	// for the entity's current type or state (e.g. adding an option to
	// a text question).
	ErrInvalidOperation = fmt.Errorf("invalid operation")
	// ErrNotFound is returned when the named entity is not in the tree.
	ErrNotFound = fmt.Errorf("entity not found in tree")
)

// CollaboratorError wraps a failed backend call. By the time it is
// returned the optimistic local change has already been reverted, so
// the tree is usable and consistent.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func collabErr(op string, err error) error {
	return &CollaboratorError{Op: op, Err: err}
}
