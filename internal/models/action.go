package models

import "fmt"

// ActionKind discriminates the two batch operations.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionRemove ActionKind = "remove"
)

// Action is the validated parameter set for one batch invocation.
// Construct through NewCreateAction or NewRemoveAction; the zero value
// is not a usable action.
type Action struct {
	Kind        ActionKind
	Name        string
	Description string
	MaxRetained int
}

// NewCreateAction builds a snapshot-creation action. The snapshot name
// is required; the description may be empty.
func NewCreateAction(name, description string) (Action, error) {
	if name == "" {
		return Action{}, fmt.Errorf("snapshot name is required for a create action")
	}
	return Action{
		Kind:        ActionCreate,
		Name:        name,
		Description: description,
	}, nil
}

// NewRemoveAction builds a snapshot-prune action keeping at most
// maxRetained snapshots per target.
func NewRemoveAction(maxRetained int) (Action, error) {
	if maxRetained < 0 {
		return Action{}, fmt.Errorf("max retained snapshots must be non-negative, got %d", maxRetained)
	}
	return Action{
		Kind:        ActionRemove,
		MaxRetained: maxRetained,
	}, nil
}
