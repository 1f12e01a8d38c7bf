package domain

import "fmt"

// Error types shared by every pipeline component. Callers match them with
// errors.As; the HTTP layer maps each one to a status code.

// ErrNotFound indicates a referenced entity does not exist.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates malformed or policy-violating input.
type ErrValidation struct {
	Field   string
	Value   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation error on '%s' (%q): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates the actor's scope excludes the target or the
// actor's role is not recognised.
type ErrUnauthorized struct {
	ActorID  string
	Action   string
	Resource string
	ID       string
}

func (e *ErrUnauthorized) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("unauthorized: actor %q may not %s", e.ActorID, e.Action)
	}
	return fmt.Sprintf("unauthorized: actor %q may not %s %s %s", e.ActorID, e.Action, e.Resource, e.ID)
}

// ErrConcurrentModification indicates an optimistic precondition failed
// because another writer changed the row first.
type ErrConcurrentModification struct {
	Resource string
	ID       string
	Field    string
}

func (e *ErrConcurrentModification) Error() string {
	return fmt.Sprintf("concurrent modification of %s %s (%s changed)", e.Resource, e.ID, e.Field)
}

// ErrProvider wraps a backend failure. The cause is kept for logging and
// errors.Is but never shown to end users.
type ErrProvider struct {
	Backend string
	Op      string
	Err     error
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("provider error [%s] %s: %v", e.Backend, e.Op, e.Err)
}

func (e *ErrProvider) Unwrap() error {
	return e.Err
}

// Provider wraps err as an ErrProvider unless it already belongs to the
// domain taxonomy, in which case it is returned unchanged.
func Provider(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *ErrNotFound, *ErrValidation, *ErrUnauthorized, *ErrConcurrentModification, *ErrProvider:
		return err
	}
	return &ErrProvider{Backend: backend, Op: op, Err: err}
}
