package diary

import (
	"errors"
	"fmt"

	"mediadiary-server/internal/docstore"
)

// ValidationError rejects caller input before anything is read or written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConsistencyError reports stored state that contradicts the transition: a missing
// entry or media record, a counter that would go negative, or a precondition that
// failed at commit because the state changed concurrently.
type ConsistencyError struct {
	Op  string
	Err error
}

func (e *ConsistencyError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *ConsistencyError) Unwrap() error { return e.Err }

// StoreError reports a backend failure. The transition was not applied.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": store: " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// readErr classifies a failed read of state the transition depends on.
func readErr(op string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return &ConsistencyError{Op: op, Err: err}
	}
	return &StoreError{Op: op, Err: err}
}

// commitErr classifies a failed commit.
func commitErr(op string, err error) error {
	if errors.Is(err, docstore.ErrPrecondition) {
		return &ConsistencyError{Op: op, Err: err}
	}
	return &StoreError{Op: op, Err: err}
}

func outcome(err error) string {
	var (
		verr *ValidationError
		cerr *ConsistencyError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "validation"
	case errors.As(err, &cerr):
		return "consistency"
	default:
		return "store"
	}
}
