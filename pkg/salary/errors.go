package salary

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInconsistent matches every ConsistencyError via errors.Is.
var ErrInconsistent = errors.New("salary: inconsistent hierarchy state")

// Causes carried by a ConsistencyError.
var (
	ErrUnknownEmployee = errors.New("referenced employee is not registered")
	ErrUnknownRole     = errors.New("employee has an unknown role")
	ErrDepthExceeded   = errors.New("hierarchy deeper than the configured limit")
)

// ConsistencyError reports that the roster and the hierarchy disagree, or that
// the walk exceeded its depth ceiling. It aborts the requested computation only.
type ConsistencyError struct {
	EmployeeID uuid.UUID
	Cause      error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("salary for %s: %v", e.EmployeeID, e.Cause)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Cause
}

func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInconsistent
}
