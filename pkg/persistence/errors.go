package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations use.
var (
	// ErrFlowNotFound indicates no flow exists under the given identifier.
	ErrFlowNotFound = errors.New("flow not found")
)

// FlowError wraps flow-storage errors with operation context.
type FlowError struct {
	Op     string // Operation being performed ("FlowByID", "SaveFlow", ...)
	FlowID string
	Err    error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// NewFlowError creates a wrapped flow-storage error.
func NewFlowError(op, flowID string, err error) *FlowError {
	return &FlowError{Op: op, FlowID: flowID, Err: err}
}

// IsFlowNotFound checks whether the error chain contains ErrFlowNotFound.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}
