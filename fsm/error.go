package fsm

import (
	"errors"
	"fmt"
)

// Common FSM errors
var (
	// ErrStatesExceeded indicates an operation exceeded its state budget
	ErrStatesExceeded = errors.New("state budget exceeded")

	// ErrNotDFA indicates an operation requiring the DFA invariant was given
	// a machine without it
	ErrNotDFA = errors.New("machine is not a DFA")
)

// LimitError reports which operation ran out of budget and what the budget
// was. It unwraps to ErrStatesExceeded.
type LimitError struct {
	Op    string
	Limit int
}

// Error implements the error interface
func (e *LimitError) Error() string {
	return fmt.Sprintf("fsm %s: %v (limit %d)", e.Op, ErrStatesExceeded, e.Limit)
}

// Unwrap returns ErrStatesExceeded
func (e *LimitError) Unwrap() error { return ErrStatesExceeded }
