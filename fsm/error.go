package fsm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownState is returned for a transition to an unregistered id.
	ErrUnknownState = errors.New("unknown state")

	// ErrDuplicateState is raised when an id is registered twice.
	ErrDuplicateState = errors.New("duplicate state")

	// ErrNilState is raised when a nil state is registered.
	ErrNilState = errors.New("nil state")

	// ErrNoStates is returned when a machine without states is driven.
	ErrNoStates = errors.New("machine has no states")

	// ErrTransitionCycle is wrapped by CycleError.
	ErrTransitionCycle = errors.New("transition cycle")
)

// TopologyError reports a machine whose states do not support the requested
// operation: a duplicate or nil registration, or a transition to an id that
// was never registered.
type TopologyError struct {
	Machine string
	Op      string
	From    StateID
	State   StateID
	Err     error
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	if e.Op == "transition" {
		return fmt.Sprintf("fsm %s: transition %d -> %d: %v", e.Machine, e.From, e.State, e.Err)
	}
	return fmt.Sprintf("fsm %s: %s state %d: %v", e.Machine, e.Op, e.State, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *TopologyError) Unwrap() error {
	return e.Err
}

// CycleError is returned when chained transitions within one tick exceed the
// machine's bound. Path lists every state entered during the tick, starting
// with the state the tick began in.
type CycleError struct {
	Machine string
	Path    []StateID
	Limit   int
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	ids := make([]string, len(e.Path))
	for i, id := range e.Path {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("fsm %s: more than %d transitions in one tick: %s",
		e.Machine, e.Limit, strings.Join(ids, " -> "))
}

// Unwrap returns ErrTransitionCycle.
func (e *CycleError) Unwrap() error {
	return ErrTransitionCycle
}
