// Package fsm provides the deterministic state machine that drives every
// simulated entity.
//
// # Core Components
//
// State - a unit of behaviour with OnEnter, Update, OnExit and Persist
//
// Result - the closed transition signal returned by OnEnter and Update
//
// Machine - an insertion-ordered set of states with exactly one active state
//
// # Transition Protocol
//
// Once per logic frame the owner calls Machine.Update. The active state's
// Update runs; when it returns TransitionTo(id) the machine calls OnExit on the
// current state, switches to id and calls OnEnter on the destination. OnEnter
// may itself request another transition, so several transitions can chain
// within one tick. The chain is bounded by MaxTransitionsPerTick and a run
// that exceeds it fails with a CycleError naming the visited ids.
//
// A target that is not registered is rejected before OnExit runs, so a failed
// transition leaves the machine in the state it started in:
//
//	m := fsm.New("unit-7")
//	m.AddState(idle, &idleState{})
//	m.AddState(attack, &attackState{})
//	if err := m.TransitionTo(9999); errors.Is(err, fsm.ErrUnknownState) {
//	    // m.Current() is still idle
//	}
//
// # Nesting
//
// A state may own a private Machine for a sub-behaviour. The owning state
// persists it from its own Persist method; Attach records the ownership so
// ActivePath can describe the whole tree for diagnostics.
//
// # Persistence
//
// Machine.Persist writes a version tag, the active state id, the ticks spent
// in that state and then delegates to the active state. Reading restores the
// active state without calling OnEnter.
package fsm
