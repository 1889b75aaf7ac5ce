package fsm

import "fmt"

// StateID identifies a state within one machine.
type StateID uint32

// Result is the outcome of OnEnter or Update: either stay in the current state
// or move to another one. The zero value is Continue.
type Result struct {
	next       StateID
	transition bool
}

// Continue keeps the machine in its current state.
func Continue() Result {
	return Result{}
}

// TransitionTo requests a transition to id.
func TransitionTo(id StateID) Result {
	return Result{next: id, transition: true}
}

// Next returns the requested target and whether a transition was requested.
func (r Result) Next() (StateID, bool) {
	return r.next, r.transition
}

// IsContinue reports whether the result keeps the current state.
func (r Result) IsContinue() bool {
	return !r.transition
}

func (r Result) String() string {
	if !r.transition {
		return "continue"
	}
	return fmt.Sprintf("transition(%d)", r.next)
}
