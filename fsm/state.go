package fsm

import "github.com/tailored-agentic-units/simstate/persist"

// State is a unit of behaviour. Exactly one state of a machine is active at a
// time.
//
// Update must depend only on persisted state and explicit inputs so that two
// runs from the same snapshot make the same transitions. Whatever a state
// changes on its owner in OnEnter it undoes in OnExit. Persist writes a
// version tag first and then every field that affects future behaviour,
// including owned sub-machines.
type State interface {
	OnEnter() Result
	Update() Result
	OnExit()
	Persist(p *persist.Persister)
}

// BaseState provides no-op OnEnter and OnExit for embedding.
type BaseState struct{}

func (BaseState) OnEnter() Result { return Continue() }

func (BaseState) OnExit() {}

// PersistStateID persists a state id as a four-byte integer.
func PersistStateID(p *persist.Persister, id *StateID) {
	persist.PersistEnum(p, id)
}
