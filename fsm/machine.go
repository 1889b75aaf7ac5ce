package fsm

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/simstate/observability"
	"github.com/tailored-agentic-units/simstate/persist"
)

// MachineVersion is the current persisted layout of a Machine. Version 1 did
// not record the ticks spent in the active state.
const MachineVersion = 2

// Machine owns a set of states and drives exactly one of them. It is not safe
// for concurrent use; each machine belongs to a single simulated entity.
type Machine struct {
	name           string
	ids            []StateID
	states         map[StateID]State
	current        StateID
	ticksInState   uint32
	maxTransitions int
	observer       observability.Observer
	children       map[StateID]*Machine
}

// Option configures a Machine.
type Option func(*Machine)

// WithObserver routes machine events to obs.
func WithObserver(obs observability.Observer) Option {
	return func(m *Machine) {
		if obs != nil {
			m.observer = obs
		}
	}
}

// WithMaxTransitions sets the chained transition bound. Values below one are
// ignored.
func WithMaxTransitions(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxTransitions = n
		}
	}
}

// New creates an empty machine. Name identifies the machine in events and
// errors.
func New(name string, opts ...Option) *Machine {
	m := &Machine{
		name:           name,
		states:         make(map[StateID]State),
		maxTransitions: DefaultMaxTransitionsPerTick,
		observer:       observability.NoOpObserver{},
		children:       make(map[StateID]*Machine),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewFromConfig creates a machine, resolving the observer from the
// observability registry.
func NewFromConfig(name string, cfg Config) (*Machine, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	return New(name, WithObserver(observer), WithMaxTransitions(cfg.MaxTransitionsPerTick)), nil
}

// Name returns the machine identifier.
func (m *Machine) Name() string {
	return m.name
}

// AddState registers state under id. The first registered state becomes the
// active state without being entered; call Start to enter it.
//
// Registering a nil state or an id twice is a programming error and panics
// with a *TopologyError.
func (m *Machine) AddState(id StateID, state State) {
	if state == nil {
		panic(&TopologyError{Machine: m.name, Op: "add", State: id, Err: ErrNilState})
	}
	if _, exists := m.states[id]; exists {
		panic(&TopologyError{Machine: m.name, Op: "add", State: id, Err: ErrDuplicateState})
	}

	if len(m.ids) == 0 {
		m.current = id
	}
	m.ids = append(m.ids, id)
	m.states[id] = state
}

// Attach records child as the sub-machine owned by the state registered
// under owner. The owning state remains responsible for driving and
// persisting the child.
func (m *Machine) Attach(owner StateID, child *Machine) {
	if _, exists := m.states[owner]; !exists {
		panic(&TopologyError{Machine: m.name, Op: "attach", State: owner, Err: ErrUnknownState})
	}
	if _, exists := m.children[owner]; exists {
		panic(&TopologyError{Machine: m.name, Op: "attach", State: owner, Err: ErrDuplicateState})
	}
	m.children[owner] = child
}

// Child returns the sub-machine attached to owner.
func (m *Machine) Child(owner StateID) (*Machine, bool) {
	child, ok := m.children[owner]
	return child, ok
}

// Children returns attached sub-machines in state registration order.
func (m *Machine) Children() []*Machine {
	out := make([]*Machine, 0, len(m.children))
	for _, id := range m.ids {
		if child, ok := m.children[id]; ok {
			out = append(out, child)
		}
	}
	return out
}

// ActivePath returns the active state id of this machine followed by the
// active ids of attached sub-machines, outermost first.
func (m *Machine) ActivePath() []StateID {
	if len(m.ids) == 0 {
		return nil
	}
	path := []StateID{m.current}
	if child, ok := m.children[m.current]; ok {
		path = append(path, child.ActivePath()...)
	}
	return path
}

// Current returns the active state id.
func (m *Machine) Current() StateID {
	return m.current
}

// CurrentState returns the active state, or nil for an empty machine.
func (m *Machine) CurrentState() State {
	return m.states[m.current]
}

// State returns the state registered under id.
func (m *Machine) State(id StateID) (State, bool) {
	s, ok := m.states[id]
	return s, ok
}

// Has reports whether id is registered.
func (m *Machine) Has(id StateID) bool {
	_, ok := m.states[id]
	return ok
}

// IDs returns the registered ids in registration order.
func (m *Machine) IDs() []StateID {
	return append([]StateID(nil), m.ids...)
}

// TicksInState returns the number of Update calls the active state has
// received since it was entered.
func (m *Machine) TicksInState() uint32 {
	return m.ticksInState
}

// Start enters the active state, following any transitions its OnEnter
// requests.
func (m *Machine) Start() error {
	state, err := m.active()
	if err != nil {
		return err
	}

	observability.Emit(context.Background(), m.observer, EventStart, observability.LevelVerbose, m.name, map[string]any{
		"state": uint32(m.current),
	})

	m.ticksInState = 0
	return m.run(state.OnEnter())
}

// Reset exits the active state and makes the first registered state active
// again without entering it, leaving the machine as New and AddState built
// it. States that own a sub-machine reset it when they are left, because an
// inactive sub-machine is not persisted.
func (m *Machine) Reset() {
	if len(m.ids) == 0 {
		return
	}
	m.states[m.current].OnExit()
	m.current = m.ids[0]
	m.ticksInState = 0
	observability.Emit(context.Background(), m.observer, EventReset, observability.LevelVerbose, m.name, nil)
}

// Update runs one tick of the active state and applies the transition it
// returns, if any.
func (m *Machine) Update() error {
	state, err := m.active()
	if err != nil {
		return err
	}

	result := state.Update()
	m.ticksInState++
	return m.run(result)
}

// TransitionTo forces a transition to id using the same protocol as Update.
func (m *Machine) TransitionTo(id StateID) error {
	if _, err := m.active(); err != nil {
		return err
	}
	return m.run(TransitionTo(id))
}

func (m *Machine) active() (State, error) {
	state, exists := m.states[m.current]
	if !exists {
		return nil, &TopologyError{Machine: m.name, Op: "update", State: m.current, Err: ErrNoStates}
	}
	return state, nil
}

// run applies result and every transition chained from the OnEnter calls it
// triggers. The target is resolved before OnExit so a failed lookup leaves
// the machine untouched.
func (m *Machine) run(result Result) error {
	ctx := context.Background()
	path := []StateID{m.current}

	for transitions := 0; ; transitions++ {
		next, ok := result.Next()
		if !ok {
			return nil
		}

		target, exists := m.states[next]
		if !exists {
			observability.Emit(ctx, m.observer, EventUnknownState, observability.LevelError, m.name, map[string]any{
				"from": uint32(m.current),
				"to":   uint32(next),
			})
			return &TopologyError{Machine: m.name, Op: "transition", From: m.current, State: next, Err: ErrUnknownState}
		}

		if transitions >= m.maxTransitions {
			path = append(path, next)
			observability.Emit(ctx, m.observer, EventCycle, observability.LevelError, m.name, map[string]any{
				"path":  idsToUint32(path),
				"limit": m.maxTransitions,
			})
			return &CycleError{Machine: m.name, Path: path, Limit: m.maxTransitions}
		}

		from := m.current
		m.states[from].OnExit()
		m.current = next
		m.ticksInState = 0
		path = append(path, next)

		observability.Emit(ctx, m.observer, EventTransition, observability.LevelVerbose, m.name, map[string]any{
			"from": uint32(from),
			"to":   uint32(next),
		})

		result = target.OnEnter()
	}
}

// Persist writes or reads the machine and its active state. A read restores
// the active state without calling OnEnter.
func (m *Machine) Persist(p *persist.Persister) {
	version := p.PersistVersion(MachineVersion)

	if p.Writing() && len(m.ids) == 0 {
		p.Fail(&TopologyError{Machine: m.name, Op: "persist", State: m.current, Err: ErrNoStates})
		return
	}

	current := m.current
	PersistStateID(p, &current)
	if p.Err() != nil {
		return
	}
	if p.Reading() {
		if !m.Has(current) {
			p.Invalid("machine %s has no state %d", m.name, current)
			return
		}
		m.current = current
	}

	if version >= 2 {
		p.PersistUint32(&m.ticksInState)
	} else {
		m.ticksInState = 0
	}

	persist.PersistObject(p, m.states[m.current])
}

func idsToUint32(ids []StateID) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}
