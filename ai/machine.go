package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/observability"
	"github.com/tailored-agentic-units/simstate/persist"
)

// NoOverride is the persisted override id when no override state is active.
const NoOverride uint32 = 999999

const (
	EventOrder       observability.EventType = "ai.order"
	EventOverrideEnd observability.EventType = "ai.override_end"
)

var (
	// ErrDead is returned for orders issued to a dead unit.
	ErrDead = errors.New("unit is dead")

	// ErrNoWeapon is returned when an unarmed unit is ordered to attack.
	ErrNoWeapon = errors.New("unit has no weapon")

	// ErrInvalidTarget is returned for attack orders on missing, dead or own
	// targets.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrNoPath is returned by a move order without positions.
	ErrNoPath = errors.New("no target positions")
)

// Option configures a Machine.
type Option func(*options)

type options struct {
	observer       observability.Observer
	maxTransitions int
}

// WithObserver routes machine events, including nested machines, to obs.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithMaxTransitions sets the chained transition bound of every machine the
// unit owns.
func WithMaxTransitions(n int) Option {
	return func(o *options) { o.maxTransitions = n }
}

// Machine is the top-level behaviour machine of one unit. Besides the active
// state it tracks the unit's orders: queued target positions, an optional
// waypoint name and target team, and an override state that temporarily
// replaces the active state until a given frame.
type Machine struct {
	*fsm.Machine

	entity Entity
	ctx    Context
	cfg    Config
	opts   options

	attack *attackState

	targetPositions []Point
	targetWaypoint  string
	targetTeam      *TargetTeam

	override      fsm.StateID
	hasOverride   bool
	overrideUntil logic.Frame

	fault error
}

// New creates the machine for entity with all unit states registered. The
// machine starts in Idle.
func New(entity Entity, ctx Context, cfg Config, opts ...Option) *Machine {
	m := &Machine{
		entity: entity,
		ctx:    ctx,
		cfg:    cfg,
		opts:   options{observer: observability.NoOpObserver{}},
	}
	for _, opt := range opts {
		opt(&m.opts)
	}

	m.Machine = fsm.New(fmt.Sprintf("unit-%d", entity.ID()), m.fsmOptions()...)
	m.attack = newAttackState(m)

	m.AddState(StateIdle, idleState{})
	m.AddState(StateMoveTowards, &moveTowardsState{m: m})
	m.AddState(StateReserved6, &reserved6State{moveTowardsState: moveTowardsState{m: m}})
	m.AddState(StateAttack, m.attack)
	m.AddState(StateDead, &deadState{m: m})
	m.AddState(StateHackInternet, &hackInternetState{m: m})
	m.Attach(StateAttack, m.attack.inner)
	return m
}

func (m *Machine) fsmOptions() []fsm.Option {
	return []fsm.Option{
		fsm.WithObserver(m.opts.observer),
		fsm.WithMaxTransitions(m.opts.maxTransitions),
	}
}

// Entity returns the owning unit.
func (m *Machine) Entity() Entity { return m.entity }

// TargetPositions returns the remaining queued positions.
func (m *Machine) TargetPositions() []Point {
	return append([]Point(nil), m.targetPositions...)
}

func (m *Machine) TargetWaypoint() string { return m.targetWaypoint }

// AttackTarget returns the current attack target, or zero.
func (m *Machine) AttackTarget() logic.ObjectID {
	if m.Current() != StateAttack {
		return 0
	}
	return m.attack.target
}

// Override returns the active override state.
func (m *Machine) Override() (fsm.StateID, logic.Frame, bool) {
	return m.override, m.overrideUntil, m.hasOverride
}

// Dead reports whether the unit has entered the terminal Dead state.
func (m *Machine) Dead() bool {
	return m.Current() == StateDead
}

// Update runs one tick. An active override state runs instead of the current
// state until it requests a transition or its until frame has passed; the
// current state then resumes in the same tick.
func (m *Machine) Update() error {
	if m.hasOverride {
		state, _ := m.State(m.override)
		result := state.Update()
		if result.IsContinue() && !m.overrideUntil.Before(m.ctx.CurrentFrame()) {
			return m.takeFault()
		}

		m.endOverride("expired")
	}

	if err := m.Machine.Update(); err != nil {
		return errors.Join(err, m.takeFault())
	}
	return m.takeFault()
}

// endOverride exits the active override state, if any. The current state
// is untouched.
func (m *Machine) endOverride(reason string) {
	if !m.hasOverride {
		return
	}
	state, _ := m.State(m.override)
	state.OnExit()
	m.hasOverride = false
	observability.Emit(context.Background(), m.opts.observer, EventOverrideEnd, observability.LevelVerbose, m.Name(), map[string]any{
		"state":  uint32(m.override),
		"frame":  uint32(m.ctx.CurrentFrame()),
		"reason": reason,
	})
}

func (m *Machine) recordFault(err error) {
	if m.fault == nil {
		m.fault = err
	}
}

func (m *Machine) takeFault() error {
	err := m.fault
	m.fault = nil
	return err
}

func (m *Machine) order(name string, data map[string]any) error {
	if m.Dead() {
		return fmt.Errorf("%s %s: %w", m.Name(), name, ErrDead)
	}
	if data == nil {
		data = map[string]any{}
	}
	data["order"] = name
	observability.Emit(context.Background(), m.opts.observer, EventOrder, observability.LevelVerbose, m.Name(), data)
	return nil
}

// MoveTo walks the unit through points in order.
func (m *Machine) MoveTo(points ...Point) error {
	return m.MoveAlong("", points)
}

// MoveAlong walks the unit through points, recording the waypoint path name
// they came from.
func (m *Machine) MoveAlong(waypoint string, points []Point) error {
	if err := m.order("move", map[string]any{"points": len(points), "waypoint": waypoint}); err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("%s move: %w", m.Name(), ErrNoPath)
	}

	m.endOverride("order")
	m.targetPositions = append([]Point(nil), points...)
	m.targetWaypoint = waypoint
	m.targetTeam = nil
	return m.TransitionTo(StateMoveTowards)
}

// Attack engages a single target.
func (m *Machine) Attack(target logic.ObjectID) error {
	if err := m.order("attack", map[string]any{"target": uint32(target)}); err != nil {
		return err
	}
	if err := m.checkTarget(target); err != nil {
		return err
	}

	m.targetTeam = nil
	return m.engage(target)
}

// AttackTeam engages the members of a team in order, moving on as each one
// dies.
func (m *Machine) AttackTeam(members []logic.ObjectID) error {
	if err := m.order("attack_team", map[string]any{"members": len(members)}); err != nil {
		return err
	}
	if m.entity.Weapon() == nil {
		return fmt.Errorf("%s attack: %w", m.Name(), ErrNoWeapon)
	}

	m.targetTeam = &TargetTeam{ObjectIDs: append([]logic.ObjectID(nil), members...)}
	first, ok := m.nextTeamTarget()
	if !ok {
		m.targetTeam = nil
		return fmt.Errorf("%s attack: no living team member: %w", m.Name(), ErrInvalidTarget)
	}
	return m.engage(first)
}

func (m *Machine) checkTarget(target logic.ObjectID) error {
	if m.entity.Weapon() == nil {
		return fmt.Errorf("%s attack: %w", m.Name(), ErrNoWeapon)
	}
	if target == 0 || target == m.entity.ID() || !m.ctx.IsAlive(target) {
		return fmt.Errorf("%s attack %d: %w", m.Name(), target, ErrInvalidTarget)
	}
	return nil
}

func (m *Machine) engage(target logic.ObjectID) error {
	m.endOverride("order")
	m.targetPositions = nil
	m.targetWaypoint = ""
	m.attack.target = target
	return m.TransitionTo(StateAttack)
}

// nextTeamTarget returns the first living team member other than the unit
// itself.
func (m *Machine) nextTeamTarget() (logic.ObjectID, bool) {
	if m.targetTeam == nil {
		return 0, false
	}
	for _, id := range m.targetTeam.ObjectIDs {
		if id != m.entity.ID() && m.ctx.IsAlive(id) {
			return id, true
		}
	}
	return 0, false
}

// HackInternet starts hacking for cash.
func (m *Machine) HackInternet() error {
	if err := m.order("hack_internet", nil); err != nil {
		return err
	}
	m.endOverride("order")
	m.targetPositions = nil
	m.targetTeam = nil
	return m.TransitionTo(StateHackInternet)
}

// Stop drops all orders and returns to Idle. Like every order it ends an
// active override first.
func (m *Machine) Stop() error {
	if err := m.order("stop", nil); err != nil {
		return err
	}
	m.endOverride("order")
	m.targetPositions = nil
	m.targetWaypoint = ""
	m.targetTeam = nil
	return m.TransitionTo(StateIdle)
}

// Die moves the unit to the terminal Dead state, ending any override.
// Killing a dead unit is a no-op.
func (m *Machine) Die() error {
	if m.Dead() {
		return nil
	}
	m.endOverride("dead")
	m.targetPositions = nil
	m.targetTeam = nil
	return m.TransitionTo(StateDead)
}

// SetOverride runs the registered state id in place of the current state
// until frame until has passed or the state asks to leave. The current state
// is neither exited nor updated meanwhile.
func (m *Machine) SetOverride(id fsm.StateID, until logic.Frame) error {
	if err := m.order("override", map[string]any{"state": uint32(id), "until": uint32(until)}); err != nil {
		return err
	}
	state, ok := m.State(id)
	if !ok {
		return &fsm.TopologyError{Machine: m.Name(), Op: "override", State: id, Err: fsm.ErrUnknownState}
	}
	if id == m.Current() || (m.hasOverride && id == m.override) {
		return fmt.Errorf("%s override: state %d is already active", m.Name(), id)
	}

	m.endOverride("replaced")
	m.override = id
	m.hasOverride = true
	m.overrideUntil = until
	if result := state.OnEnter(); !result.IsContinue() {
		state.OnExit()
		m.hasOverride = false
	}
	return nil
}

// TargetTeam is the set of units an attack order works through.
type TargetTeam struct {
	ObjectIDs []logic.ObjectID
}

func (t *TargetTeam) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	persist.PersistList(p, &t.ObjectIDs, func(p *persist.Persister, id *logic.ObjectID) {
		p.PersistObjectID(id)
	})
}

// Persist writes or reads the unit's machine, its orders and any override.
func (m *Machine) Persist(p *persist.Persister) {
	p.PersistVersion(1)

	persist.PersistObject(p, m.Machine)

	persist.PersistListUint32(p, &m.targetPositions, PersistPoint)
	p.PersistASCIIString(&m.targetWaypoint)

	hasTeam := m.targetTeam != nil
	p.PersistBool(&hasTeam)
	if hasTeam {
		if p.Reading() && m.targetTeam == nil {
			m.targetTeam = &TargetTeam{}
		}
		persist.PersistObject(p, m.targetTeam)
	} else if p.Reading() {
		m.targetTeam = nil
	}

	overrideID := NoOverride
	if m.hasOverride {
		overrideID = uint32(m.override)
	}
	p.PersistUint32(&overrideID)
	if p.Err() != nil {
		return
	}
	if p.Reading() {
		m.hasOverride = overrideID != NoOverride
		if m.hasOverride {
			m.override = fsm.StateID(overrideID)
			if !m.Has(m.override) {
				p.Invalid("%s: override state %d is not registered", m.Name(), overrideID)
				return
			}
		}
	}
	if m.hasOverride {
		state, _ := m.State(m.override)
		persist.PersistObject(p, state)
	}

	p.PersistFrame(&m.overrideUntil)
}
