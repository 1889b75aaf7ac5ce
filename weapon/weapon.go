// Package weapon drives a weapon through its firing cycle on an fsm.Machine.
//
// A weapon starts Inactive with a full clip. Given a target it waits out the
// pre-attack delay, fires, then either cools down between shots or reloads
// when the clip is empty. Firing is instantaneous: the Firing state fires one
// round in OnEnter and chains to the next state within the same tick. Losing
// the target returns the weapon to Inactive, except while reloading, which
// always completes.
package weapon

import (
	"context"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/observability"
	"github.com/tailored-agentic-units/simstate/persist"
)

const (
	StateInactive fsm.StateID = iota
	StatePreAttack
	StateFiring
	StateBetweenShots
	StateReloading
)

// EventFire is emitted for every round fired.
const EventFire observability.EventType = "weapon.fire"

// Template holds the static attributes of a weapon type.
type Template struct {
	Name string `json:"name" yaml:"name"`

	// ClipSize is the number of rounds per clip; zero means the weapon never
	// reloads.
	ClipSize uint32 `json:"clip_size" yaml:"clip_size"`

	Damage            int32           `json:"damage" yaml:"damage"`
	PreAttackDelay    logic.FrameSpan `json:"pre_attack_delay" yaml:"pre_attack_delay"`
	DelayBetweenShots logic.FrameSpan `json:"delay_between_shots" yaml:"delay_between_shots"`
	ClipReloadTime    logic.FrameSpan `json:"clip_reload_time" yaml:"clip_reload_time"`
}

// Validate checks the template for values the state machine cannot run with.
func (t Template) Validate() error {
	if t.Name == "" {
		return errors.New("weapon template name cannot be empty")
	}
	if t.Damage < 0 {
		return fmt.Errorf("weapon %s: negative damage %d", t.Name, t.Damage)
	}
	return nil
}

// FireFunc applies one round to target. The owner supplies it; the weapon
// never reaches into other entities itself.
type FireFunc func(target logic.ObjectID, damage int32)

// Weapon is one weapon instance owned by a single entity.
type Weapon struct {
	name       string
	template   Template
	machine    *fsm.Machine
	ammo       uint32
	target     logic.ObjectID
	shotsFired uint32
	fire       FireFunc
	observer   observability.Observer
}

// Option configures a Weapon.
type Option func(*Weapon)

// WithFireFunc sets the callback invoked for every round.
func WithFireFunc(fn FireFunc) Option {
	return func(w *Weapon) { w.fire = fn }
}

// WithObserver routes weapon and state machine events to obs.
func WithObserver(obs observability.Observer) Option {
	return func(w *Weapon) {
		if obs != nil {
			w.observer = obs
		}
	}
}

// New creates a weapon with a full clip in the Inactive state. Name
// identifies the weapon in events, e.g. "unit-7/rifle".
func New(name string, tmpl Template, opts ...Option) *Weapon {
	w := &Weapon{
		name:     name,
		template: tmpl,
		ammo:     tmpl.ClipSize,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(w)
	}

	w.machine = fsm.New(name, fsm.WithObserver(w.observer))
	w.machine.AddState(StateInactive, &inactiveState{weapon: w})
	w.machine.AddState(StatePreAttack, &preAttackState{weapon: w})
	w.machine.AddState(StateFiring, &firingState{weapon: w})
	w.machine.AddState(StateBetweenShots, &betweenShotsState{weapon: w})
	w.machine.AddState(StateReloading, &reloadingState{weapon: w})
	return w
}

func (w *Weapon) Template() Template { return w.template }

func (w *Weapon) Machine() *fsm.Machine { return w.machine }

// State returns the active weapon state.
func (w *Weapon) State() fsm.StateID { return w.machine.Current() }

func (w *Weapon) Ammo() uint32 { return w.ammo }

func (w *Weapon) ShotsFired() uint32 { return w.shotsFired }

func (w *Weapon) Target() logic.ObjectID { return w.target }

func (w *Weapon) HasTarget() bool { return w.target != 0 }

// SetTarget aims the weapon at id. The weapon leaves Inactive on its next
// Update.
func (w *Weapon) SetTarget(id logic.ObjectID) {
	w.target = id
}

// ClearTarget drops the target. Active states fall back to Inactive on their
// next Update.
func (w *Weapon) ClearTarget() {
	w.target = 0
}

// Update advances the weapon by one tick.
func (w *Weapon) Update() error {
	if err := w.machine.Update(); err != nil {
		return fmt.Errorf("weapon %s: %w", w.name, err)
	}
	return nil
}

// Persist writes or reads the weapon and its state machine.
func (w *Weapon) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistUint32(&w.ammo)
	p.PersistObjectID(&w.target)
	p.PersistUint32(&w.shotsFired)
	persist.PersistObject(p, w.machine)
	if p.Reading() && w.template.ClipSize > 0 {
		p.Check(w.ammo <= w.template.ClipSize, "weapon %s has %d rounds, clip holds %d", w.name, w.ammo, w.template.ClipSize)
	}
}

func (w *Weapon) discharge() {
	if w.fire != nil {
		w.fire(w.target, w.template.Damage)
	}
	if w.template.ClipSize > 0 {
		w.ammo--
	}
	w.shotsFired++

	observability.Emit(context.Background(), w.observer, EventFire, observability.LevelVerbose, w.name, map[string]any{
		"target": uint32(w.target),
		"damage": w.template.Damage,
		"ammo":   w.ammo,
	})
}
