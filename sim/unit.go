package sim

import (
	"fmt"

	"github.com/tailored-agentic-units/simstate/ai"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
	"github.com/tailored-agentic-units/simstate/weapon"
)

// Unit is a simulated object: a position, health, an optional weapon and the
// AI machine that drives them.
type Unit struct {
	id     logic.ObjectID
	kind   Kind
	team   uint8
	speed  int32
	pos    ai.Point
	health int32
	flags  ai.Flag

	weapon  *weapon.Weapon
	machine *ai.Machine
}

func (u *Unit) ID() logic.ObjectID { return u.id }
func (u *Unit) Kind() Kind { return u.kind }
func (u *Unit) Team() uint8 { return u.team }
func (u *Unit) Position() ai.Point { return u.pos }
func (u *Unit) SetPosition(p ai.Point) { u.pos = p }
func (u *Unit) Speed() int32 { return u.speed }
func (u *Unit) Health() int32 { return u.health }
func (u *Unit) Weapon() *weapon.Weapon { return u.weapon }

// Machine returns the unit's AI machine.
func (u *Unit) Machine() *ai.Machine { return u.machine }

func (u *Unit) SetFlag(f ai.Flag, on bool) {
	if on {
		u.flags |= f
	} else {
		u.flags &^= f
	}
}

func (u *Unit) Flag(f ai.Flag) bool { return u.flags&f != 0 }

// Alive reports whether the unit has not entered the Dead state.
func (u *Unit) Alive() bool { return !u.machine.Dead() }

func (u *Unit) String() string {
	return fmt.Sprintf("%s-%d", u.kind, u.id)
}

// Persist covers the unit body. Identity (kind, id, team) is written by the
// world ahead of it so a reader can construct the unit first.
func (u *Unit) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	ai.PersistPoint(p, &u.pos)
	p.PersistInt32(&u.health)
	p.Check(u.health >= 0, "unit %d has negative health %d", u.id, u.health)
	persist.PersistEnumByte(p, &u.flags)
	if u.weapon != nil {
		persist.PersistObject(p, u.weapon)
	}
	persist.PersistObject(p, u.machine)
}
