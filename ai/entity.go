// Package ai implements the unit behaviour states and the machine that owns
// them.
//
// States reach the world only through the Entity and Context interfaces. An
// Entity is the unit that owns the machine; a Context provides the read-only
// services and the few mutation points (cash, random draws) that states need.
// Both must be deterministic for a given frame.
package ai

import (
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
	"github.com/tailored-agentic-units/simstate/weapon"
)

// Flag is an externally visible unit condition set by states.
type Flag uint8

const (
	FlagMoving Flag = 1 << iota
	FlagAttacking
	FlagHacking
	FlagDead
)

func (f Flag) String() string {
	switch f {
	case FlagMoving:
		return "moving"
	case FlagAttacking:
		return "attacking"
	case FlagHacking:
		return "hacking"
	case FlagDead:
		return "dead"
	default:
		return "flags"
	}
}

// Point is a position on the simulation grid.
type Point struct {
	X int32 `json:"x" yaml:"x"`
	Y int32 `json:"y" yaml:"y"`
}

// Distance returns the number of grid steps between p and q when diagonal
// steps are allowed.
func (p Point) Distance(q Point) int32 {
	return max(abs(p.X-q.X), abs(p.Y-q.Y))
}

// StepToward moves p up to speed steps on each axis toward q without
// overshooting.
func (p Point) StepToward(q Point, speed int32) Point {
	return Point{X: approach(p.X, q.X, speed), Y: approach(p.Y, q.Y, speed)}
}

func approach(from, to, speed int32) int32 {
	switch {
	case to > from:
		return from + min(speed, to-from)
	case to < from:
		return from - min(speed, from-to)
	default:
		return from
	}
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// PersistPoint persists a grid position.
func PersistPoint(p *persist.Persister, v *Point) {
	p.PersistInt32(&v.X)
	p.PersistInt32(&v.Y)
}

// Entity is the unit that owns an AI machine.
type Entity interface {
	ID() logic.ObjectID
	Position() Point
	SetPosition(Point)
	Speed() int32
	SetFlag(f Flag, on bool)
	Flag(f Flag) bool

	// Weapon returns the unit's weapon, or nil for unarmed units.
	Weapon() *weapon.Weapon
}

// Context provides simulation services to states.
type Context interface {
	CurrentFrame() logic.Frame
	Object(id logic.ObjectID) (Entity, bool)
	IsAlive(id logic.ObjectID) bool
	GrantCash(owner logic.ObjectID, amount int32)

	// RandomIntn returns a deterministic draw in [0, n).
	RandomIntn(n int) int
}
