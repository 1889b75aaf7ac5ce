package sim

import (
	"github.com/tailored-agentic-units/simstate/ai"
	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
)

// Order names the instruction a command carries.
type Order string

const (
	OrderMove       Order = "move"
	OrderAttack     Order = "attack"
	OrderAttackTeam Order = "attack_team"
	OrderHack       Order = "hack"
	OrderStop       Order = "stop"
	OrderKill       Order = "kill"
	OrderOverride   Order = "override"
)

// Command is a player or script instruction for one unit. It takes effect at
// the start of the step that runs frame Frame, or the next step if that frame
// has passed.
type Command struct {
	Frame logic.Frame    `yaml:"frame" json:"frame"`
	Unit  logic.ObjectID `yaml:"unit" json:"unit"`
	Order Order          `yaml:"order" json:"order"`

	Target   logic.ObjectID `yaml:"target,omitempty" json:"target,omitempty"`
	Team     uint8          `yaml:"team,omitempty" json:"team,omitempty"`
	Points   []ai.Point     `yaml:"points,omitempty" json:"points,omitempty"`
	Waypoint string         `yaml:"waypoint,omitempty" json:"waypoint,omitempty"`

	// State and Until parameterize an override order.
	State fsm.StateID `yaml:"state,omitempty" json:"state,omitempty"`
	Until logic.Frame `yaml:"until,omitempty" json:"until,omitempty"`
}

func (c *Command) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistFrame(&c.Frame)
	p.PersistObjectID(&c.Unit)

	order := string(c.Order)
	p.PersistASCIIString(&order)
	c.Order = Order(order)

	p.PersistObjectID(&c.Target)
	p.PersistUint8(&c.Team)
	persist.PersistList(p, &c.Points, ai.PersistPoint)
	p.PersistASCIIString(&c.Waypoint)
	fsm.PersistStateID(p, &c.State)
	p.PersistFrame(&c.Until)
}
