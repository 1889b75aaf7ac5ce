package sim

import "github.com/tailored-agentic-units/simstate/observability"

// World event types.
const (
	EventSpawn           observability.EventType = "sim.spawn"
	EventStep            observability.EventType = "sim.step"
	EventCommand         observability.EventType = "sim.command"
	EventCommandRejected observability.EventType = "sim.command_rejected"
	EventDamage          observability.EventType = "sim.damage"
	EventKill            observability.EventType = "sim.kill"
	EventCash            observability.EventType = "sim.cash"
	EventSave            observability.EventType = "sim.save"
	EventLoad            observability.EventType = "sim.load"
)
