package fsm

import "github.com/tailored-agentic-units/simstate/observability"

const (
	EventStart        observability.EventType = "fsm.start"
	EventTransition   observability.EventType = "fsm.transition"
	EventCycle        observability.EventType = "fsm.cycle"
	EventUnknownState observability.EventType = "fsm.unknown_state"
	EventReset        observability.EventType = "fsm.reset"
)
