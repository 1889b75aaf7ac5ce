package persist

import "github.com/tailored-agentic-units/simstate/observability"

const (
	EventSegment observability.EventType = "persist.segment"
	EventInvalid observability.EventType = "persist.invalid"
)
