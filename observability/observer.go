// Package observability provides event-based diagnostics for the simulation
// core. Subsystems never log through a process-wide logger; they receive an
// Observer explicitly and emit typed events into it. Level values align with
// OpenTelemetry SeverityNumbers so events translate to log records as-is.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8), maps to slog.LevelDebug
	LevelInfo    Level = 9  // OTel INFO (9-12), maps to slog.LevelInfo
	LevelWarning Level = 13 // OTel WARN (13-16), maps to slog.LevelWarn
	LevelError   Level = 17 // OTel ERROR (17-20), maps to slog.LevelError
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps this level to the corresponding slog.Level for log emission.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType identifies the kind of event. Each subsystem defines its own
// constants using this type (e.g. "fsm.transition", "persist.invalid").
type EventType string

// Event is a diagnostic record emitted by a subsystem. Timestamp is wall-clock
// time and is never fed back into the simulation.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events for logging, tracing, or metrics.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// NoOpObserver is the observer of machines, weapons and persisters built
// without one. Emit recognizes it and returns before reading the clock.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

// Emit stamps and delivers an event. A nil observer or a NoOpObserver drops
// the event unstamped.
func Emit(ctx context.Context, obs Observer, typ EventType, level Level, source string, data map[string]any) {
	switch obs.(type) {
	case nil, NoOpObserver:
		return
	}
	obs.OnEvent(ctx, Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}
