package observability

import (
	"context"
	"slices"
)

// MultiObserver delivers each event to every wrapped observer in the order
// they were given, e.g. slog output followed by the Prometheus counters.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver wraps observers, dropping nil entries.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	kept := slices.DeleteFunc(slices.Clone(observers), func(obs Observer) bool {
		return obs == nil
	})
	return &MultiObserver{observers: kept}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// Len returns the number of wrapped observers.
func (m *MultiObserver) Len() int { return len(m.observers) }
