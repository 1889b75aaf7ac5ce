package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver counts events by type and severity. It never touches the
// simulation state, so attaching it leaves runs bit-identical.
type PrometheusObserver struct {
	events *prometheus.CounterVec
}

// NewPrometheusObserver creates the event counter and registers it with reg.
// A nil reg skips registration, which is convenient in tests.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simstate",
		Name:      "events_total",
		Help:      "Observability events emitted by the simulation core.",
	}, []string{"type", "level"})

	if reg != nil {
		if err := reg.Register(events); err != nil {
			return nil, fmt.Errorf("register event counter: %w", err)
		}
	}

	return &PrometheusObserver{events: events}, nil
}

func (o *PrometheusObserver) OnEvent(ctx context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()
}

// Counter returns the counter for one type/level pair.
func (o *PrometheusObserver) Counter(typ EventType, level Level) prometheus.Counter {
	return o.events.WithLabelValues(string(typ), level.String())
}
