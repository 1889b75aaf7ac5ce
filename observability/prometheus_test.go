package observability_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tailored-agentic-units/simstate/observability"
)

func TestPrometheusObserver_CountsByTypeAndLevel(t *testing.T) {
	obs, err := observability.NewPrometheusObserver(nil)
	if err != nil {
		t.Fatalf("NewPrometheusObserver() error = %v", err)
	}

	ctx := context.Background()
	for range 3 {
		observability.Emit(ctx, obs, "fsm.transition", observability.LevelVerbose, "unit", nil)
	}
	observability.Emit(ctx, obs, "fsm.cycle", observability.LevelError, "unit", nil)

	if got := testutil.ToFloat64(obs.Counter("fsm.transition", observability.LevelVerbose)); got != 3 {
		t.Errorf("transition count = %v, want 3", got)
	}
	if got := testutil.ToFloat64(obs.Counter("fsm.cycle", observability.LevelError)); got != 1 {
		t.Errorf("cycle count = %v, want 1", got)
	}
}

func TestPrometheusObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	if _, err := observability.NewPrometheusObserver(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := observability.NewPrometheusObserver(reg); err == nil {
		t.Error("expected error registering the counter twice")
	}
}
