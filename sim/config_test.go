package sim_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/simstate/savegame"
	"github.com/tailored-agentic-units/simstate/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := sim.DefaultConfig()

	if cfg.Seed != 1 || cfg.Frames != 300 {
		t.Errorf("unexpected defaults seed %d frames %d", cfg.Seed, cfg.Frames)
	}
	if cfg.Machine.Observer != "noop" || cfg.Machine.MaxTransitionsPerTick != 16 {
		t.Errorf("unexpected machine defaults %+v", cfg.Machine)
	}
	if cfg.Save.Driver != savegame.DriverMemory {
		t.Errorf("expected memory save driver, got %q", cfg.Save.Driver)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"seed": 11,
		"machine": {"observer": "slog"},
		"ai": {"hack_cash": 8},
		"save": {"driver": "file", "path": "/var/saves"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SIMSTATE_FRAMES", "90")
	t.Setenv("SIMSTATE_SAVE_DRIVER", "sqlite")
	t.Setenv("SIMSTATE_MACHINE_MAX_TRANSITIONS_PER_TICK", "8")
	t.Setenv("SIMSTATE_AI_AIM_TIME", "5")

	cfg, err := sim.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Seed != 11 {
		t.Errorf("expected seed from file, got %d", cfg.Seed)
	}
	if cfg.Frames != 90 {
		t.Errorf("expected frames from env, got %d", cfg.Frames)
	}
	if cfg.Machine.Observer != "slog" || cfg.Machine.MaxTransitionsPerTick != 8 {
		t.Errorf("unexpected machine config %+v", cfg.Machine)
	}
	if cfg.AI.HackCash != 8 || cfg.AI.AimTime != 5 || cfg.AI.HackDuration != 30 {
		t.Errorf("unexpected ai config %+v", cfg.AI)
	}
	if cfg.Save.Driver != savegame.DriverSQLite || cfg.Save.Path != "/var/saves" {
		t.Errorf("unexpected save config %+v", cfg.Save)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "missing file", file: filepath.Join(t.TempDir(), "missing.json")},
		{name: "malformed json", file: writeFile(t, "{")},
		{name: "malformed env", env: map[string]string{"SIMSTATE_SEED": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := sim.LoadConfig(tt.file); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	cfg, err := sim.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Seed != 1 {
		t.Errorf("expected default seed, got %d", cfg.Seed)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
