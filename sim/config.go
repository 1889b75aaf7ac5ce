package sim

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/tailored-agentic-units/simstate/ai"
	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/savegame"
)

// EnvPrefix prefixes every environment override, e.g. SIMSTATE_SEED or
// SIMSTATE_SAVE_DRIVER.
const EnvPrefix = "SIMSTATE_"

const defaultFrames = 300

// Config holds initialization parameters for the world and its subsystems.
type Config struct {
	Seed   uint64 `json:"seed,omitempty" env:"SEED"`
	Frames int    `json:"frames,omitempty" env:"FRAMES"`

	Machine fsm.Config      `json:"machine" envPrefix:"MACHINE_"`
	AI      ai.Config       `json:"ai" envPrefix:"AI_"`
	Save    savegame.Config `json:"save" envPrefix:"SAVE_"`

	// MetricsFile receives Prometheus text exposition after a run; empty
	// disables it.
	MetricsFile string `json:"metrics_file,omitempty" env:"METRICS_FILE"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Seed:    1,
		Frames:  defaultFrames,
		Machine: fsm.DefaultConfig(),
		AI:      ai.DefaultConfig(),
		Save:    savegame.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Machine.Merge(&source.Machine)
	c.AI.Merge(&source.AI)
	c.Save.Merge(&source.Save)

	if source.Seed != 0 {
		c.Seed = source.Seed
	}
	if source.Frames > 0 {
		c.Frames = source.Frames
	}
	if source.MetricsFile != "" {
		c.MetricsFile = source.MetricsFile
	}
}

// ApplyEnv overlays SIMSTATE_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadConfig merges the JSON file at filename over the defaults, then applies
// environment overrides. An empty filename skips the file.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var loaded Config
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.Merge(&loaded)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
