package fsm

// DefaultMaxTransitionsPerTick bounds chained transitions within one tick.
const DefaultMaxTransitionsPerTick = 16

// Config defines machine construction settings. The observer is a registry
// name so the config can come from JSON.
//
// Example JSON:
//
//	{
//	  "observer": "slog",
//	  "max_transitions_per_tick": 32
//	}
type Config struct {
	// Observer names the observability registry entry ("noop", "slog", ...)
	Observer string `json:"observer" env:"OBSERVER"`

	// MaxTransitionsPerTick limits chained transitions within one Update
	MaxTransitionsPerTick int `json:"max_transitions_per_tick" env:"MAX_TRANSITIONS_PER_TICK"`
}

// DefaultConfig returns the defaults used by New.
func DefaultConfig() Config {
	return Config{
		Observer:              "noop",
		MaxTransitionsPerTick: DefaultMaxTransitionsPerTick,
	}
}

// Merge overlays the non-zero fields of source.
func (c *Config) Merge(source *Config) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.MaxTransitionsPerTick > 0 {
		c.MaxTransitionsPerTick = source.MaxTransitionsPerTick
	}
}
