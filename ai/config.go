package ai

import "github.com/tailored-agentic-units/simstate/logic"

// Config holds the tuning values shared by every unit's states.
type Config struct {
	// HackDuration is the time before a hack pays out.
	HackDuration logic.FrameSpan `json:"hack_duration" yaml:"hack_duration" env:"HACK_DURATION"`

	// HackVariation randomly lengthens or shortens each hack by up to this
	// many frames.
	HackVariation logic.FrameSpan `json:"hack_variation" yaml:"hack_variation" env:"HACK_VARIATION"`

	HackCash    int32           `json:"hack_cash" yaml:"hack_cash" env:"HACK_CASH"`
	AttackRange int32           `json:"attack_range" yaml:"attack_range" env:"ATTACK_RANGE"`
	AimTime     logic.FrameSpan `json:"aim_time" yaml:"aim_time" env:"AIM_TIME"`
}

// DefaultConfig returns the stock tuning values.
func DefaultConfig() Config {
	return Config{
		HackDuration: logic.OneSecond,
		HackCash:     5,
		AttackRange:  1,
		AimTime:      3,
	}
}

// Merge overlays the non-zero fields of source.
func (c *Config) Merge(source *Config) {
	if source.HackDuration > 0 {
		c.HackDuration = source.HackDuration
	}

	if source.HackVariation > 0 {
		c.HackVariation = source.HackVariation
	}

	if source.HackCash > 0 {
		c.HackCash = source.HackCash
	}

	if source.AttackRange > 0 {
		c.AttackRange = source.AttackRange
	}

	if source.AimTime > 0 {
		c.AimTime = source.AimTime
	}
}
