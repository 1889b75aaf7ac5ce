package sim

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/simstate/ai"
	"github.com/tailored-agentic-units/simstate/logic"
)

// Scenario is a scripted match: the units present at frame 0 and the
// commands issued to them over time.
//
// Example YAML:
//
//	name: ambush
//	seed: 7
//	frames: 120
//	units:
//	  - {kind: infantry, team: 0, position: {x: 0, y: 0}}
//	  - {kind: hacker, team: 1, position: {x: 4, y: 0}}
//	commands:
//	  - {frame: 0, unit: 2, order: hack}
//	  - {frame: 10, unit: 1, order: attack, target: 2}
type Scenario struct {
	Name     string     `yaml:"name"`
	Seed     uint64     `yaml:"seed,omitempty"`
	Frames   int        `yaml:"frames,omitempty"`
	AI       *ai.Config `yaml:"ai,omitempty"`
	Units    []UnitSpec `yaml:"units"`
	Commands []Command  `yaml:"commands,omitempty"`
}

// UnitSpec places one unit. Units receive ids 1, 2, ... in listed order.
type UnitSpec struct {
	Kind     Kind     `yaml:"kind"`
	Team     uint8    `yaml:"team"`
	Position ai.Point `yaml:"position"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("scenario: load %s: %w", filename, err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario: %s: %w", filename, err)
	}
	return sc, nil
}

// ParseScenario decodes and validates YAML scenario data. Commands are
// ordered by frame, keeping file order within a frame.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(sc.Commands, func(a, b Command) int {
		return int(a.Frame) - int(b.Frame)
	})
	return &sc, nil
}

// Validate checks unit kinds and teams and that every command names a
// listed unit and a known order.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	for i, u := range sc.Units {
		if _, ok := u.Kind.Archetype(); !ok {
			return fmt.Errorf("unit %d: %w", i+1, ErrUnknownKind)
		}
		if int(u.Team) >= MaxTeams {
			return fmt.Errorf("unit %d: %w: %d", i+1, ErrInvalidTeam, u.Team)
		}
	}
	for i, c := range sc.Commands {
		if c.Unit == 0 || int(c.Unit) > len(sc.Units) {
			return fmt.Errorf("command %d: %w: %d", i, ErrUnknownObject, c.Unit)
		}
		if !knownOrder(c.Order) {
			return fmt.Errorf("command %d: %w: %q", i, ErrUnknownOrder, c.Order)
		}
	}
	return nil
}

// Config returns cfg with the scenario's seed and tuning overlaid. Loading a
// save of this scenario needs the same config the scenario was built with.
func (sc *Scenario) Config(cfg *Config) Config {
	merged := *cfg
	if sc.Seed != 0 {
		merged.Seed = sc.Seed
	}
	if sc.AI != nil {
		merged.AI.Merge(sc.AI)
	}
	return merged
}

// Build creates a world from the scenario's config and spawns its units.
func (sc *Scenario) Build(cfg *Config, opts ...Option) (*World, error) {
	merged := sc.Config(cfg)

	w, err := New(&merged, opts...)
	if err != nil {
		return nil, err
	}
	w.scenario = sc.Name

	for _, spec := range sc.Units {
		if _, err := w.Spawn(spec.Kind, spec.Team, spec.Position); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// CommandsAt returns the commands scheduled for frame.
func (sc *Scenario) CommandsAt(frame logic.Frame) []Command {
	var due []Command
	for _, c := range sc.Commands {
		if c.Frame == frame {
			due = append(due, c)
		}
	}
	return due
}
