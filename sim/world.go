// Package sim runs the deterministic world loop that owns every unit and the
// machines that drive it.
//
// A World advances in fixed steps. Each step applies the commands due at the
// current frame, then updates every unit in ascending id order (its AI
// machine first, then its weapon), then advances the frame. Given the same
// starting save and the same commands, two worlds produce identical
// transitions and identical save bytes.
//
//	w, err := sim.New(&cfg)
//	hacker, err := w.Spawn(sim.KindHacker, 0, ai.Point{})
//	err = w.Issue(sim.Command{Unit: hacker.ID(), Order: sim.OrderHack})
//	err = w.Step()
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/tailored-agentic-units/simstate/ai"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/observability"
	"github.com/tailored-agentic-units/simstate/weapon"
)

// MaxTeams bounds team indices.
const MaxTeams = 4

// pcgStream is the fixed second PCG word; the configured seed is the first.
const pcgStream = 0x5851f42d4c957f2d

// Option configures a World after config-driven initialization.
type Option func(*World)

// WithObserver overrides the observer named in the config.
func WithObserver(obs observability.Observer) Option {
	return func(w *World) {
		if obs != nil {
			w.observer = obs
		}
	}
}

// World owns the units, the frame counter, team cash and the random source.
type World struct {
	cfg      Config
	observer observability.Observer
	trace    *Trace

	frame    logic.Frame
	nextID   logic.ObjectID
	pcg      *rand.PCG
	rng      *rand.Rand
	cash     [MaxTeams]int32
	units    []*Unit
	byID     map[logic.ObjectID]*Unit
	pending  []Command
	scenario string

	fault error
}

// New creates an empty world from configuration.
func New(cfg *Config, opts ...Option) (*World, error) {
	obs, err := observability.GetObserver(cfg.Machine.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to create observer: %w", err)
	}

	w := &World{
		cfg:      *cfg,
		observer: obs,
		nextID:   1,
		byID:     make(map[logic.ObjectID]*Unit),
	}
	w.pcg = rand.NewPCG(cfg.Seed, pcgStream)
	w.rng = rand.New(w.pcg)

	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// dispatch forwards every event of the world and its machines to the
// configured observer and, while Run records, to the trace.
type dispatch struct {
	w *World
}

func (d dispatch) OnEvent(ctx context.Context, event observability.Event) {
	d.w.observer.OnEvent(ctx, event)
	if d.w.trace != nil {
		d.w.trace.record(d.w.frame, event)
	}
}

func (w *World) emit(typ observability.EventType, level observability.Level, data map[string]any) {
	observability.Emit(context.Background(), dispatch{w}, typ, level, "world", data)
}

// Frame returns the frame the next Step runs.
func (w *World) Frame() logic.Frame { return w.frame }

// Scenario returns the name of the scenario the world was built from.
func (w *World) Scenario() string { return w.scenario }

// Cash returns the cash collected by team.
func (w *World) Cash(team uint8) int32 {
	if int(team) >= MaxTeams {
		return 0
	}
	return w.cash[team]
}

// Units returns the units in ascending id order.
func (w *World) Units() []*Unit {
	return append([]*Unit(nil), w.units...)
}

// Unit returns the unit with id.
func (w *World) Unit(id logic.ObjectID) (*Unit, bool) {
	u, ok := w.byID[id]
	return u, ok
}

// TeamMembers returns the living units of team in ascending id order.
func (w *World) TeamMembers(team uint8) []logic.ObjectID {
	var ids []logic.ObjectID
	for _, u := range w.units {
		if u.team == team && u.Alive() {
			ids = append(ids, u.id)
		}
	}
	return ids
}

// Spawn creates a unit of kind for team at pos and enters its initial state.
func (w *World) Spawn(kind Kind, team uint8, pos ai.Point) (*Unit, error) {
	u, err := w.build(kind, w.nextID, team)
	if err != nil {
		return nil, err
	}
	arch, _ := kind.Archetype()
	u.pos = pos
	u.health = arch.Health

	w.nextID++
	w.units = append(w.units, u)
	w.byID[u.id] = u

	if err := u.machine.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", u, err)
	}

	w.emit(EventSpawn, observability.LevelInfo, map[string]any{
		"unit": uint32(u.id),
		"kind": kind.String(),
		"team": team,
		"x":    pos.X,
		"y":    pos.Y,
	})
	return u, nil
}

// build constructs a unit and its machines without placing it in the world.
func (w *World) build(kind Kind, id logic.ObjectID, team uint8) (*Unit, error) {
	arch, ok := kind.Archetype()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	if int(team) >= MaxTeams {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTeam, team)
	}

	u := &Unit{id: id, kind: kind, team: team, speed: arch.Speed}
	obs := dispatch{w}

	if arch.Weapon != nil {
		u.weapon = weapon.New(
			fmt.Sprintf("unit-%d/%s", id, arch.Weapon.Name),
			*arch.Weapon,
			weapon.WithFireFunc(func(target logic.ObjectID, damage int32) {
				w.damage(u, target, damage)
			}),
			weapon.WithObserver(obs),
		)
	}

	u.machine = ai.New(u, w, w.cfg.AI,
		ai.WithObserver(obs),
		ai.WithMaxTransitions(w.cfg.Machine.MaxTransitionsPerTick),
	)
	return u, nil
}

func (w *World) damage(attacker *Unit, target logic.ObjectID, amount int32) {
	t, ok := w.byID[target]
	if !ok || !t.Alive() {
		return
	}

	t.health = max(t.health-amount, 0)
	w.emit(EventDamage, observability.LevelVerbose, map[string]any{
		"attacker": uint32(attacker.id),
		"target":   uint32(target),
		"amount":   amount,
		"health":   t.health,
	})
	if t.health > 0 {
		return
	}

	if err := t.machine.Die(); err != nil {
		w.fault = errors.Join(w.fault, fmt.Errorf("kill %s: %w", t, err))
		return
	}
	w.emit(EventKill, observability.LevelInfo, map[string]any{
		"attacker": uint32(attacker.id),
		"target":   uint32(target),
	})
}

// Issue queues cmd for the step that runs cmd.Frame. Commands for unknown
// units or with unknown orders are rejected at once; order-level failures
// (a dead target, say) surface as sim.command_rejected events when applied.
func (w *World) Issue(cmd Command) error {
	if _, ok := w.byID[cmd.Unit]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, cmd.Unit)
	}
	if !knownOrder(cmd.Order) {
		return fmt.Errorf("%w: %q", ErrUnknownOrder, cmd.Order)
	}
	w.pending = append(w.pending, cmd)
	return nil
}

func knownOrder(o Order) bool {
	switch o {
	case OrderMove, OrderAttack, OrderAttackTeam, OrderHack, OrderStop, OrderKill, OrderOverride:
		return true
	}
	return false
}

// Step runs one frame.
func (w *World) Step() error {
	w.applyPending()

	for _, u := range w.units {
		if err := u.machine.Update(); err != nil {
			return fmt.Errorf("frame %d: %s: %w", w.frame, u, err)
		}
		if u.weapon != nil {
			if err := u.weapon.Update(); err != nil {
				return fmt.Errorf("frame %d: %s: %w", w.frame, u, err)
			}
		}
	}
	if err := w.fault; err != nil {
		w.fault = nil
		return fmt.Errorf("frame %d: %w", w.frame, err)
	}

	w.emit(EventStep, observability.LevelVerbose, map[string]any{"frame": uint32(w.frame)})
	w.frame++
	return nil
}

func (w *World) applyPending() {
	kept := w.pending[:0]
	var due []Command
	for _, cmd := range w.pending {
		if cmd.Frame.After(w.frame) {
			kept = append(kept, cmd)
		} else {
			due = append(due, cmd)
		}
	}
	w.pending = kept

	for _, cmd := range due {
		if err := w.apply(cmd); err != nil {
			w.emit(EventCommandRejected, observability.LevelWarning, map[string]any{
				"unit":  uint32(cmd.Unit),
				"order": string(cmd.Order),
				"error": err.Error(),
			})
			continue
		}
		w.emit(EventCommand, observability.LevelVerbose, map[string]any{
			"unit":  uint32(cmd.Unit),
			"order": string(cmd.Order),
		})
	}
}

func (w *World) apply(cmd Command) error {
	u, ok := w.byID[cmd.Unit]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, cmd.Unit)
	}
	m := u.machine

	switch cmd.Order {
	case OrderMove:
		return m.MoveAlong(cmd.Waypoint, cmd.Points)
	case OrderAttack:
		return m.Attack(cmd.Target)
	case OrderAttackTeam:
		if int(cmd.Team) >= MaxTeams {
			return fmt.Errorf("%w: %d", ErrInvalidTeam, cmd.Team)
		}
		return m.AttackTeam(w.TeamMembers(cmd.Team))
	case OrderHack:
		if arch, _ := u.kind.Archetype(); !arch.CanHack {
			return fmt.Errorf("%s: %w", u, ErrCannotHack)
		}
		return m.HackInternet()
	case OrderStop:
		return m.Stop()
	case OrderKill:
		u.health = 0
		return m.Die()
	case OrderOverride:
		return m.SetOverride(cmd.State, cmd.Until)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOrder, cmd.Order)
	}
}

// CurrentFrame implements ai.Context.
func (w *World) CurrentFrame() logic.Frame { return w.frame }

// Object implements ai.Context.
func (w *World) Object(id logic.ObjectID) (ai.Entity, bool) {
	u, ok := w.byID[id]
	if !ok {
		return nil, false
	}
	return u, true
}

// IsAlive implements ai.Context.
func (w *World) IsAlive(id logic.ObjectID) bool {
	u, ok := w.byID[id]
	return ok && u.Alive()
}

// GrantCash credits the team of owner.
func (w *World) GrantCash(owner logic.ObjectID, amount int32) {
	u, ok := w.byID[owner]
	if !ok {
		return
	}
	w.cash[u.team] += amount
	w.emit(EventCash, observability.LevelInfo, map[string]any{
		"unit":   uint32(owner),
		"team":   u.team,
		"amount": amount,
		"total":  w.cash[u.team],
	})
}

// RandomIntn implements ai.Context with the world's persisted PCG source.
func (w *World) RandomIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return w.rng.IntN(n)
}
