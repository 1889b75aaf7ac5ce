package ai

import (
	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
)

// State ids. They match the numbering used by existing save files.
const (
	StateIdle         fsm.StateID = 0
	StateMoveTowards  fsm.StateID = 1
	StateReserved6    fsm.StateID = 6
	StateAttack       fsm.StateID = 10
	StateDead         fsm.StateID = 13
	StateHackInternet fsm.StateID = 42
)

type idleState struct {
	fsm.BaseState
}

func (idleState) Update() fsm.Result { return fsm.Continue() }

func (idleState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
}

// moveTowardsState walks the unit through the machine's target positions and
// returns to Idle after the last one.
type moveTowardsState struct {
	m    *Machine
	move moveBlock
}

func (s *moveTowardsState) OnEnter() fsm.Result {
	if len(s.m.targetPositions) == 0 {
		return fsm.TransitionTo(StateIdle)
	}
	s.m.entity.SetFlag(FlagMoving, true)
	s.move.retarget(s.m.targetPositions[0])
	return fsm.Continue()
}

func (s *moveTowardsState) Update() fsm.Result {
	if !stepMove(s.m.entity, &s.move) {
		return fsm.Continue()
	}

	s.m.targetPositions = s.m.targetPositions[1:]
	if len(s.m.targetPositions) == 0 {
		return fsm.TransitionTo(StateIdle)
	}
	s.move.retarget(s.m.targetPositions[0])
	return fsm.Continue()
}

func (s *moveTowardsState) OnExit() {
	s.m.entity.SetFlag(FlagMoving, false)
}

func (s *moveTowardsState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	persistMoveBlock(p, &s.move)
}

// reserved6State moves like moveTowardsState. Its three trailing fields have
// no known meaning; they are carried unchanged so existing saves round-trip.
type reserved6State struct {
	moveTowardsState
	unknownInt   int32
	unknownBool1 bool
	unknownBool2 bool
}

func (s *reserved6State) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	s.moveTowardsState.Persist(p)
	p.PersistInt32(&s.unknownInt)
	p.PersistBool(&s.unknownBool1)
	p.PersistBool(&s.unknownBool2)
}

// deadState is terminal; orders are refused once it is active.
type deadState struct {
	m *Machine
}

func (s *deadState) OnEnter() fsm.Result {
	s.m.entity.SetFlag(FlagDead, true)
	if w := s.m.entity.Weapon(); w != nil {
		w.ClearTarget()
	}
	return fsm.Continue()
}

func (s *deadState) Update() fsm.Result { return fsm.Continue() }

func (s *deadState) OnExit() {
	s.m.entity.SetFlag(FlagDead, false)
}

func (s *deadState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
}

// hackInternetState pays out once when its countdown expires and leaves on
// the following tick.
type hackInternetState struct {
	m       *Machine
	timer   logic.Countdown
	granted bool
}

func (s *hackInternetState) OnEnter() fsm.Result {
	s.timer.Reset(s.duration())
	s.granted = false
	s.m.entity.SetFlag(FlagHacking, true)
	return fsm.Continue()
}

func (s *hackInternetState) duration() logic.FrameSpan {
	span := s.m.cfg.HackDuration
	variation := min(s.m.cfg.HackVariation, span)
	if variation == 0 {
		return span
	}
	draw := logic.FrameSpan(s.m.ctx.RandomIntn(int(2*variation) + 1))
	return span - variation + draw
}

func (s *hackInternetState) Update() fsm.Result {
	if s.granted {
		return fsm.TransitionTo(StateIdle)
	}
	if s.timer.Tick() {
		s.m.ctx.GrantCash(s.m.entity.ID(), s.m.cfg.HackCash)
		s.granted = true
	}
	return fsm.Continue()
}

func (s *hackInternetState) OnExit() {
	s.m.entity.SetFlag(FlagHacking, false)
}

func (s *hackInternetState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistCountdown(&s.timer)
	p.PersistBool(&s.granted)
}
