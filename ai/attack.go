package ai

import (
	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
)

// Attack sub-states.
const (
	AttackApproach fsm.StateID = 0
	AttackAim      fsm.StateID = 1
	AttackFire     fsm.StateID = 2
)

// attackState closes on a target, aims and keeps the weapon on it until the
// target dies. With a target team it moves on to the next living member.
type attackState struct {
	m      *Machine
	target logic.ObjectID
	inner  *fsm.Machine
}

func newAttackState(m *Machine) *attackState {
	s := &attackState{m: m}
	s.inner = fsm.New(m.Name()+"/attack", m.fsmOptions()...)
	s.inner.AddState(AttackApproach, &approachState{attack: s})
	s.inner.AddState(AttackAim, &aimState{attack: s})
	s.inner.AddState(AttackFire, &fireState{attack: s})
	return s
}

// OnEnter starts the sub-machine from Approach. The sub-machine is always
// reset while Attack is inactive, so a resumed run enters it exactly as the
// original run did.
func (s *attackState) OnEnter() fsm.Result {
	s.m.entity.SetFlag(FlagAttacking, true)
	if err := s.inner.Start(); err != nil {
		s.m.recordFault(err)
		return fsm.TransitionTo(StateIdle)
	}
	return fsm.Continue()
}

func (s *attackState) Update() fsm.Result {
	if !s.m.ctx.IsAlive(s.target) {
		next, ok := s.m.nextTeamTarget()
		if !ok {
			return fsm.TransitionTo(StateIdle)
		}
		s.target = next
		if err := s.inner.TransitionTo(AttackApproach); err != nil {
			s.m.recordFault(err)
			return fsm.TransitionTo(StateIdle)
		}
	}

	if err := s.inner.Update(); err != nil {
		s.m.recordFault(err)
		return fsm.TransitionTo(StateIdle)
	}
	return fsm.Continue()
}

func (s *attackState) OnExit() {
	s.inner.Reset()
	s.m.entity.SetFlag(FlagAttacking, false)
	s.m.entity.SetFlag(FlagMoving, false)
	if w := s.m.entity.Weapon(); w != nil {
		w.ClearTarget()
	}
}

func (s *attackState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistObjectID(&s.target)
	persist.PersistObject(p, s.inner)
}

// targetInRange resolves the target and reports whether it is within attack
// range of the unit.
func (s *attackState) targetInRange() (Entity, bool) {
	target, ok := s.m.ctx.Object(s.target)
	if !ok {
		return nil, false
	}
	return target, s.m.entity.Position().Distance(target.Position()) <= s.m.cfg.AttackRange
}

type approachState struct {
	attack *attackState
	move   moveBlock
}

func (s *approachState) OnEnter() fsm.Result {
	s.move = moveBlock{}
	s.attack.m.entity.SetFlag(FlagMoving, true)
	return fsm.Continue()
}

func (s *approachState) Update() fsm.Result {
	target, inRange := s.attack.targetInRange()
	if inRange {
		return fsm.TransitionTo(AttackAim)
	}
	if target == nil {
		return fsm.Continue()
	}
	s.move.retarget(target.Position())
	stepMove(s.attack.m.entity, &s.move)
	return fsm.Continue()
}

func (s *approachState) OnExit() {
	s.attack.m.entity.SetFlag(FlagMoving, false)
}

func (s *approachState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	persistMoveBlock(p, &s.move)
}

type aimState struct {
	fsm.BaseState
	attack *attackState
	aim    aimBlock
}

func (s *aimState) OnEnter() fsm.Result {
	startAim(&s.aim, s.attack.m.cfg.AimTime)
	return fsm.Continue()
}

func (s *aimState) Update() fsm.Result {
	if _, inRange := s.attack.targetInRange(); !inRange {
		return fsm.TransitionTo(AttackApproach)
	}
	if tickAim(&s.aim) {
		return fsm.TransitionTo(AttackFire)
	}
	return fsm.Continue()
}

func (s *aimState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	persistAimBlock(p, &s.aim)
}

// fireState hands the target to the weapon, which runs its own cycle.
type fireState struct {
	attack *attackState
}

func (s *fireState) OnEnter() fsm.Result {
	if w := s.attack.m.entity.Weapon(); w != nil {
		w.SetTarget(s.attack.target)
	}
	return fsm.Continue()
}

func (s *fireState) Update() fsm.Result {
	if _, inRange := s.attack.targetInRange(); !inRange {
		return fsm.TransitionTo(AttackApproach)
	}
	return fsm.Continue()
}

func (s *fireState) OnExit() {
	if w := s.attack.m.entity.Weapon(); w != nil {
		w.ClearTarget()
	}
}

func (s *fireState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
}
