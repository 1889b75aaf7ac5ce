package weapon

import (
	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
)

type inactiveState struct {
	fsm.BaseState
	weapon *Weapon
}

func (s *inactiveState) Update() fsm.Result {
	if s.weapon.HasTarget() {
		return fsm.TransitionTo(StatePreAttack)
	}
	return fsm.Continue()
}

func (s *inactiveState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
}

type preAttackState struct {
	fsm.BaseState
	weapon *Weapon
	timer  logic.Countdown
}

func (s *preAttackState) OnEnter() fsm.Result {
	s.timer.Reset(s.weapon.template.PreAttackDelay)
	return fsm.Continue()
}

func (s *preAttackState) Update() fsm.Result {
	if !s.weapon.HasTarget() {
		return fsm.TransitionTo(StateInactive)
	}
	if s.timer.Tick() {
		return fsm.TransitionTo(StateFiring)
	}
	return fsm.Continue()
}

func (s *preAttackState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistCountdown(&s.timer)
}

// firingState never rests: it fires in OnEnter and chains onwards.
type firingState struct {
	fsm.BaseState
	weapon *Weapon
}

func (s *firingState) OnEnter() fsm.Result {
	if !s.weapon.HasTarget() {
		return fsm.TransitionTo(StateInactive)
	}
	s.weapon.discharge()
	return s.next()
}

func (s *firingState) Update() fsm.Result {
	return s.next()
}

func (s *firingState) next() fsm.Result {
	if s.weapon.template.ClipSize > 0 && s.weapon.ammo == 0 {
		return fsm.TransitionTo(StateReloading)
	}
	return fsm.TransitionTo(StateBetweenShots)
}

func (s *firingState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
}

type betweenShotsState struct {
	fsm.BaseState
	weapon *Weapon
	timer  logic.Countdown
}

func (s *betweenShotsState) OnEnter() fsm.Result {
	s.timer.Reset(s.weapon.template.DelayBetweenShots)
	return fsm.Continue()
}

func (s *betweenShotsState) Update() fsm.Result {
	if !s.weapon.HasTarget() {
		return fsm.TransitionTo(StateInactive)
	}
	if s.timer.Tick() {
		return fsm.TransitionTo(StateFiring)
	}
	return fsm.Continue()
}

func (s *betweenShotsState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistCountdown(&s.timer)
}

type reloadingState struct {
	fsm.BaseState
	weapon *Weapon
	timer  logic.Countdown
}

func (s *reloadingState) OnEnter() fsm.Result {
	s.timer.Reset(s.weapon.template.ClipReloadTime)
	return fsm.Continue()
}

func (s *reloadingState) Update() fsm.Result {
	if !s.timer.Tick() {
		return fsm.Continue()
	}
	s.weapon.ammo = s.weapon.template.ClipSize
	if !s.weapon.HasTarget() {
		return fsm.TransitionTo(StateInactive)
	}
	return fsm.TransitionTo(StateFiring)
}

func (s *reloadingState) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistCountdown(&s.timer)
}
