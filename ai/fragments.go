package ai

import (
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
)

// moveBlock is the movement data shared by every state that walks a unit
// toward a point.
type moveBlock struct {
	target  Point
	arrived bool
}

func (b *moveBlock) retarget(p Point) {
	b.target = p
	b.arrived = false
}

// stepMove advances e one tick toward the block's target and reports arrival.
func stepMove(e Entity, b *moveBlock) bool {
	pos := e.Position()
	if pos != b.target {
		pos = pos.StepToward(b.target, e.Speed())
		e.SetPosition(pos)
	}
	b.arrived = pos == b.target
	return b.arrived
}

func persistMoveBlock(p *persist.Persister, b *moveBlock) {
	p.PersistVersion(1)
	PersistPoint(p, &b.target)
	p.PersistBool(&b.arrived)
}

// aimBlock is the aiming delay used before opening fire.
type aimBlock struct {
	timer logic.Countdown
}

func startAim(b *aimBlock, span logic.FrameSpan) {
	b.timer.Reset(span)
}

func tickAim(b *aimBlock) bool {
	return b.timer.Tick()
}

func persistAimBlock(p *persist.Persister, b *aimBlock) {
	p.PersistVersion(1)
	p.PersistCountdown(&b.timer)
}
