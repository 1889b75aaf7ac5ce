package sim

import (
	"bytes"
	"fmt"

	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/observability"
)

// Transition is one state change observed during a run.
type Transition struct {
	Frame   logic.Frame
	Machine string
	From    fsm.StateID
	To      fsm.StateID
}

func (t Transition) String() string {
	return fmt.Sprintf("frame %d %s: %d -> %d", t.Frame, t.Machine, t.From, t.To)
}

// Trace records what a run did.
type Trace struct {
	Start       logic.Frame
	End         logic.Frame
	Transitions []Transition

	// Rejected lists the commands that failed when applied.
	Rejected []string

	// Final is the world snapshot after the last step.
	Final []byte
}

func (t *Trace) record(frame logic.Frame, event observability.Event) {
	switch event.Type {
	case fsm.EventTransition:
		from, _ := event.Data["from"].(uint32)
		to, _ := event.Data["to"].(uint32)
		t.Transitions = append(t.Transitions, Transition{
			Frame:   frame,
			Machine: event.Source,
			From:    fsm.StateID(from),
			To:      fsm.StateID(to),
		})
	case EventCommandRejected:
		t.Rejected = append(t.Rejected, fmt.Sprintf("frame %d unit %v %v: %v",
			frame, event.Data["unit"], event.Data["order"], event.Data["error"]))
	}
}

// Run advances w by frames steps, issuing each scenario command on the step
// that runs its frame. A nil scenario runs without commands. frames <= 0
// falls back to the scenario's frame count.
func Run(w *World, sc *Scenario, frames int) (*Trace, error) {
	if frames <= 0 && sc != nil {
		frames = sc.Frames
	}

	trace := &Trace{Start: w.frame}
	w.trace = trace
	defer func() { w.trace = nil }()

	for range frames {
		if sc != nil {
			for _, cmd := range sc.CommandsAt(w.frame) {
				if err := w.Issue(cmd); err != nil {
					return trace, fmt.Errorf("frame %d: %w", w.frame, err)
				}
			}
		}
		if err := w.Step(); err != nil {
			return trace, err
		}
	}

	trace.End = w.frame
	final, err := w.Snapshot()
	if err != nil {
		return trace, err
	}
	trace.Final = final
	return trace, nil
}

// VerifyDeterminism decodes the save data twice, runs the scenario on both
// worlds and requires identical transitions and identical final snapshots.
func VerifyDeterminism(data []byte, sc *Scenario, frames int, cfg *Config, opts ...Option) error {
	var traces [2]*Trace
	for i := range traces {
		w, _, err := Decode(data, cfg, opts...)
		if err != nil {
			return err
		}
		if traces[i], err = Run(w, sc, frames); err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
	}
	return compareTraces(traces[0], traces[1])
}

func compareTraces(a, b *Trace) error {
	for i := range min(len(a.Transitions), len(b.Transitions)) {
		if a.Transitions[i] != b.Transitions[i] {
			return fmt.Errorf("%w: transition %d: %s vs %s", ErrNondeterministic, i, a.Transitions[i], b.Transitions[i])
		}
	}
	if len(a.Transitions) != len(b.Transitions) {
		return fmt.Errorf("%w: %d transitions vs %d", ErrNondeterministic, len(a.Transitions), len(b.Transitions))
	}
	if !bytes.Equal(a.Final, b.Final) {
		return fmt.Errorf("%w: final snapshots differ", ErrNondeterministic)
	}
	return nil
}
