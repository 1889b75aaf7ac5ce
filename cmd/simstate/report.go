package main

import (
	"fmt"
	"io"

	"github.com/tailored-agentic-units/simstate/ai"
	"github.com/tailored-agentic-units/simstate/fsm"
	"github.com/tailored-agentic-units/simstate/sim"
)

var stateNames = map[fsm.StateID]string{
	ai.StateIdle:         "idle",
	ai.StateMoveTowards:  "move",
	ai.StateReserved6:    "reserved6",
	ai.StateAttack:       "attack",
	ai.StateDead:         "dead",
	ai.StateHackInternet: "hack",
}

func report(out io.Writer, w *sim.World, trace *sim.Trace) {
	fmt.Fprintf(out, "Scenario: %s\n", w.Scenario())
	fmt.Fprintf(out, "Frames: %d..%d\n", trace.Start, trace.End)
	fmt.Fprintf(out, "Transitions: %d\n", len(trace.Transitions))

	if len(trace.Rejected) > 0 {
		fmt.Fprintln(out, "\nRejected commands:")
		for _, r := range trace.Rejected {
			fmt.Fprintf(out, "  %s\n", r)
		}
	}

	fmt.Fprintln(out, "\nUnits:")
	for _, u := range w.Units() {
		state := stateNames[u.Machine().Current()]
		fmt.Fprintf(out, "  %-12s team %d  (%d,%d)  health %-4d %s\n",
			u, u.Team(), u.Position().X, u.Position().Y, u.Health(), state)
	}

	fmt.Fprintln(out, "\nCash:")
	for team := range uint8(sim.MaxTeams) {
		if cash := w.Cash(team); cash != 0 {
			fmt.Fprintf(out, "  team %d: %d\n", team, cash)
		}
	}
}
