package sim

import "errors"

var (
	// ErrUnknownObject is returned for commands naming a unit that does not
	// exist.
	ErrUnknownObject = errors.New("unknown object")

	ErrUnknownKind  = errors.New("unknown unit kind")
	ErrUnknownOrder = errors.New("unknown order")

	// ErrCannotHack is returned when a kind without hacking gear is ordered
	// to hack.
	ErrCannotHack = errors.New("unit cannot hack")

	ErrInvalidTeam = errors.New("invalid team")

	// ErrNondeterministic is returned by VerifyDeterminism when two runs
	// from the same snapshot diverge.
	ErrNondeterministic = errors.New("simulation is not deterministic")
)
