package sim

import (
	"fmt"

	"github.com/tailored-agentic-units/simstate/weapon"
)

// Kind selects the archetype a unit is built from.
type Kind uint8

const (
	KindInfantry Kind = iota + 1
	KindTank
	KindHacker
)

// Archetype is the static description of a unit kind.
type Archetype struct {
	Name    string
	Speed   int32
	Health  int32
	CanHack bool

	// Weapon is nil for unarmed kinds.
	Weapon *weapon.Template
}

var archetypes = map[Kind]Archetype{
	KindInfantry: {
		Name:   "infantry",
		Speed:  1,
		Health: 100,
		Weapon: &weapon.Template{
			Name:              "rifle",
			ClipSize:          3,
			Damage:            10,
			PreAttackDelay:    2,
			DelayBetweenShots: 3,
			ClipReloadTime:    15,
		},
	},
	KindTank: {
		Name:   "tank",
		Speed:  2,
		Health: 400,
		Weapon: &weapon.Template{
			Name:           "cannon",
			ClipSize:       1,
			Damage:         60,
			PreAttackDelay: 5,
			ClipReloadTime: 20,
		},
	},
	KindHacker: {
		Name:    "hacker",
		Speed:   1,
		Health:  60,
		CanHack: true,
	},
}

// Archetype returns the static description of k.
func (k Kind) Archetype() (Archetype, bool) {
	a, ok := archetypes[k]
	return a, ok
}

func (k Kind) String() string {
	if a, ok := archetypes[k]; ok {
		return a.Name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a kind by archetype name.
func ParseKind(name string) (Kind, error) {
	for k, a := range archetypes {
		if a.Name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// UnmarshalText lets scenarios name kinds.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText writes the archetype name.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := archetypes[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}
