package savegame

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/persist"
)

// Chunk names written by the simulation.
const (
	ChunkGameState = "CHUNK_GameState"
	ChunkGameLogic = "CHUNK_GameLogic"
)

// GameType classifies a save.
type GameType uint32

const (
	GameTypeSkirmish GameType = iota
	GameTypeSinglePlayer
)

func (g GameType) String() string {
	switch g {
	case GameTypeSkirmish:
		return "skirmish"
	case GameTypeSinglePlayer:
		return "single_player"
	default:
		return fmt.Sprintf("game_type(%d)", uint32(g))
	}
}

// Header is the CHUNK_GameState payload: what a save menu shows without
// loading the world.
type Header struct {
	GameType    GameType
	SaveID      uuid.UUID
	Description string
	Scenario    string
	Frame       logic.Frame
}

// NewHeader returns a header with a fresh save id.
func NewHeader(gameType GameType, description, scenario string, frame logic.Frame) *Header {
	return &Header{
		GameType:    gameType,
		SaveID:      uuid.New(),
		Description: description,
		Scenario:    scenario,
		Frame:       frame,
	}
}

func (h *Header) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	persist.PersistEnum(p, &h.GameType)
	p.Check(h.GameType <= GameTypeSinglePlayer, "unknown game type %d", uint32(h.GameType))
	persist.PersistArray(p, h.SaveID[:], func(p *persist.Persister, b *byte) {
		p.PersistUint8(b)
	})
	p.PersistUnicodeString(&h.Description)
	p.PersistASCIIString(&h.Scenario)
	p.PersistFrame(&h.Frame)
}

// ReadHeader decodes the CHUNK_GameState chunk of data, skipping the rest.
func ReadHeader(data []byte, opts ...persist.Option) (*Header, error) {
	var h Header
	if err := ReadChunk(data, ChunkGameState, &h, opts...); err != nil {
		return nil, err
	}
	return &h, nil
}
