package sim

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/observability"
	"github.com/tailored-agentic-units/simstate/persist"
	"github.com/tailored-agentic-units/simstate/savegame"
)

// Persist writes or reads the whole world. Each unit is preceded by its
// kind, id and team so a reader can build the unit and its machines before
// the unit's own Persist fills them in.
func (w *World) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistFrame(&w.frame)
	p.PersistObjectID(&w.nextID)
	p.Check(w.nextID > 0, "next object id is 0")

	w.persistRandom(p)

	persist.PersistArray(p, w.cash[:], func(p *persist.Persister, v *int32) {
		p.PersistInt32(v)
	})

	var last logic.ObjectID
	persist.PersistListUint32(p, &w.units, func(p *persist.Persister, u **Unit) {
		w.persistUnit(p, u, &last)
	})
	if p.Reading() && p.Err() == nil {
		w.byID = make(map[logic.ObjectID]*Unit, len(w.units))
		for _, u := range w.units {
			w.byID[u.id] = u
		}
	}

	persist.PersistList(p, &w.pending, persist.PersistObjectValue[Command])
}

func (w *World) persistRandom(p *persist.Persister) {
	var state []byte
	if p.Writing() {
		var err error
		if state, err = w.pcg.MarshalBinary(); err != nil {
			p.Fail(fmt.Errorf("random state: %w", err))
			return
		}
	}
	p.PersistBlob(&state)
	if p.Reading() && p.Err() == nil {
		if err := w.pcg.UnmarshalBinary(state); err != nil {
			p.Invalid("random state: %v", err)
		}
	}
}

func (w *World) persistUnit(p *persist.Persister, u **Unit, last *logic.ObjectID) {
	var (
		kind Kind
		id   logic.ObjectID
		team uint8
	)
	if p.Writing() {
		kind, id, team = (*u).kind, (*u).id, (*u).team
	}

	persist.PersistEnumByte(p, &kind)
	p.PersistObjectID(&id)
	p.PersistUint8(&team)
	if p.Err() != nil {
		return
	}

	if p.Reading() {
		if id <= *last || id >= w.nextID {
			p.Invalid("unit id %d out of order (previous %d, next %d)", id, *last, w.nextID)
			return
		}
		built, err := w.build(kind, id, team)
		if err != nil {
			p.Invalid("unit %d: %v", id, err)
			return
		}
		*u = built
	}
	*last = id

	persist.PersistObject(p, *u)
}

// Snapshot encodes the world alone, without save file framing.
func (w *World) Snapshot() ([]byte, error) {
	p := persist.NewWriter(persist.WithObserver(dispatch{w}), persist.WithSource("snapshot"))
	persist.PersistObject(p, w)
	if err := p.Err(); err != nil {
		return nil, err
	}
	return p.Bytes(), nil
}

func (w *World) chunks(header *savegame.Header) []savegame.Chunk {
	return []savegame.Chunk{
		{Name: savegame.ChunkGameState, Object: header},
		{Name: savegame.ChunkGameLogic, Object: w},
	}
}

// Encode frames the world as a save file headed by a fresh CHUNK_GameState.
func (w *World) Encode(description string) ([]byte, *savegame.Header, error) {
	header := savegame.NewHeader(savegame.GameTypeSkirmish, description, w.scenario, w.frame)
	data, err := savegame.Encode(w.chunks(header), persist.WithObserver(dispatch{w}), persist.WithSource("save"))
	if err != nil {
		return nil, nil, err
	}
	return data, header, nil
}

// Verify re-encodes the world under the header stored in data and reports
// the first byte that differs.
func (w *World) Verify(data []byte) error {
	header, err := savegame.ReadHeader(data)
	if err != nil {
		return err
	}
	return savegame.Verify(data, w.chunks(header), persist.WithObserver(dispatch{w}), persist.WithSource("verify"))
}

// Save encodes the world and stores it in slot.
func (w *World) Save(ctx context.Context, store savegame.Store, slot, description string) (*savegame.Header, error) {
	data, header, err := w.Encode(description)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	if err := store.Save(ctx, slot, data); err != nil {
		return nil, err
	}

	w.emit(EventSave, observability.LevelInfo, map[string]any{
		"slot":    slot,
		"save_id": header.SaveID.String(),
		"frame":   uint32(w.frame),
		"bytes":   len(data),
	})
	return header, nil
}

// Decode builds a world from save file data.
func Decode(data []byte, cfg *Config, opts ...Option) (*World, *savegame.Header, error) {
	w, err := New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	var header savegame.Header
	var sawHeader, sawWorld bool
	err = savegame.Decode(data, func(name string) (persist.Persistable, bool) {
		switch name {
		case savegame.ChunkGameState:
			sawHeader = true
			return &header, true
		case savegame.ChunkGameLogic:
			sawWorld = true
			return w, true
		}
		return nil, false
	}, persist.WithObserver(dispatch{w}), persist.WithSource("load"))
	if err != nil {
		return nil, nil, err
	}

	switch {
	case !sawHeader:
		return nil, nil, fmt.Errorf("%w: missing %s", persist.ErrInvalidSaveData, savegame.ChunkGameState)
	case !sawWorld:
		return nil, nil, fmt.Errorf("%w: missing %s", persist.ErrInvalidSaveData, savegame.ChunkGameLogic)
	case header.Frame != w.frame:
		return nil, nil, fmt.Errorf("%w: header frame %d, world frame %d", persist.ErrInvalidSaveData, header.Frame, w.frame)
	}

	w.scenario = header.Scenario
	return w, &header, nil
}

// Load reads slot from store and decodes it.
func Load(ctx context.Context, store savegame.Store, slot string, cfg *Config, opts ...Option) (*World, *savegame.Header, error) {
	data, err := store.Load(ctx, slot)
	if err != nil {
		return nil, nil, err
	}
	w, header, err := Decode(data, cfg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", slot, err)
	}

	w.emit(EventLoad, observability.LevelInfo, map[string]any{
		"slot":    slot,
		"save_id": header.SaveID.String(),
		"frame":   uint32(w.frame),
	})
	return w, header, nil
}
