// Package savegame frames persisted object graphs into save files and keeps
// them in named slots.
//
// A save file is a sequence of chunks. Each chunk is an ASCII name followed
// by a length-prefixed segment holding the payload of one top-level object.
// The name EOFChunk terminates the file, and no bytes may follow it. A name
// appears at most once.
package savegame

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/simstate/persist"
)

// EOFChunk is the chunk name that ends a save file.
const EOFChunk = "SG_EOF"

// Chunk pairs a top-level object with the name it is saved under.
type Chunk struct {
	Name   string
	Object persist.Persistable
}

// Resolver maps a chunk name found in a file to the object that reads it.
// Returning false marks the chunk as unknown.
type Resolver func(name string) (persist.Persistable, bool)

// Encode writes chunks in order and terminates the file.
func Encode(chunks []Chunk, opts ...persist.Option) ([]byte, error) {
	w := persist.NewWriter(opts...)
	if err := writeChunks(w, chunks); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Verify re-encodes chunks through a validating persister and reports the
// first byte that differs from data.
func Verify(data []byte, chunks []Chunk, opts ...persist.Option) error {
	v := persist.NewValidator(data, opts...)
	if err := writeChunks(v, chunks); err != nil {
		return err
	}
	if n := len(v.Bytes()); n != len(data) {
		return fmt.Errorf("%w: re-encoded %d bytes, save holds %d", persist.ErrMismatch, n, len(data))
	}
	return nil
}

func writeChunks(p *persist.Persister, chunks []Chunk) error {
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		if c.Name == EOFChunk {
			return fmt.Errorf("savegame: chunk name %s is reserved", EOFChunk)
		}
		if seen[c.Name] {
			return fmt.Errorf("savegame: duplicate chunk %s", c.Name)
		}
		seen[c.Name] = true
		name := c.Name
		p.PersistASCIIString(&name)
		p.BeginSegment(name)
		persist.PersistObject(p, c.Object)
		p.EndSegment()
	}
	eof := EOFChunk
	p.PersistASCIIString(&eof)
	return p.Err()
}

// Decode reads every chunk of data into the object resolve returns for its
// name. An unknown chunk, a payload that does not fill its segment exactly,
// a repeated chunk name, or data after the terminator fails with
// persist.ErrInvalidSaveData.
func Decode(data []byte, resolve Resolver, opts ...persist.Option) error {
	r := persist.NewReader(data, opts...)
	seen := make(map[string]bool)
	for {
		name, done := nextChunk(r)
		if r.Err() != nil {
			return r.Err()
		}
		if done {
			break
		}

		if seen[name] {
			r.Invalid("duplicate chunk %q", name)
			return r.Err()
		}
		seen[name] = true

		obj, ok := resolve(name)
		if !ok {
			r.Invalid("unknown chunk %q", name)
			return r.Err()
		}
		r.BeginSegment(name)
		persist.PersistObject(r, obj)
		r.EndSegment()
		if r.Err() != nil {
			return r.Err()
		}
	}

	if n := r.Remaining(); n > 0 {
		r.Invalid("%d bytes after %s", n, EOFChunk)
	}
	return r.Err()
}

// Chunks lists the chunk names of data in file order without decoding any
// payload.
func Chunks(data []byte) ([]string, error) {
	var names []string
	r := persist.NewReader(data)
	for {
		name, done := nextChunk(r)
		if r.Err() != nil {
			return nil, r.Err()
		}
		if done {
			return names, nil
		}
		names = append(names, name)
		n := r.BeginSegment(name)
		r.Skip(int(n))
		r.EndSegment()
	}
}

// ErrChunkNotFound is returned when a save lacks a requested chunk.
var ErrChunkNotFound = errors.New("chunk not found")

// ReadChunk decodes only the named chunk into obj, skipping the others.
func ReadChunk(data []byte, name string, obj persist.Persistable, opts ...persist.Option) error {
	r := persist.NewReader(data, opts...)
	for {
		found, done := nextChunk(r)
		if r.Err() != nil {
			return r.Err()
		}
		if done {
			return fmt.Errorf("%w: %s", ErrChunkNotFound, name)
		}
		n := r.BeginSegment(found)
		if found == name {
			persist.PersistObject(r, obj)
		} else {
			r.Skip(int(n))
		}
		r.EndSegment()
		if found == name || r.Err() != nil {
			return r.Err()
		}
	}
}

func nextChunk(r *persist.Persister) (string, bool) {
	var name string
	r.PersistASCIIString(&name)
	return name, name == EOFChunk
}
