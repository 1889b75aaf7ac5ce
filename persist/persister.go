// Package persist implements the versioned, symmetric save/load visitor.
//
// A Persister runs in exactly one direction. Every Persist method in the
// simulation makes the same sequence of calls regardless of direction: in
// write mode each call appends the field to the save buffer, in read mode the
// same call overwrites the field from the buffer. Because the call sequence
// defines the byte layout, that symmetry is the whole contract.
//
//	func (s *guardState) Persist(p *persist.Persister) {
//	    v := p.PersistVersion(2)
//	    p.PersistObjectID(&s.target)
//	    if v >= 2 {
//	        p.PersistFrame(&s.until)
//	    }
//	}
//
// Errors are sticky: the first failure is recorded, later calls become no-ops,
// and callers check Err once after the traversal. Every decode failure wraps
// ErrInvalidSaveData.
package persist

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/observability"
)

// Mode is the direction a Persister runs in.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeRead {
		return "read"
	}
	return "write"
}

// Persistable is implemented by every object that takes part in a save.
type Persistable interface {
	Persist(p *Persister)
}

type segment struct {
	name  string
	start int
	end   int
}

// Persister is the dual-direction visitor. It neither owns nor retains the
// objects it traverses.
type Persister struct {
	mode     Mode
	buf      []byte
	pos      int
	expected []byte
	segments []segment
	err      error
	observer observability.Observer
	source   string
}

// Option configures a Persister.
type Option func(*Persister)

// WithObserver routes diagnostics (segment boundaries, decode failures) to obs.
func WithObserver(obs observability.Observer) Option {
	return func(p *Persister) { p.observer = obs }
}

// WithSource names the save being processed in emitted events.
func WithSource(name string) Option {
	return func(p *Persister) { p.source = name }
}

func newPersister(mode Mode, opts []Option) *Persister {
	p := &Persister{
		mode:     mode,
		observer: observability.NoOpObserver{},
		source:   "persist",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewReader returns a Persister that decodes data.
func NewReader(data []byte, opts ...Option) *Persister {
	p := newPersister(ModeRead, opts)
	p.buf = data
	return p
}

// NewWriter returns a Persister that encodes into an internal buffer.
func NewWriter(opts ...Option) *Persister {
	return newPersister(ModeWrite, opts)
}

// NewValidator returns a writer that checks every byte it produces against
// expected. The first divergence fails with ErrMismatch, naming the offset and
// open segment. Running a freshly loaded object graph through a validator
// proves the save round-trips byte for byte.
func NewValidator(expected []byte, opts ...Option) *Persister {
	p := newPersister(ModeWrite, opts)
	p.expected = expected
	return p
}

// Mode returns the persister direction.
func (p *Persister) Mode() Mode { return p.mode }

// Reading reports whether the persister decodes.
func (p *Persister) Reading() bool { return p.mode == ModeRead }

// Writing reports whether the persister encodes.
func (p *Persister) Writing() bool { return p.mode == ModeWrite }

// Err returns the first failure, if any.
func (p *Persister) Err() error { return p.err }

// Offset returns the current byte position.
func (p *Persister) Offset() int {
	if p.mode == ModeRead {
		return p.pos
	}
	return len(p.buf)
}

// Bytes returns the encoded buffer of a writer.
func (p *Persister) Bytes() []byte {
	if p.mode == ModeRead {
		return nil
	}
	return p.buf
}

// Remaining returns the undecoded byte count of a reader.
func (p *Persister) Remaining() int {
	if p.mode != ModeRead {
		return 0
	}
	return len(p.buf) - p.pos
}

// Invalid records an invariant violation found in the data.
func (p *Persister) Invalid(format string, args ...any) {
	p.fail(fmt.Errorf("%w: %s", ErrInvalidSaveData, fmt.Sprintf(format, args...)))
}

// Check records an invariant violation when cond is false.
func (p *Persister) Check(cond bool, format string, args ...any) {
	if !cond {
		p.Invalid(format, args...)
	}
}

// Fail records an arbitrary error unless one is already recorded.
func (p *Persister) Fail(err error) {
	if err != nil {
		p.fail(err)
	}
}

func (p *Persister) fail(err error) {
	if p.err != nil {
		return
	}

	p.err = &DataError{
		Offset:  p.Offset(),
		Segment: p.segmentPath(),
		Mode:    p.mode,
		Err:     err,
	}

	observability.Emit(context.Background(), p.observer, EventInvalid, observability.LevelError, p.source, map[string]any{
		"offset":  p.Offset(),
		"segment": p.segmentPath(),
		"mode":    p.mode.String(),
		"error":   err.Error(),
	})
}

func (p *Persister) segmentPath() string {
	if len(p.segments) == 0 {
		return ""
	}
	names := make([]string, len(p.segments))
	for i, s := range p.segments {
		names[i] = s.name
	}
	return strings.Join(names, "/")
}

func (p *Persister) read(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n < 0 || len(p.buf)-p.pos < n {
		p.Invalid("unexpected end of data: need %d bytes, have %d", n, len(p.buf)-p.pos)
		return nil
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *Persister) write(b []byte) {
	if p.err != nil {
		return
	}
	off := len(p.buf)
	p.buf = append(p.buf, b...)
	p.compare(off, b)
}

func (p *Persister) compare(off int, b []byte) {
	if p.expected == nil || p.err != nil {
		return
	}
	if off+len(b) > len(p.expected) {
		p.fail(fmt.Errorf("%w: wrote past end of expected data at 0x%08X", ErrMismatch, off))
		return
	}
	for i, c := range b {
		if want := p.expected[off+i]; want != c {
			p.fail(fmt.Errorf("%w: byte 0x%08X is 0x%02X, expected 0x%02X", ErrMismatch, off+i, c, want))
			return
		}
	}
}

// PersistVersion writes maximumVersion, or reads a version that must lie in
// [1, maximumVersion]. The returned value drives branching between
// historical layouts in read mode.
func (p *Persister) PersistVersion(maximumVersion uint8) uint8 {
	if p.mode == ModeWrite {
		p.write([]byte{maximumVersion})
		return maximumVersion
	}

	raw := p.read(1)
	if raw == nil {
		return 0
	}
	v := raw[0]
	if v == 0 || v > maximumVersion {
		p.Invalid("unsupported version %d (maximum %d)", v, maximumVersion)
		return 0
	}
	return v
}

// PersistUint8 persists a single byte.
func (p *Persister) PersistUint8(v *uint8) {
	if p.mode == ModeWrite {
		p.write([]byte{*v})
		return
	}
	if raw := p.read(1); raw != nil {
		*v = raw[0]
	}
}

// PersistInt8 persists a signed byte.
func (p *Persister) PersistInt8(v *int8) {
	u := uint8(*v)
	p.PersistUint8(&u)
	*v = int8(u)
}

// PersistUint16 persists a little-endian uint16.
func (p *Persister) PersistUint16(v *uint16) {
	if p.mode == ModeWrite {
		p.write(binary.LittleEndian.AppendUint16(nil, *v))
		return
	}
	if raw := p.read(2); raw != nil {
		*v = binary.LittleEndian.Uint16(raw)
	}
}

// PersistInt16 persists a little-endian int16.
func (p *Persister) PersistInt16(v *int16) {
	u := uint16(*v)
	p.PersistUint16(&u)
	*v = int16(u)
}

// PersistUint32 persists a little-endian uint32.
func (p *Persister) PersistUint32(v *uint32) {
	if p.mode == ModeWrite {
		p.write(binary.LittleEndian.AppendUint32(nil, *v))
		return
	}
	if raw := p.read(4); raw != nil {
		*v = binary.LittleEndian.Uint32(raw)
	}
}

// PersistInt32 persists a little-endian int32.
func (p *Persister) PersistInt32(v *int32) {
	u := uint32(*v)
	p.PersistUint32(&u)
	*v = int32(u)
}

// PersistUint64 persists a little-endian uint64.
func (p *Persister) PersistUint64(v *uint64) {
	if p.mode == ModeWrite {
		p.write(binary.LittleEndian.AppendUint64(nil, *v))
		return
	}
	if raw := p.read(8); raw != nil {
		*v = binary.LittleEndian.Uint64(raw)
	}
}

// PersistInt64 persists a little-endian int64.
func (p *Persister) PersistInt64(v *int64) {
	u := uint64(*v)
	p.PersistUint64(&u)
	*v = int64(u)
}

// PersistBool persists a boolean as one byte. Any value other than 0 or 1 is
// invalid save data.
func (p *Persister) PersistBool(v *bool) {
	var b uint8
	if *v {
		b = 1
	}
	p.PersistUint8(&b)
	if p.mode == ModeRead && p.err == nil {
		if b > 1 {
			p.Invalid("boolean byte is %d", b)
			return
		}
		*v = b == 1
	}
}

// PersistFloat32 persists an IEEE-754 single.
func (p *Persister) PersistFloat32(v *float32) {
	u := math.Float32bits(*v)
	p.PersistUint32(&u)
	*v = math.Float32frombits(u)
}

// PersistFrame persists an absolute logic frame.
func (p *Persister) PersistFrame(v *logic.Frame) {
	u := uint32(*v)
	p.PersistUint32(&u)
	*v = logic.Frame(u)
}

// PersistFrameSpan persists a frame duration.
func (p *Persister) PersistFrameSpan(v *logic.FrameSpan) {
	u := uint32(*v)
	p.PersistUint32(&u)
	*v = logic.FrameSpan(u)
}

// PersistCountdown persists the remaining frames of a countdown.
func (p *Persister) PersistCountdown(c *logic.Countdown) {
	p.PersistFrameSpan(c.Span())
}

// PersistObjectID persists an entity reference by id.
func (p *Persister) PersistObjectID(v *logic.ObjectID) {
	u := uint32(*v)
	p.PersistUint32(&u)
	*v = logic.ObjectID(u)
}

// PersistBlob persists an opaque byte string with a uint16 length prefix.
func (p *Persister) PersistBlob(v *[]byte) {
	if p.mode == ModeWrite && len(*v) > math.MaxUint16 {
		p.fail(fmt.Errorf("%w: blob of %d bytes", ErrValueOutOfRange, len(*v)))
		return
	}
	n := uint16(len(*v))
	p.PersistUint16(&n)
	if p.mode == ModeWrite {
		p.write(*v)
		return
	}
	if raw := p.read(int(n)); raw != nil {
		*v = append([]byte(nil), raw...)
	}
}

// BeginSegment opens a length-prefixed region. Writers emit a placeholder
// that EndSegment patches; readers return the declared length.
func (p *Persister) BeginSegment(name string) uint32 {
	if p.err != nil {
		return 0
	}

	if p.mode == ModeWrite {
		p.buf = binary.LittleEndian.AppendUint32(p.buf, 0)
		p.segments = append(p.segments, segment{name: name, start: len(p.buf)})
		observability.Emit(context.Background(), p.observer, EventSegment, observability.LevelVerbose, p.source, map[string]any{
			"segment": name,
			"offset":  len(p.buf),
		})
		return 0
	}

	var length uint32
	p.PersistUint32(&length)
	if p.err != nil {
		return 0
	}
	end := p.pos + int(length)
	if end > len(p.buf) {
		p.Invalid("segment %s declares %d bytes, only %d remain", name, length, len(p.buf)-p.pos)
		return 0
	}
	p.segments = append(p.segments, segment{name: name, start: p.pos, end: end})
	observability.Emit(context.Background(), p.observer, EventSegment, observability.LevelVerbose, p.source, map[string]any{
		"segment": name,
		"offset":  p.pos,
		"length":  length,
	})
	return length
}

// EndSegment closes the innermost segment. Writers patch the length; readers
// require the cursor to sit exactly on the declared end.
func (p *Persister) EndSegment() {
	if p.err != nil {
		return
	}
	if len(p.segments) == 0 {
		p.fail(errors.New("persist: EndSegment without BeginSegment"))
		return
	}

	seg := p.segments[len(p.segments)-1]

	if p.mode == ModeWrite {
		length := uint32(len(p.buf) - seg.start)
		binary.LittleEndian.PutUint32(p.buf[seg.start-4:seg.start], length)
		p.compare(seg.start-4, p.buf[seg.start-4:seg.start])
		if p.err == nil {
			p.segments = p.segments[:len(p.segments)-1]
		}
		return
	}

	if p.pos != seg.end {
		p.Invalid("stream position expected to be at 0x%08X but was at 0x%08X while reading %s", seg.end, p.pos, seg.name)
		return
	}
	p.segments = p.segments[:len(p.segments)-1]
}

// Skip advances a reader past n bytes without interpreting them, e.g. the
// payload of a segment the caller does not need. Writers cannot skip.
func (p *Persister) Skip(n int) {
	if p.mode == ModeWrite {
		p.fail(errors.New("persist: Skip on a writer"))
		return
	}
	p.read(n)
}

// SkipUnknownBytes covers a run of bytes whose meaning is not known. Writers
// emit zeros and readers require zeros, so the layout stays byte-exact.
func (p *Persister) SkipUnknownBytes(n int) {
	if p.mode == ModeWrite {
		p.write(make([]byte, n))
		return
	}
	start := p.pos
	raw := p.read(n)
	for i, b := range raw {
		if b != 0 {
			p.pos = start + i
			p.Invalid("expected byte %d of unknown run to be 0 but it was %d", i, b)
			return
		}
	}
}
