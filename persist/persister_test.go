package persist_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/simstate/logic"
	"github.com/tailored-agentic-units/simstate/observability"
	"github.com/tailored-agentic-units/simstate/persist"
)

type member struct {
	id    logic.ObjectID
	order logic.Frame
}

func (m *member) Persist(p *persist.Persister) {
	p.PersistObjectID(&m.id)
	p.PersistFrame(&m.order)
}

type stance uint32

type record struct {
	u8      uint8
	i8      int8
	u16     uint16
	i16     int16
	u32     uint32
	i32     int32
	u64     uint64
	i64     int64
	flag    bool
	f32     float32
	name    string
	title   string
	frame   logic.Frame
	span    logic.FrameSpan
	timer   logic.Countdown
	target  logic.ObjectID
	stance  stance
	members []member
	fixed   [3]int32
	blob    []byte
}

func (r *record) Persist(p *persist.Persister) {
	p.PersistVersion(1)
	p.PersistUint8(&r.u8)
	p.PersistInt8(&r.i8)
	p.PersistUint16(&r.u16)
	p.PersistInt16(&r.i16)
	p.PersistUint32(&r.u32)
	p.PersistInt32(&r.i32)
	p.PersistUint64(&r.u64)
	p.PersistInt64(&r.i64)
	p.PersistBool(&r.flag)
	p.PersistFloat32(&r.f32)
	p.PersistASCIIString(&r.name)
	p.PersistUnicodeString(&r.title)
	p.PersistFrame(&r.frame)
	p.PersistFrameSpan(&r.span)
	p.PersistCountdown(&r.timer)
	p.PersistObjectID(&r.target)
	persist.PersistEnum(p, &r.stance)
	persist.PersistList(p, &r.members, persist.PersistObjectValue[member])
	persist.PersistArrayUint32(p, r.fixed[:], func(p *persist.Persister, v *int32) {
		p.PersistInt32(v)
	})
	p.PersistBlob(&r.blob)
}

func sampleRecord() *record {
	return &record{
		u8:     200,
		i8:     -5,
		u16:    65000,
		i16:    -1234,
		u32:    4000000000,
		i32:    -70000,
		u64:    1 << 40,
		i64:    -(1 << 40),
		flag:   true,
		f32:    3.5,
		name:   "Café",
		title:  "héllo 世界",
		frame:  6313,
		span:   logic.OneSecond,
		timer:  logic.NewCountdown(17),
		target: 42,
		stance: 3,
		members: []member{
			{id: 7, order: 100},
			{id: 9, order: 101},
		},
		fixed: [3]int32{1, -2, 3},
		blob:  []byte{0xde, 0xad},
	}
}

func encode(t *testing.T, obj persist.Persistable) []byte {
	t.Helper()
	w := persist.NewWriter()
	persist.PersistObject(w, obj)
	if err := w.Err(); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return w.Bytes()
}

func TestPersister_RoundTrip(t *testing.T) {
	original := sampleRecord()
	first := encode(t, original)

	var loaded record
	r := persist.NewReader(first)
	persist.PersistObject(r, &loaded)
	if err := r.Err(); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d after full read, want 0", r.Remaining())
	}

	if loaded.name != original.name || loaded.title != original.title {
		t.Errorf("strings = %q/%q, want %q/%q", loaded.name, loaded.title, original.name, original.title)
	}
	if loaded.i64 != original.i64 || loaded.i8 != original.i8 || loaded.f32 != original.f32 {
		t.Errorf("numeric fields did not survive: %+v", loaded)
	}
	if loaded.timer.Remaining() != 17 {
		t.Errorf("countdown = %d, want 17", loaded.timer.Remaining())
	}
	if len(loaded.members) != 2 || loaded.members[1].id != 9 {
		t.Errorf("members = %+v", loaded.members)
	}
	if loaded.fixed != original.fixed {
		t.Errorf("fixed = %v, want %v", loaded.fixed, original.fixed)
	}

	second := encode(t, &loaded)
	if !bytes.Equal(first, second) {
		t.Error("re-encoded bytes differ from the original encoding")
	}
}

func TestPersister_Layout(t *testing.T) {
	obj := &member{id: 0x01020304, order: 5}
	items := []member{*obj}

	w := persist.NewWriter()
	persist.PersistList(w, &items, persist.PersistObjectValue[member])

	want := []byte{
		0x01, 0x00,             // uint16 count
		0x04, 0x03, 0x02, 0x01, // object id
		0x05, 0x00, 0x00, 0x00, // frame
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("layout = % x, want % x", w.Bytes(), want)
	}
}

func TestPersister_ASCIIStringLayout(t *testing.T) {
	s := "Café"
	w := persist.NewWriter()
	w.PersistASCIIString(&s)

	want := []byte{4, 'C', 'a', 'f', 0xe9}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("layout = % x, want % x", w.Bytes(), want)
	}
}

func TestPersister_UnicodeStringLayout(t *testing.T) {
	s := "hi"
	w := persist.NewWriter()
	w.PersistUnicodeString(&s)

	want := []byte{2, 'h', 0, 'i', 0}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("layout = % x, want % x", w.Bytes(), want)
	}
}

func TestPersister_StringsRejectUnreproducibleData(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		unicode bool
	}{
		{name: "unassigned 0x81", data: []byte{1, 0x81}},
		{name: "unassigned 0x9d", data: []byte{3, 'a', 0x9d, 'b'}},
		{name: "unpaired high surrogate", data: []byte{2, 'a', 0, 0x00, 0xd8}, unicode: true},
		{name: "unpaired low surrogate", data: []byte{1, 0x00, 0xdc}, unicode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s string
			r := persist.NewReader(tt.data)
			if tt.unicode {
				r.PersistUnicodeString(&s)
			} else {
				r.PersistASCIIString(&s)
			}

			if !errors.Is(r.Err(), persist.ErrInvalidSaveData) {
				t.Errorf("Err() = %v, want ErrInvalidSaveData", r.Err())
			}
			if s != "" {
				t.Errorf("string = %q, want it untouched", s)
			}
		})
	}
}

func TestPersister_StringsRejectInvalidUTF8(t *testing.T) {
	for _, unicode := range []bool{false, true} {
		s := "a\xffb"
		w := persist.NewWriter()
		if unicode {
			w.PersistUnicodeString(&s)
		} else {
			w.PersistASCIIString(&s)
		}

		if !errors.Is(w.Err(), persist.ErrValueOutOfRange) {
			t.Errorf("unicode=%v: Err() = %v, want ErrValueOutOfRange", unicode, w.Err())
		}
		if len(w.Bytes()) != 0 {
			t.Errorf("unicode=%v: wrote % x, want nothing", unicode, w.Bytes())
		}
	}
}

func TestPersister_StringsAcceptReplacementCharacter(t *testing.T) {
	s := "\uFFFD"
	w := persist.NewWriter()
	w.PersistUnicodeString(&s)

	var got string
	r := persist.NewReader(w.Bytes())
	r.PersistUnicodeString(&got)
	if err := r.Err(); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != s {
		t.Errorf("string = %q, want %q", got, s)
	}
}

func TestPersister_StringTooLong(t *testing.T) {
	s := strings.Repeat("x", 256)
	w := persist.NewWriter()
	w.PersistASCIIString(&s)

	if !errors.Is(w.Err(), persist.ErrValueOutOfRange) {
		t.Errorf("Err() = %v, want ErrValueOutOfRange", w.Err())
	}
}

func TestPersister_Version(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		max     uint8
		want    uint8
		wantErr bool
	}{
		{name: "current version", data: []byte{2}, max: 2, want: 2},
		{name: "older version", data: []byte{1}, max: 2, want: 1},
		{name: "zero is invalid", data: []byte{0}, max: 2, wantErr: true},
		{name: "newer than reader", data: []byte{3}, max: 2, wantErr: true},
		{name: "truncated", data: nil, max: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := persist.NewReader(tt.data)
			got := r.PersistVersion(tt.max)

			if tt.wantErr {
				if !errors.Is(r.Err(), persist.ErrInvalidSaveData) {
					t.Errorf("Err() = %v, want ErrInvalidSaveData", r.Err())
				}
				return
			}
			if r.Err() != nil {
				t.Fatalf("unexpected error: %v", r.Err())
			}
			if got != tt.want {
				t.Errorf("PersistVersion() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPersister_WriteVersionReturnsMaximum(t *testing.T) {
	w := persist.NewWriter()
	if v := w.PersistVersion(4); v != 4 {
		t.Errorf("PersistVersion() = %d, want 4", v)
	}
	if !bytes.Equal(w.Bytes(), []byte{4}) {
		t.Errorf("bytes = % x", w.Bytes())
	}
}

func TestPersister_BoolInvariant(t *testing.T) {
	r := persist.NewReader([]byte{2})
	var b bool
	r.PersistBool(&b)

	if !errors.Is(r.Err(), persist.ErrInvalidSaveData) {
		t.Errorf("Err() = %v, want ErrInvalidSaveData", r.Err())
	}
}

func TestPersister_CheckRecordsViolation(t *testing.T) {
	r := persist.NewReader([]byte{0})
	var always bool
	r.PersistBool(&always)
	r.Check(always, "flag expected to be set")

	var dataErr *persist.DataError
	if !errors.As(r.Err(), &dataErr) {
		t.Fatalf("Err() = %v, want *DataError", r.Err())
	}
	if dataErr.Offset != 1 {
		t.Errorf("Offset = %d, want 1", dataErr.Offset)
	}
	if !strings.Contains(dataErr.Error(), "flag expected to be set") {
		t.Errorf("error message %q lacks context", dataErr.Error())
	}
}

func TestPersister_StickyError(t *testing.T) {
	r := persist.NewReader([]byte{9, 1, 2, 3, 4})
	r.PersistVersion(1)
	first := r.Err()

	var v uint32
	r.PersistUint32(&v)

	if r.Err() != first {
		t.Error("later call replaced the first error")
	}
	if v != 0 {
		t.Errorf("value decoded after failure: %d", v)
	}
}

func TestPersister_Segments(t *testing.T) {
	w := persist.NewWriter()
	w.BeginSegment("outer")
	var a uint32 = 7
	w.PersistUint32(&a)
	w.BeginSegment("inner")
	var b uint8 = 1
	w.PersistUint8(&b)
	w.EndSegment()
	w.EndSegment()
	if err := w.Err(); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := []byte{
		9, 0, 0, 0, // outer length
		7, 0, 0, 0,
		1, 0, 0, 0, // inner length
		1,
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("layout = % x, want % x", w.Bytes(), want)
	}

	r := persist.NewReader(w.Bytes())
	if n := r.BeginSegment("outer"); n != 9 {
		t.Errorf("outer length = %d, want 9", n)
	}
	r.PersistUint32(&a)
	r.BeginSegment("inner")
	r.PersistUint8(&b)
	r.EndSegment()
	r.EndSegment()
	if err := r.Err(); err != nil {
		t.Errorf("read failed: %v", err)
	}
}

func TestPersister_SegmentUnderRead(t *testing.T) {
	data := []byte{2, 0, 0, 0, 0xaa, 0xbb}

	r := persist.NewReader(data)
	r.BeginSegment("chunk")
	var b uint8
	r.PersistUint8(&b)
	r.EndSegment()

	var dataErr *persist.DataError
	if !errors.As(r.Err(), &dataErr) {
		t.Fatalf("Err() = %v, want *DataError", r.Err())
	}
	if dataErr.Segment != "chunk" {
		t.Errorf("Segment = %q, want chunk", dataErr.Segment)
	}
}

func TestPersister_SegmentLengthPastEnd(t *testing.T) {
	r := persist.NewReader([]byte{10, 0, 0, 0, 1})
	r.BeginSegment("chunk")

	if !errors.Is(r.Err(), persist.ErrInvalidSaveData) {
		t.Errorf("Err() = %v, want ErrInvalidSaveData", r.Err())
	}
}

func TestPersister_EndSegmentWithoutBegin(t *testing.T) {
	w := persist.NewWriter()
	w.EndSegment()
	if w.Err() == nil {
		t.Error("expected error for unbalanced EndSegment")
	}
}

func TestPersister_SkipUnknownBytes(t *testing.T) {
	w := persist.NewWriter()
	w.SkipUnknownBytes(4)
	if !bytes.Equal(w.Bytes(), []byte{0, 0, 0, 0}) {
		t.Errorf("bytes = % x, want zeros", w.Bytes())
	}

	r := persist.NewReader([]byte{0, 0, 5, 0})
	r.SkipUnknownBytes(4)

	var dataErr *persist.DataError
	if !errors.As(r.Err(), &dataErr) {
		t.Fatalf("Err() = %v, want *DataError", r.Err())
	}
	if dataErr.Offset != 2 {
		t.Errorf("Offset = %d, want 2", dataErr.Offset)
	}
}

func TestPersister_ArrayLengthMismatch(t *testing.T) {
	r := persist.NewReader([]byte{2, 0, 0, 0, 1, 2})
	fixed := make([]uint8, 3)
	persist.PersistArrayUint32(r, fixed, func(p *persist.Persister, v *uint8) {
		p.PersistUint8(v)
	})

	if !errors.Is(r.Err(), persist.ErrInvalidSaveData) {
		t.Errorf("Err() = %v, want ErrInvalidSaveData", r.Err())
	}
}

func TestPersister_CorruptListCount(t *testing.T) {
	r := persist.NewReader([]byte{0xff, 0xff, 1, 0, 0, 0})
	var items []member
	persist.PersistList(r, &items, persist.PersistObjectValue[member])

	if !errors.Is(r.Err(), persist.ErrInvalidSaveData) {
		t.Errorf("Err() = %v, want ErrInvalidSaveData", r.Err())
	}
	if items != nil {
		t.Errorf("partial list assigned on failure: %v", items)
	}
}

func TestValidator(t *testing.T) {
	original := sampleRecord()
	data := encode(t, original)

	t.Run("identical graph passes", func(t *testing.T) {
		v := persist.NewValidator(data)
		persist.PersistObject(v, original)
		if err := v.Err(); err != nil {
			t.Errorf("validation failed: %v", err)
		}
	})

	t.Run("divergent field fails", func(t *testing.T) {
		changed := sampleRecord()
		changed.target = 43

		v := persist.NewValidator(data)
		persist.PersistObject(v, changed)
		if !errors.Is(v.Err(), persist.ErrMismatch) {
			t.Errorf("Err() = %v, want ErrMismatch", v.Err())
		}
	})

	t.Run("segment length is checked after patching", func(t *testing.T) {
		w := persist.NewWriter()
		w.BeginSegment("s")
		var a uint16 = 1
		w.PersistUint16(&a)
		w.EndSegment()

		v := persist.NewValidator(w.Bytes())
		v.BeginSegment("s")
		v.PersistUint16(&a)
		v.EndSegment()
		if err := v.Err(); err != nil {
			t.Errorf("validation failed: %v", err)
		}
	})
}

type captureObserver struct {
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.events = append(c.events, event)
}

func TestPersister_ObserverReceivesFailure(t *testing.T) {
	obs := &captureObserver{}
	r := persist.NewReader([]byte{7}, persist.WithObserver(obs), persist.WithSource("slot-1"))
	r.PersistVersion(1)

	if len(obs.events) != 1 {
		t.Fatalf("received %d events, want 1", len(obs.events))
	}
	ev := obs.events[0]
	if ev.Type != persist.EventInvalid || ev.Level != observability.LevelError {
		t.Errorf("event = %s/%s, want %s/ERROR", ev.Type, ev.Level, persist.EventInvalid)
	}
	if ev.Source != "slot-1" {
		t.Errorf("Source = %q, want slot-1", ev.Source)
	}
}

func TestPersister_Skip(t *testing.T) {
	r := persist.NewReader([]byte{9, 9, 9, 4})
	r.Skip(3)
	var b uint8
	r.PersistUint8(&b)
	if r.Err() != nil || b != 4 {
		t.Errorf("expected 4 after skip, got %d (%v)", b, r.Err())
	}

	r = persist.NewReader([]byte{1})
	r.Skip(2)
	if !errors.Is(r.Err(), persist.ErrInvalidSaveData) {
		t.Errorf("expected ErrInvalidSaveData skipping past end, got %v", r.Err())
	}

	w := persist.NewWriter()
	w.Skip(1)
	if w.Err() == nil {
		t.Error("expected error skipping on a writer")
	}
}
