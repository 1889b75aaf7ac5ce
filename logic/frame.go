// Package logic provides the discrete time and identity primitives shared by
// every simulated entity. Frames replace wall-clock time entirely: a state that
// waits does so by counting frames, never by sleeping.
package logic

import "fmt"

// FramesPerSecond is the fixed logic rate of the simulation.
const FramesPerSecond = 30

// OneSecond is the span covering one second of simulated time.
const OneSecond FrameSpan = FramesPerSecond

// Frame is an absolute logic-frame index.
type Frame uint32

// FrameSpan is a duration measured in logic frames.
type FrameSpan uint32

// ObjectID references a simulated entity. Zero means "no object".
type ObjectID uint32

// SpanFromMilliseconds converts a millisecond duration to frames, rounding up
// so that a non-zero duration never collapses to an empty span.
func SpanFromMilliseconds(ms uint32) FrameSpan {
	frames := (uint64(ms)*FramesPerSecond + 999) / 1000
	return FrameSpan(frames)
}

// Add returns the frame span frames after f.
func (f Frame) Add(span FrameSpan) Frame {
	return f + Frame(span)
}

// Since returns the span between earlier and f. It panics when earlier is
// after f, since frames never run backwards.
func (f Frame) Since(earlier Frame) FrameSpan {
	if earlier > f {
		panic(fmt.Sprintf("logic: frame %d is before %d", f, earlier))
	}
	return FrameSpan(f - earlier)
}

// Before reports whether f is strictly earlier than other.
func (f Frame) Before(other Frame) bool { return f < other }

// After reports whether f is strictly later than other.
func (f Frame) After(other Frame) bool { return f > other }

// Decrement returns s minus one frame. Decrementing an empty span is a logic
// error and panics.
func (s FrameSpan) Decrement() FrameSpan {
	if s == 0 {
		panic("logic: decrement of empty frame span")
	}
	return s - 1
}

// IsZero reports whether the span is empty.
func (s FrameSpan) IsZero() bool { return s == 0 }
