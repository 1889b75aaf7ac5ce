package persist

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSaveData marks corrupt or unsupported save data. A load that
	// hits it must be aborted; nothing is patched up.
	ErrInvalidSaveData = errors.New("invalid save data")

	// ErrValueOutOfRange is returned when a value cannot be represented in
	// the save layout, e.g. a string longer than its length prefix allows.
	ErrValueOutOfRange = errors.New("value out of range for save layout")

	// ErrMismatch is returned by a validating writer whose output diverges
	// from the expected bytes.
	ErrMismatch = errors.New("save data mismatch")
)

// DataError records where in the stream a persistence failure happened.
type DataError struct {
	Offset  int
	Segment string
	Mode    Mode
	Err     error
}

// Error implements the error interface.
func (e *DataError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("persist %s at 0x%08X: %v", e.Mode, e.Offset, e.Err)
	}
	return fmt.Sprintf("persist %s at 0x%08X in %s: %v", e.Mode, e.Offset, e.Segment, e.Err)
}

// Unwrap enables errors.Is and errors.As on the underlying cause.
func (e *DataError) Unwrap() error {
	return e.Err
}
