package savegame

import "errors"

// Sentinel errors for store operations.
var (
	ErrSlotNotFound = errors.New("slot not found")
	ErrInvalidSlot  = errors.New("invalid slot name")
	ErrLoadFailed   = errors.New("load failed")
	ErrSaveFailed   = errors.New("save failed")
)
