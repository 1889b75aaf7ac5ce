package savegame

import (
	"context"
	"fmt"
	"regexp"
)

// Store keeps encoded saves in named slots. Implementations perform I/O on
// each call without caching.
type Store interface {
	// List returns the stored slot names in ascending order.
	List(ctx context.Context) ([]string, error)
	// Load returns the save held in slot.
	Load(ctx context.Context, slot string) ([]byte, error)
	// Save writes data to slot, replacing any previous save.
	Save(ctx context.Context, slot string, data []byte) error
	// Delete removes slot. A missing slot is ignored.
	Delete(ctx context.Context, slot string) error
	// Close releases the backend.
	Close() error
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateSlot rejects slot names that cannot be used as a file name, table
// key and object key alike.
func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}
