package savegame

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileExt is the extension of save files written by the file store.
const FileExt = ".sav"

type fileStore struct {
	root string
}

// NewFileStore creates a Store that keeps each slot as root/<slot>.sav.
// Writes go through a temporary file and a rename, so a crash never leaves a
// truncated save behind.
func NewFileStore(root string) Store {
	return &fileStore{root: root}
}

func (s *fileStore) path(slot string) string {
	return filepath.Join(s.root, slot+FileExt)
}

func (s *fileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	var slots []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, FileExt) {
			continue
		}
		slot := strings.TrimSuffix(name, FileExt)
		if ValidateSlot(slot) == nil {
			slots = append(slots, slot)
		}
	}
	slices.Sort(slots)
	return slots, nil
}

func (s *fileStore) Load(_ context.Context, slot string) ([]byte, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(slot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, slot, err)
	}
	return data, nil
}

func (s *fileStore) Save(_ context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, slot, err)
	}

	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, slot, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, slot, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, slot, err)
	}

	if err := os.Rename(tmpName, s.path(slot)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", ErrSaveFailed, slot, err)
	}
	return nil
}

func (s *fileStore) Delete(_ context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := os.Remove(s.path(slot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete failed: %s: %w", slot, err)
	}
	return nil
}

func (s *fileStore) Close() error { return nil }
