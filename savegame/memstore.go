package savegame

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore creates a Store held in process memory.
func NewMemoryStore() Store {
	return &memoryStore{slots: make(map[string][]byte)}
}

func (s *memoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]string, 0, len(s.slots))
	for slot := range s.slots {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	return slots, nil
}

func (s *memoryStore) Load(_ context.Context, slot string) ([]byte, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return slices.Clone(data), nil
}

func (s *memoryStore) Save(_ context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[slot] = slices.Clone(data)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, slot)
	return nil
}

func (s *memoryStore) Close() error { return nil }
