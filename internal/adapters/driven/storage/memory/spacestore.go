// Package memory provides in-memory driven adapters for tests and dry runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

// Ensure SpaceStore implements the interface.
var _ driven.SpaceStore = (*SpaceStore)(nil)

// SpaceStore is an in-memory implementation of driven.SpaceStore. Spaces
// round-trip through JSON on save so stored state is as decoupled from the
// caller's pointers as the file store's.
type SpaceStore struct {
	mu     sync.RWMutex
	spaces map[string][]byte

	// Saves counts Save calls, letting tests assert persistence points.
	Saves int
}

// NewSpaceStore creates a new in-memory space store.
func NewSpaceStore() *SpaceStore {
	return &SpaceStore{spaces: make(map[string][]byte)}
}

// Load retrieves a space by key.
func (s *SpaceStore) Load(_ context.Context, key string) (*domain.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.spaces[key]
	if !ok {
		return nil, fmt.Errorf("space %s: %w", key, domain.ErrSpaceNotFound)
	}
	var space domain.Space
	if err := json.Unmarshal(raw, &space); err != nil {
		return nil, err
	}
	return &space, nil
}

// Save stores a deep copy of the space.
func (s *SpaceStore) Save(_ context.Context, space *domain.Space) error {
	raw, err := json.Marshal(space)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces[space.Key] = raw
	s.Saves++
	return nil
}

// List returns all stored space keys, sorted.
func (s *SpaceStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.spaces))
	for k := range s.spaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
