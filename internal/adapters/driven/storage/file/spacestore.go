// Package file persists space state as JSON sidecar files, one per space,
// under an output directory next to the extracted exports.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
)

// Ensure SpaceStore implements the interface.
var _ driven.SpaceStore = (*SpaceStore)(nil)

// SpaceStore stores each space as <output>/<key>.json. Saves go through a
// temp file and rename so a crash mid-write never leaves a torn sidecar.
type SpaceStore struct {
	mu  sync.Mutex
	dir string
}

// NewSpaceStore creates the store, making the output directory if needed.
func NewSpaceStore(dir string) (*SpaceStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &SpaceStore{dir: dir}, nil
}

func (s *SpaceStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the sidecar for key.
func (s *SpaceStore) Load(_ context.Context, key string) (*domain.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("space %s: %w", key, domain.ErrSpaceNotFound)
		}
		return nil, fmt.Errorf("read sidecar for %s: %w", key, err)
	}

	var space domain.Space
	if err := json.Unmarshal(raw, &space); err != nil {
		return nil, fmt.Errorf("decode sidecar for %s: %w", key, err)
	}
	return &space, nil
}

// Save writes the sidecar atomically.
func (s *SpaceStore) Save(_ context.Context, space *domain.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(space, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar for %s: %w", space.Key, err)
	}

	target := s.path(space.Key)
	tmp, err := os.CreateTemp(s.dir, space.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp sidecar: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp sidecar: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replace sidecar for %s: %w", space.Key, err)
	}
	return nil
}

// List returns the keys of all sidecars in the output directory, sorted.
func (s *SpaceStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}
