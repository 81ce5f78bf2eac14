package driven

import (
	"context"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
)

// SpaceStore persists space trees between pipeline phases. The store is the
// sole durability mechanism: the uploader saves after every node mutation so
// an interrupted run resumes from the last flushed node.
type SpaceStore interface {
	// Load reads the space for key.
	// Returns domain.ErrSpaceNotFound when no sidecar exists.
	Load(ctx context.Context, key string) (*domain.Space, error)

	// Save writes the complete space, replacing any previous state.
	Save(ctx context.Context, space *domain.Space) error

	// List returns the keys of all persisted spaces.
	List(ctx context.Context) ([]string, error)
}
