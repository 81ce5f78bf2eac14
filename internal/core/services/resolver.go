package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
	"github.com/rioncm/ConfluenceToOutline/internal/core/ports/driven"
	"github.com/rioncm/ConfluenceToOutline/internal/logger"
)

// CollectionResolver maps a space to exactly one remote collection.
//
// Resolution order: a stored collection id is verified and reused; failing
// that, collections are matched by exact name. Zero matches creates a new
// collection, one match reuses it, several matches are ambiguous and the
// decision is delegated to the chooser. The resolver never picks among
// same-named collections on its own.
type CollectionResolver struct {
	remote  driven.RemoteClient
	chooser driven.AmbiguityResolver
}

func NewCollectionResolver(remote driven.RemoteClient, chooser driven.AmbiguityResolver) *CollectionResolver {
	return &CollectionResolver{remote: remote, chooser: chooser}
}

// Resolve returns the collection id for the space, creating a collection
// when none exists. Failures are recorded on the space's stats; the caller
// persists them.
func (r *CollectionResolver) Resolve(ctx context.Context, space *domain.Space) (string, error) {
	id, err := r.resolve(ctx, space)
	if err != nil {
		space.Stats.CollectionErrors = append(space.Stats.CollectionErrors, domain.NewErrorRecord(err.Error()))
		return "", fmt.Errorf("%w: %w", domain.ErrNoCollection, err)
	}
	space.Stats.CollectionID = id
	return id, nil
}

func (r *CollectionResolver) resolve(ctx context.Context, space *domain.Space) (string, error) {
	// 1. Verify a previously resolved id: it must still exist and still
	// carry the space's name. A stale or renamed collection falls
	// through to name matching instead of failing the run.
	if stored := space.Stats.CollectionID; stored != "" {
		col, err := r.remote.CollectionInfo(ctx, stored)
		switch {
		case err == nil && col.Name == space.Name:
			logger.Debug("reusing stored collection %s for space %s", col.ID, space.Key)
			return col.ID, nil
		case err == nil:
			logger.Warn("stored collection %s is now named %q, rebinding space %s by name", stored, col.Name, space.Key)
		case errors.Is(err, domain.ErrNotFound):
			logger.Warn("stored collection %s for space %s no longer exists", stored, space.Key)
		default:
			return "", fmt.Errorf("verify collection %s: %w", stored, err)
		}
	}

	// 2. Match by exact name.
	collections, err := r.remote.ListCollections(ctx)
	if err != nil {
		return "", fmt.Errorf("list collections: %w", err)
	}
	var matches []driven.Collection
	for _, col := range collections {
		if col.Name == space.Name {
			matches = append(matches, col)
		}
	}

	switch len(matches) {
	case 0:
		col, err := r.remote.CreateCollection(ctx, space.Name, collectionDescription(space))
		if err != nil {
			return "", fmt.Errorf("create collection %q: %w", space.Name, err)
		}
		logger.Info("created collection %q (%s) for space %s", space.Name, col.ID, space.Key)
		return col.ID, nil

	case 1:
		logger.Info("reusing collection %q (%s) for space %s", space.Name, matches[0].ID, space.Key)
		return matches[0].ID, nil

	default:
		idx, err := r.chooser.Choose(ctx, space.Name, matches)
		if err != nil {
			if errors.Is(err, domain.ErrAbstained) {
				return "", fmt.Errorf("%d collections named %q: %w", len(matches), space.Name, domain.ErrAmbiguousCollection)
			}
			return "", fmt.Errorf("choose among %d collections named %q: %w", len(matches), space.Name, err)
		}
		if idx < 0 || idx >= len(matches) {
			return "", fmt.Errorf("collection choice %d out of range: %w", idx, domain.ErrInvalidInput)
		}
		logger.Info("operator chose collection %s for space %s", matches[idx].ID, space.Key)
		return matches[idx].ID, nil
	}
}

// collectionDescription derives the collection description from the space
// root page's content, falling back to a generic import note.
func collectionDescription(space *domain.Space) string {
	if root := space.Root(); root != nil && root.Title == space.Name {
		if content := strings.TrimSpace(root.Content); content != "" {
			return content
		}
	}
	return fmt.Sprintf("Imported from Confluence space: %s", space.Key)
}
