package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rioncm/ConfluenceToOutline/internal/core/domain"
)

func resolverSpace() *domain.Space {
	return &domain.Space{
		Name: "Info Systems",
		Key:  "is",
		Content: []*domain.DocumentNode{
			{Key: "root", Title: "Info Systems", Kind: domain.KindFolder, Content: "# Info Systems\n\nWelcome."},
		},
	}
}

func TestCollectionResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a collection when none matches", func(t *testing.T) {
		remote := newMockRemote()
		r := NewCollectionResolver(remote, abstainingChooser())
		space := resolverSpace()

		id, err := r.Resolve(ctx, space)

		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, space.Stats.CollectionID)
		require.Len(t, remote.collections, 1)
		assert.Equal(t, "Info Systems", remote.collections[0].Name)
	})

	t.Run("uses the root page content as the description", func(t *testing.T) {
		remote := newMockRemote()
		r := NewCollectionResolver(remote, abstainingChooser())

		_, err := r.Resolve(ctx, resolverSpace())

		require.NoError(t, err)
		assert.Equal(t, "# Info Systems\n\nWelcome.", remote.collections[0].Description)
	})

	t.Run("falls back to a generic description without root content", func(t *testing.T) {
		remote := newMockRemote()
		r := NewCollectionResolver(remote, abstainingChooser())
		space := resolverSpace()
		space.Content[0].Content = "   "

		_, err := r.Resolve(ctx, space)

		require.NoError(t, err)
		assert.Equal(t, "Imported from Confluence space: is", remote.collections[0].Description)
	})

	t.Run("reuses a verified stored id", func(t *testing.T) {
		remote := newMockRemote()
		col, err := remote.CreateCollection(ctx, "Info Systems", "")
		require.NoError(t, err)
		r := NewCollectionResolver(remote, abstainingChooser())
		space := resolverSpace()
		space.Stats.CollectionID = col.ID

		id, err := r.Resolve(ctx, space)

		require.NoError(t, err)
		assert.Equal(t, col.ID, id)
		assert.Len(t, remote.collections, 1)
	})

	t.Run("a renamed stored collection is rebound by name", func(t *testing.T) {
		remote := newMockRemote()
		renamed, err := remote.CreateCollection(ctx, "Archive", "")
		require.NoError(t, err)
		current, err := remote.CreateCollection(ctx, "Info Systems", "")
		require.NoError(t, err)
		r := NewCollectionResolver(remote, abstainingChooser())
		space := resolverSpace()
		space.Stats.CollectionID = renamed.ID

		id, err := r.Resolve(ctx, space)

		require.NoError(t, err)
		assert.Equal(t, current.ID, id)
	})

	t.Run("stale stored id falls back to name matching", func(t *testing.T) {
		remote := newMockRemote()
		col, err := remote.CreateCollection(ctx, "Info Systems", "existing")
		require.NoError(t, err)
		r := NewCollectionResolver(remote, abstainingChooser())
		space := resolverSpace()
		space.Stats.CollectionID = "col-gone"

		id, err := r.Resolve(ctx, space)

		require.NoError(t, err)
		assert.Equal(t, col.ID, id)
	})

	t.Run("reuses the single name match", func(t *testing.T) {
		remote := newMockRemote()
		col, err := remote.CreateCollection(ctx, "Info Systems", "existing")
		require.NoError(t, err)
		r := NewCollectionResolver(remote, abstainingChooser())

		id, err := r.Resolve(ctx, resolverSpace())

		require.NoError(t, err)
		assert.Equal(t, col.ID, id)
		assert.Len(t, remote.collections, 1)
	})

	t.Run("several matches delegate to the chooser", func(t *testing.T) {
		remote := newMockRemote()
		_, err := remote.CreateCollection(ctx, "Info Systems", "first")
		require.NoError(t, err)
		second, err := remote.CreateCollection(ctx, "Info Systems", "second")
		require.NoError(t, err)
		chooser := &mockChooser{idx: 1}
		r := NewCollectionResolver(remote, chooser)

		id, err := r.Resolve(ctx, resolverSpace())

		require.NoError(t, err)
		assert.Equal(t, second.ID, id)
		assert.Equal(t, 1, chooser.calls)
	})

	t.Run("abstention fails closed as ambiguity", func(t *testing.T) {
		remote := newMockRemote()
		for i := 0; i < 2; i++ {
			_, err := remote.CreateCollection(ctx, "Info Systems", "")
			require.NoError(t, err)
		}
		r := NewCollectionResolver(remote, abstainingChooser())
		space := resolverSpace()

		_, err := r.Resolve(ctx, space)

		assert.ErrorIs(t, err, domain.ErrAmbiguousCollection)
		assert.ErrorIs(t, err, domain.ErrNoCollection)
		assert.Len(t, remote.collections, 2)
		require.Len(t, space.Stats.CollectionErrors, 1)
	})

	t.Run("out of range choice is invalid input", func(t *testing.T) {
		remote := newMockRemote()
		for i := 0; i < 2; i++ {
			_, err := remote.CreateCollection(ctx, "Info Systems", "")
			require.NoError(t, err)
		}
		r := NewCollectionResolver(remote, &mockChooser{idx: 5})

		_, err := r.Resolve(ctx, resolverSpace())

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("list failure records a collection error", func(t *testing.T) {
		remote := newMockRemote()
		remote.listErr = assert.AnError
		r := NewCollectionResolver(remote, abstainingChooser())
		space := resolverSpace()

		_, err := r.Resolve(ctx, space)

		assert.ErrorIs(t, err, domain.ErrNoCollection)
		assert.Len(t, space.Stats.CollectionErrors, 1)
		assert.Empty(t, space.Stats.CollectionID)
	})
}

func TestCollectionResolver_NeverPicksSilently(t *testing.T) {
	// Two same-named collections and no operator decision must never
	// resolve, regardless of how often resolution is retried.
	ctx := context.Background()
	remote := newMockRemote()
	for i := 0; i < 2; i++ {
		_, err := remote.CreateCollection(ctx, "Info Systems", "")
		require.NoError(t, err)
	}
	r := NewCollectionResolver(remote, abstainingChooser())
	space := resolverSpace()

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, space)
		assert.ErrorIs(t, err, domain.ErrAmbiguousCollection)
	}
	assert.Len(t, remote.collections, 2)
}
