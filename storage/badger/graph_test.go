package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/storage"
)

func testGraph() ([]core.Concept, []core.Association) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	dog := core.Concept{
		Id:         core.IDFromContent("dog"),
		Content:    "dog",
		Strength:   1.25,
		Confidence: 1,
		CreatedAt:  now,
		ModifiedAt: now,
		Source:     "test",
		Vector:     []float32{0.1, 0.2},
	}
	mammal := core.Concept{
		Id:         core.IDFromContent("mammal"),
		Content:    "mammal",
		Strength:   1,
		Confidence: 1,
		CreatedAt:  now,
		ModifiedAt: now,
		Source:     "test",
	}
	edge := core.Association{
		SourceId:   dog.Id,
		TargetId:   mammal.Id,
		Type:       core.AssociationHierarchical,
		Confidence: 0.85,
		Weight:     1,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	return []core.Concept{dog, mammal}, []core.Association{edge}
}

func TestSaveAndLoadGraph(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()
	concepts, associations := testGraph()

	require.NoError(t, repo.SaveGraph(ctx, concepts, associations))

	loadedConcepts, loadedAssociations, err := repo.LoadGraph(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, concepts, loadedConcepts)
	assert.ElementsMatch(t, associations, loadedAssociations)

	t.Run("resaving overwrites in place", func(t *testing.T) {
		concepts[0].Strength = 5
		require.NoError(t, repo.SaveGraph(ctx, concepts, associations))

		loaded, _, err := repo.LoadGraph(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		for _, concept := range loaded {
			if concept.Id == concepts[0].Id {
				assert.Equal(t, float32(5), concept.Strength)
			}
		}
	})

	t.Run("empty save is a no-op", func(t *testing.T) {
		require.NoError(t, repo.SaveGraph(ctx, nil, nil))
	})
}

func TestLoadGraphEmpty(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	concepts, associations, err := repo.LoadGraph(context.Background())
	require.NoError(t, err)
	assert.Empty(t, concepts)
	assert.Empty(t, associations)
}

func TestProviderState(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	defer func() { repo.Close(); backend.Close() }()

	ctx := context.Background()

	t.Run("missing state", func(t *testing.T) {
		_, err := repo.LoadProviderState(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		state := []byte{1, 2, 3, 4}
		require.NoError(t, repo.SaveProviderState(ctx, state))

		loaded, err := repo.LoadProviderState(ctx)
		require.NoError(t, err)
		assert.Equal(t, state, loaded)
	})
}

func TestClosedBackend(t *testing.T) {
	repo, backend, err := NewMemoryRepository()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	ctx := context.Background()
	assert.ErrorIs(t, repo.SaveGraph(ctx, nil, nil), storage.ErrStorageClosed)
	_, _, err = repo.LoadGraph(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = repo.LoadProviderState(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
