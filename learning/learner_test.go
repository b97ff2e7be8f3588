package learning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/cognate/ai/hashing"
	"github.com/poiesic/cognate/ai/mock"
	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/graph"
)

func newTestLearner(t *testing.T, opts ...Option) (*Learner, *graph.Store) {
	t.Helper()
	store := graph.NewStore()
	provider, err := hashing.New(hashing.DefaultDimension)
	require.NoError(t, err)

	learner, err := NewLearner(store, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(learner.Release)
	return learner, store
}

func TestNewLearner(t *testing.T) {
	store := graph.NewStore()
	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		learner, err := NewLearner(store, provider)
		require.NoError(t, err)
		defer learner.Release()
		assert.NotNil(t, learner)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewLearner(nil, provider)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewLearner(store, nil)
		assert.Equal(t, ErrProviderRequired, err)
	})

	t.Run("nil classifier", func(t *testing.T) {
		_, err := NewLearner(store, provider, WithClassifier(nil))
		assert.Equal(t, ErrClassifierRequired, err)
	})
}

func TestLearnExtractsRelations(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	id, err := learner.Learn(ctx, "a dog is a mammal", "test", "animals")
	require.NoError(t, err)
	require.False(t, id.IsZero())

	dog := core.IDFromContent("dog")
	mammal := core.IDFromContent("mammal")

	t.Run("phrase concepts are created", func(t *testing.T) {
		_, ok := store.Get(dog)
		assert.True(t, ok)
		_, ok = store.Get(mammal)
		assert.True(t, ok)
	})

	t.Run("typed edge links the phrases", func(t *testing.T) {
		assoc, ok := store.Association(dog, mammal)
		require.True(t, ok)
		assert.Equal(t, core.AssociationHierarchical, assoc.Type)
		assert.Equal(t, float32(0.85), assoc.Confidence)
	})

	t.Run("learned text is linked to its phrases", func(t *testing.T) {
		assoc, ok := store.Association(id, dog)
		require.True(t, ok)
		assert.Equal(t, core.AssociationCompositional, assoc.Type)

		_, ok = store.Association(id, mammal)
		assert.True(t, ok)
	})

	t.Run("embeddings are attached", func(t *testing.T) {
		concept, ok := store.Get(id)
		require.True(t, ok)
		assert.NotEmpty(t, concept.Vector)
	})
}

func TestLearnIdempotent(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	first, err := learner.Learn(ctx, "the sky is blue", "test", "")
	require.NoError(t, err)
	before, _ := store.Count()

	second, err := learner.Learn(ctx, "The sky is BLUE!", "test", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	after, _ := store.Count()
	assert.Equal(t, before, after)

	concept, ok := store.Get(first)
	require.True(t, ok)
	assert.Equal(t, uint64(1), concept.AccessCount)
}

func TestLearnEmptyContent(t *testing.T) {
	learner, _ := newTestLearner(t)
	_, err := learner.Learn(context.Background(), "", "test", "")
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestLearnBatch(t *testing.T) {
	learner, store := newTestLearner(t)
	ctx := context.Background()

	items := []Item{
		{Content: "a dog is a mammal", Source: "test"},
		{Content: "a mammal is an animal", Source: "test"},
		{Content: "a cat is a mammal", Source: "test"},
	}

	ids, err := learner.LearnBatch(ctx, items)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for i, id := range ids {
		assert.False(t, id.IsZero(), "item %d", i)
	}

	t.Run("associations form across batch items", func(t *testing.T) {
		dog := core.IDFromContent("dog")
		mammal := core.IDFromContent("mammal")
		animal := core.IDFromContent("animal")

		_, ok := store.Association(dog, mammal)
		assert.True(t, ok)
		_, ok = store.Association(mammal, animal)
		assert.True(t, ok)
	})

	t.Run("per item failures do not abort the batch", func(t *testing.T) {
		mixed := []Item{
			{Content: "", Source: "test"},
			{Content: "water boils when heated", Source: "test"},
		}
		ids, err := learner.LearnBatch(ctx, mixed)
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.True(t, ids[0].IsZero())
		assert.False(t, ids[1].IsZero())
	})

	t.Run("empty batch", func(t *testing.T) {
		ids, err := learner.LearnBatch(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestLearnSurvivesEmbeddingFailure(t *testing.T) {
	store := graph.NewStore()
	provider := &mock.MockProvider{
		EncodeFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, assert.AnError
		},
	}
	learner, err := NewLearner(store, provider)
	require.NoError(t, err)
	defer learner.Release()

	id, err := learner.Learn(context.Background(), "a dog is a mammal", "test", "")
	require.NoError(t, err)

	concept, ok := store.Get(id)
	require.True(t, ok)
	assert.Empty(t, concept.Vector)

	// The lexical graph still forms without embeddings.
	_, ok = store.Association(core.IDFromContent("dog"), core.IDFromContent("mammal"))
	assert.True(t, ok)
}
