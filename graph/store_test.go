package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/cognate/core"
)

func TestUpsertConcept(t *testing.T) {
	store := NewStore()

	t.Run("creates a new concept", func(t *testing.T) {
		id, isNew, err := store.UpsertConcept("the sky is blue", "test", "facts")
		require.NoError(t, err)
		assert.True(t, isNew)

		concept, ok := store.Get(id)
		require.True(t, ok)
		assert.Equal(t, "the sky is blue", concept.Content)
		assert.Equal(t, "test", concept.Source)
		assert.Equal(t, "facts", concept.Category)
		assert.Equal(t, float32(1.0), concept.Strength)
		assert.Equal(t, uint64(0), concept.AccessCount)
	})

	t.Run("relearning is idempotent and reinforces", func(t *testing.T) {
		first, _, err := store.UpsertConcept("the sky is blue", "test", "facts")
		require.NoError(t, err)

		again, isNew, err := store.UpsertConcept("The sky is BLUE!", "other", "other")
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, first, again)

		concept, ok := store.Get(first)
		require.True(t, ok)
		assert.Equal(t, uint64(2), concept.AccessCount)
		assert.Greater(t, concept.Strength, float32(1.0))
	})

	t.Run("strength is capped", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			_, _, err := store.UpsertConcept("repeated fact", "test", "")
			require.NoError(t, err)
		}
		concept, ok := store.Get(core.IDFromContent("repeated fact"))
		require.True(t, ok)
		assert.LessOrEqual(t, concept.Strength, float32(10.0))
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		_, _, err := store.UpsertConcept("", "test", "")
		assert.ErrorIs(t, err, core.ErrEmptyContent)
	})
}

func TestTouch(t *testing.T) {
	store := NewStore()
	id, _, err := store.UpsertConcept("touched", "test", "")
	require.NoError(t, err)

	store.Touch(id)
	store.Touch(id)

	concept, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, uint64(2), concept.AccessCount)

	// Touching an unknown id is a no-op.
	store.Touch(core.IDFromContent("never learned"))
}

func TestConcurrentAccessCounts(t *testing.T) {
	// Touch increments under the read lock while relearning increments
	// under the write lock; run both against concurrent snapshot reads
	// and verify no increment is lost. Run with -race.
	store := NewStore()
	id, _, err := store.UpsertConcept("dog", "test", "")
	require.NoError(t, err)

	const workers = 4
	const rounds = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				store.Touch(id)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_, _, err := store.UpsertConcept("dog", "test", "")
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				store.Get(id)
			}
		}()
	}
	wg.Wait()

	concept, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, uint64(2*workers*rounds), concept.AccessCount)
}

func TestInsertOrReinforceAssociation(t *testing.T) {
	store := NewStore()
	dog, _, err := store.UpsertConcept("dog", "test", "")
	require.NoError(t, err)
	mammal, _, err := store.UpsertConcept("mammal", "test", "")
	require.NoError(t, err)

	t.Run("creates a directed edge", func(t *testing.T) {
		assoc, err := store.InsertOrReinforceAssociation(dog, mammal, core.AssociationHierarchical, 0.85)
		require.NoError(t, err)
		assert.Equal(t, dog, assoc.SourceId)
		assert.Equal(t, mammal, assoc.TargetId)
		assert.Equal(t, float32(1), assoc.Weight)
		assert.Equal(t, float32(0.85), assoc.Confidence)
	})

	t.Run("rediscovery strengthens the edge", func(t *testing.T) {
		assoc, err := store.InsertOrReinforceAssociation(dog, mammal, core.AssociationHierarchical, 0.5)
		require.NoError(t, err)
		assert.Equal(t, float32(2), assoc.Weight)
		// Confidence never drops on reinforcement.
		assert.Greater(t, assoc.Confidence, float32(0.85))
		assert.LessOrEqual(t, assoc.Confidence, float32(1.0))
	})

	t.Run("neighbor index is symmetric", func(t *testing.T) {
		assert.Contains(t, store.Neighbors(dog), mammal)
		assert.Contains(t, store.Neighbors(mammal), dog)
	})

	t.Run("edges are visible from both endpoints", func(t *testing.T) {
		require.Len(t, store.Edges(dog), 1)
		require.Len(t, store.Edges(mammal), 1)
		assert.Equal(t, store.Edges(dog)[0], store.Edges(mammal)[0])
	})

	t.Run("missing endpoint is a consistency error", func(t *testing.T) {
		ghost := core.IDFromContent("ghost")
		_, err := store.InsertOrReinforceAssociation(dog, ghost, core.AssociationSemantic, 0.5)
		assert.ErrorIs(t, err, ErrUnknownConcept)

		_, err = store.InsertOrReinforceAssociation(ghost, dog, core.AssociationSemantic, 0.5)
		assert.ErrorIs(t, err, ErrUnknownConcept)
	})

	t.Run("reverse direction is a distinct edge", func(t *testing.T) {
		_, err := store.InsertOrReinforceAssociation(mammal, dog, core.AssociationSemantic, 0.4)
		require.NoError(t, err)

		forward, ok := store.Association(dog, mammal)
		require.True(t, ok)
		reverse, ok := store.Association(mammal, dog)
		require.True(t, ok)
		assert.Equal(t, core.AssociationHierarchical, forward.Type)
		assert.Equal(t, core.AssociationSemantic, reverse.Type)
	})
}

func TestLexicalCandidates(t *testing.T) {
	store := NewStore()
	id, _, err := store.UpsertConcept("dogs chase cats", "test", "")
	require.NoError(t, err)
	other, _, err := store.UpsertConcept("cats nap often", "test", "")
	require.NoError(t, err)

	t.Run("shared word finds both", func(t *testing.T) {
		found := store.LexicalCandidates([]string{"cats"})
		assert.ElementsMatch(t, []core.ID{id, other}, found)
	})

	t.Run("stop words are not indexed", func(t *testing.T) {
		assert.Empty(t, store.LexicalCandidates([]string{"the", "is"}))
	})

	t.Run("unknown word finds nothing", func(t *testing.T) {
		assert.Empty(t, store.LexicalCandidates([]string{"zebra"}))
	})
}

func TestSimilarByVector(t *testing.T) {
	store := NewStore()
	cosine := func(a, b []float32) float32 {
		var dot, na, nb float32
		for i := range a {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 0
		}
		return dot
	}

	a, _, err := store.UpsertConcept("alpha", "test", "")
	require.NoError(t, err)
	b, _, err := store.UpsertConcept("beta", "test", "")
	require.NoError(t, err)
	_, _, err = store.UpsertConcept("no vector", "test", "")
	require.NoError(t, err)

	require.NoError(t, store.SetVector(a, []float32{1, 0, 0}))
	require.NoError(t, store.SetVector(b, []float32{0, 1, 0}))

	matches := store.SimilarByVector([]float32{1, 0, 0}, 0.5, 10, cosine)
	require.Len(t, matches, 1)
	assert.Equal(t, a, matches[0].Id)

	t.Run("limit is honored", func(t *testing.T) {
		matches := store.SimilarByVector([]float32{1, 1, 0}, 0.0, 1, cosine)
		assert.Len(t, matches, 1)
	})

	t.Run("unknown concept vector is an error", func(t *testing.T) {
		err := store.SetVector(core.IDFromContent("ghost"), []float32{1})
		assert.ErrorIs(t, err, ErrUnknownConcept)
	})
}

func TestRestore(t *testing.T) {
	source := NewStore()
	dog, _, err := source.UpsertConcept("dog", "test", "")
	require.NoError(t, err)
	mammal, _, err := source.UpsertConcept("mammal", "test", "")
	require.NoError(t, err)
	_, err = source.InsertOrReinforceAssociation(dog, mammal, core.AssociationHierarchical, 0.85)
	require.NoError(t, err)

	restored := NewStore()
	for _, concept := range source.Concepts() {
		require.NoError(t, restored.RestoreConcept(concept))
	}
	for _, assoc := range source.Associations() {
		require.NoError(t, restored.RestoreAssociation(assoc))
	}

	t.Run("metadata survives", func(t *testing.T) {
		original, ok := source.Get(dog)
		require.True(t, ok)
		loaded, ok := restored.Get(dog)
		require.True(t, ok)
		assert.Equal(t, original, loaded)
	})

	t.Run("lexical index is rebuilt", func(t *testing.T) {
		assert.Contains(t, restored.LexicalCandidates([]string{"dog"}), dog)
	})

	t.Run("neighbor index is rebuilt", func(t *testing.T) {
		assert.Contains(t, restored.Neighbors(dog), mammal)
	})

	t.Run("association endpoints must be restored first", func(t *testing.T) {
		empty := NewStore()
		for _, assoc := range source.Associations() {
			assert.ErrorIs(t, empty.RestoreAssociation(assoc), ErrUnknownConcept)
		}
	})
}

func TestTokenize(t *testing.T) {
	t.Run("removes stop words and punctuation", func(t *testing.T) {
		words := Tokenize("The dog is a mammal!")
		assert.Equal(t, []string{"dog", "mammal"}, words)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Tokenize(""))
	})
}
