package reasoning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/graph"
)

// buildGraph learns a small taxonomy directly through the store:
// dog -> mammal -> animal (hierarchical), heat -> expansion (causal),
// lightning -> thunder (temporal).
func buildGraph(t *testing.T) (*graph.Store, map[string]core.ID) {
	t.Helper()
	store := graph.NewStore()
	ids := make(map[string]core.ID)

	for _, content := range []string{"dog", "mammal", "animal", "heat", "expansion", "lightning", "thunder"} {
		id, _, err := store.UpsertConcept(content, "test", "")
		require.NoError(t, err)
		ids[content] = id
	}

	edges := []struct {
		from, to   string
		assocType  core.AssociationType
		confidence float32
	}{
		{"dog", "mammal", core.AssociationHierarchical, 0.85},
		{"mammal", "animal", core.AssociationHierarchical, 0.85},
		{"heat", "expansion", core.AssociationCausal, 0.8},
		{"lightning", "thunder", core.AssociationTemporal, 0.8},
	}
	for _, e := range edges {
		_, err := store.InsertOrReinforceAssociation(ids[e.from], ids[e.to], e.assocType, e.confidence)
		require.NoError(t, err)
	}
	return store, ids
}

func TestFindPaths(t *testing.T) {
	store, ids := buildGraph(t)
	finder, err := NewPathFinder(store)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("finds the two hop path", func(t *testing.T) {
		paths := finder.FindPaths(ctx, []core.ID{ids["dog"]}, []core.ID{ids["animal"]}, 3, 3, nil)
		require.NotEmpty(t, paths)

		best := paths[0]
		assert.Equal(t, 2, best.Hops())
		assert.Equal(t, ids["animal"], best.Terminal())
		assert.InDelta(t, 0.85*0.85*0.9, float64(best.Confidence), 1e-4)
		assert.Contains(t, best.Explanation, "dog")
		assert.Contains(t, best.Explanation, "--[hierarchical]-->")
		assert.Contains(t, best.Explanation, "animal")
	})

	t.Run("depth bound prunes longer paths", func(t *testing.T) {
		paths := finder.FindPaths(ctx, []core.ID{ids["dog"]}, []core.ID{ids["animal"]}, 1, 3, nil)
		assert.Empty(t, paths)
	})

	t.Run("visited concepts get access increments", func(t *testing.T) {
		before, _ := store.Get(ids["mammal"])
		finder.FindPaths(ctx, []core.ID{ids["dog"]}, []core.ID{ids["animal"]}, 3, 3, nil)
		after, _ := store.Get(ids["mammal"])
		assert.Greater(t, after.AccessCount, before.AccessCount)
	})

	t.Run("type filter restricts traversal", func(t *testing.T) {
		filter := &Filter{Types: []core.AssociationType{core.AssociationCausal}}
		paths := finder.FindPaths(ctx, []core.ID{ids["dog"]}, []core.ID{ids["animal"]}, 3, 3, filter)
		assert.Empty(t, paths)

		paths = finder.FindPaths(ctx, []core.ID{ids["heat"]}, []core.ID{ids["expansion"]}, 3, 3, filter)
		assert.Len(t, paths, 1)
	})

	t.Run("edge confidence floor prunes weak edges", func(t *testing.T) {
		filter := &Filter{MinEdgeConfidence: 0.9}
		paths := finder.FindPaths(ctx, []core.ID{ids["dog"]}, []core.ID{ids["animal"]}, 3, 3, filter)
		assert.Empty(t, paths)
	})

	t.Run("no targets means any reachable terminal", func(t *testing.T) {
		paths := finder.FindPaths(ctx, []core.ID{ids["dog"]}, nil, 3, 10, nil)
		require.NotEmpty(t, paths)
		// One hop to mammal beats two hops to animal.
		assert.Equal(t, ids["mammal"], paths[0].Terminal())
	})

	t.Run("unknown start finds nothing", func(t *testing.T) {
		paths := finder.FindPaths(ctx, []core.ID{core.IDFromContent("ghost")}, nil, 3, 3, nil)
		assert.Empty(t, paths)
	})

	t.Run("cancelled context stops the search", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		paths := finder.FindPaths(cancelled, []core.ID{ids["dog"]}, nil, 3, 3, nil)
		assert.Empty(t, paths)
	})
}

func TestFindPathsKeepsBetterParallelEdge(t *testing.T) {
	// When both directions of a pair are stored as distinct edges, the
	// same concept sequence is enumerated twice; the returned path must
	// carry the higher-confidence edge regardless of enumeration order.
	store := graph.NewStore()
	ids := make(map[string]core.ID)
	for _, content := range []string{"dog", "mammal"} {
		id, _, err := store.UpsertConcept(content, "test", "")
		require.NoError(t, err)
		ids[content] = id
	}
	_, err := store.InsertOrReinforceAssociation(ids["dog"], ids["mammal"], core.AssociationSemantic, 0.5)
	require.NoError(t, err)
	_, err = store.InsertOrReinforceAssociation(ids["mammal"], ids["dog"], core.AssociationHierarchical, 0.9)
	require.NoError(t, err)

	finder, err := NewPathFinder(store)
	require.NoError(t, err)

	paths := finder.FindPaths(context.Background(), []core.ID{ids["dog"]}, []core.ID{ids["mammal"]}, 3, 3, nil)
	require.Len(t, paths, 1)
	assert.InDelta(t, 0.9, float64(paths[0].Confidence), 1e-4)
	assert.Equal(t, []core.AssociationType{core.AssociationHierarchical}, paths[0].Types)
}

func TestFindCausalChain(t *testing.T) {
	store, ids := buildGraph(t)
	finder, err := NewPathFinder(store)
	require.NoError(t, err)
	ctx := context.Background()

	// Extend the causal chain one more hop.
	cracks, _, err := store.UpsertConcept("cracks", "test", "")
	require.NoError(t, err)
	_, err = store.InsertOrReinforceAssociation(ids["expansion"], cracks, core.AssociationCausal, 0.7)
	require.NoError(t, err)

	chains := finder.FindCausalChain(ctx, ids["heat"], 5, 3)
	require.NotEmpty(t, chains)

	// The longest cause-to-effect chain comes first.
	assert.Equal(t, 2, chains[0].Hops())
	assert.Equal(t, cracks, chains[0].Terminal())
	for _, assocType := range chains[0].Types {
		assert.Equal(t, core.AssociationCausal, assocType)
	}

	t.Run("direction is respected", func(t *testing.T) {
		chains := finder.FindCausalChain(ctx, cracks, 5, 3)
		assert.Empty(t, chains)
	})
}

func TestFindTemporalChain(t *testing.T) {
	store, ids := buildGraph(t)
	finder, err := NewPathFinder(store)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("follows temporal edges only", func(t *testing.T) {
		chains := finder.FindTemporalChain(ctx, ids["lightning"], 5, 3, time.Time{}, time.Time{})
		require.NotEmpty(t, chains)
		assert.Equal(t, ids["thunder"], chains[0].Terminal())
	})

	t.Run("time bounds exclude concepts", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		chains := finder.FindTemporalChain(ctx, ids["lightning"], 5, 3, future, time.Time{})
		assert.Empty(t, chains)
	})
}

func TestFindContradictions(t *testing.T) {
	store := graph.NewStore()
	ctx := context.Background()

	add := func(content string) core.ID {
		id, _, err := store.UpsertConcept(content, "test", "")
		require.NoError(t, err)
		return id
	}
	link := func(a, b core.ID) {
		_, err := store.InsertOrReinforceAssociation(a, b, core.AssociationSemantic, 0.7)
		require.NoError(t, err)
	}

	// Two negated claims sharing the same neighborhood.
	flies := add("penguins can fly")
	cantFly := add("penguins can not fly")
	penguin := add("penguin")
	bird := add("bird")
	link(flies, penguin)
	link(flies, bird)
	link(cantFly, penguin)
	link(cantFly, bird)

	finder, err := NewPathFinder(store)
	require.NoError(t, err)

	hasPair := func(found []Contradiction, a, b core.ID) *Contradiction {
		for i := range found {
			if (found[i].A == a && found[i].B == b) || (found[i].A == b && found[i].B == a) {
				return &found[i]
			}
		}
		return nil
	}

	found := finder.FindContradictions(ctx, 0.5, 10)
	pair := hasPair(found, flies, cantFly)
	require.NotNil(t, pair)
	assert.Contains(t, pair.Reason, "negated")
	assert.Equal(t, float32(1), pair.Overlap)

	t.Run("directly linked pairs are not contradictions", func(t *testing.T) {
		link(flies, cantFly)
		found := finder.FindContradictions(ctx, 0.5, 10)
		assert.Nil(t, hasPair(found, flies, cantFly))
	})
}
