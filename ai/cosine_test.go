package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.5, 0.7}
		assert.InDelta(t, 1.0, float64(Cosine(v, v)), 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, float64(Cosine([]float32{1, 0}, []float32{0, 1})), 1e-6)
	})

	t.Run("opposite vectors clamp to zero", func(t *testing.T) {
		assert.Equal(t, float32(0), Cosine([]float32{1, 0}, []float32{-1, 0}))
	})

	t.Run("zero vector", func(t *testing.T) {
		assert.Equal(t, float32(0), Cosine([]float32{0, 0}, []float32{1, 0}))
	})

	t.Run("mismatched lengths compare the shared prefix", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{1, 0, 0, 0}
		assert.Greater(t, Cosine(a, b), float32(0.9))
	})
}
