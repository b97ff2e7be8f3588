// Package mock provides test doubles for ai interfaces.
//
// MockProvider allows custom behavior injection via function fields and
// falls back to deterministic hash-derived vectors, so tests get stable
// similarity scores without a real embedding backend.
package mock

import (
	"context"
	"hash/fnv"

	"github.com/poiesic/cognate/ai"
)

// DefaultDimension is the vector width of the default mock behavior.
const DefaultDimension = 32

// MockProvider is a test double for ai.Provider.
type MockProvider struct {
	// EncodeFunc is called by Encode if set.
	// If nil, uses default deterministic behavior.
	EncodeFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dim overrides the reported dimension. Zero means DefaultDimension.
	Dim int

	callCount int
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock provider with default deterministic behavior.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Encode generates deterministic embeddings for the texts, or delegates
// to EncodeFunc when set.
func (m *MockProvider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount++

	if m.EncodeFunc != nil {
		return m.EncodeFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = generateDeterministicVector(text, m.Dimension())
	}
	return vectors, nil
}

// Dimension returns the configured or default vector width.
func (m *MockProvider) Dimension() int {
	if m.Dim > 0 {
		return m.Dim
	}
	return DefaultDimension
}

// Name identifies the provider implementation.
func (m *MockProvider) Name() string {
	return "mock"
}

// Similarity scores two vectors by clamped cosine similarity.
func (m *MockProvider) Similarity(a, b []float32) float32 {
	return ai.Cosine(a, b)
}

// CallCount returns the number of times Encode was called.
func (m *MockProvider) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockProvider) Reset() {
	m.callCount = 0
	m.EncodeFunc = nil
}

// generateDeterministicVector creates a deterministic embedding vector
// from text. It uses FNV hash to ensure the same text always produces
// the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		// Simple pseudo-random generation based on seed and index
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	// Normalize to unit vector
	var sumSquares float32
	for _, v := range vector {
		sumSquares += v * v
	}
	if sumSquares > 0 {
		norm := float32(1.0) / sumSquares
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
