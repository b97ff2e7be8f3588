package ai

import "context"

// Provider generates vector embeddings from text for semantic
// similarity. Implementations must be thread-safe for concurrent use.
type Provider interface {
	// Encode generates vector embeddings for the given texts in a batch.
	// The returned slice contains one vector per input text, in order,
	// each of exactly Dimension() elements.
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed width of vectors this provider produces.
	Dimension() int

	// Name identifies the provider implementation.
	Name() string

	// Similarity scores two vectors in [0, 1], higher meaning closer.
	Similarity(a, b []float32) float32
}

// StatefulProvider is implemented by providers whose fitted state must
// survive restarts. The state blob is opaque to callers; it carries the
// complete fitted model, not just a vocabulary, so similarity scores
// remain stable after a reload.
type StatefulProvider interface {
	Provider

	// MarshalState serializes the provider's entire fitted state.
	MarshalState() ([]byte, error)

	// UnmarshalState restores fitted state produced by MarshalState.
	UnmarshalState(data []byte) error
}
