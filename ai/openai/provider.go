// Package openai provides an ai.Provider backed by an OpenAI-compatible
// embedding API (OpenAI, Ollama, LocalAI, vLLM) through langchaingo.
package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/cognate/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.Provider using a remote embedding service.
type Provider struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
	logger    *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a remote embedding provider and probes the
// backend once to learn its vector width. If the config declares a
// dimension and the backend disagrees, construction fails: every stored
// vector assumes one fixed width, so a mismatch must be fatal at
// startup rather than corrupt similarity scores later.
func NewProvider(ctx context.Context, config *ai.Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that
	// don't require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
	}

	probe, err := embedder.EmbedDocuments(ctx, []string{"dimension probe"})
	if err != nil {
		return nil, fmt.Errorf("%w: probing %s: %w", ai.ErrProviderUnavailable, config.Host, err)
	}
	if len(probe) == 0 || len(probe[0]) == 0 {
		return nil, fmt.Errorf("%w: backend returned an empty probe vector", ai.ErrProviderUnavailable)
	}

	dimension := len(probe[0])
	if config.Dimension != 0 && config.Dimension != dimension {
		return nil, fmt.Errorf("%w: backend declares %d, configured for %d",
			ai.ErrDimensionMismatch, dimension, config.Dimension)
	}

	return &Provider{
		embedder:  embedder,
		model:     config.Model,
		dimension: dimension,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// Name identifies the provider implementation and its model.
func (p *Provider) Name() string {
	return "openai:" + p.model
}

// Dimension returns the vector width probed at construction.
func (p *Provider) Dimension() int {
	return p.dimension
}

// Similarity scores two vectors by clamped cosine similarity.
func (p *Provider) Similarity(a, b []float32) float32 {
	return ai.Cosine(a, b)
}

// Encode generates vector embeddings for multiple texts in a batch.
func (p *Provider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	p.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		p.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
	}

	for i, vector := range vectors {
		if len(vector) != p.dimension {
			return nil, fmt.Errorf("%w: text %d got %d elements, want %d",
				ai.ErrDimensionMismatch, i, len(vector), p.dimension)
		}
	}
	return vectors, nil
}
