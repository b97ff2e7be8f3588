// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cognate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/cognate/ai"
	"github.com/poiesic/cognate/ai/hashing"
	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/graph"
	"github.com/poiesic/cognate/learning"
	"github.com/poiesic/cognate/reasoning"
	"github.com/poiesic/cognate/storage"
	"github.com/poiesic/cognate/storage/badger"
)

// Stats summarizes the engine's current graph.
type Stats struct {
	Concepts     int
	Associations int
	Provider     string
	Dimension    int
}

// Engine is the associative knowledge engine: it owns the in-memory
// concept graph, the learning pipeline, the reasoning layer, and an
// optional persistence backend.
type Engine struct {
	store      *graph.Store
	provider   ai.Provider
	learner    *learning.Learner
	aggregator *reasoning.Aggregator
	backend    *badger.Backend
	repo       storage.GraphRepository
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider    ai.Provider
	repo        storage.GraphRepository
	storagePath string
	gateProfile string
	logger      *slog.Logger
	learnerOpts []learning.Option
}

// WithProvider sets the embedding provider.
// Default is the self-contained hashing provider.
func WithProvider(provider ai.Provider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithRepository sets an explicit persistence backend. The engine does
// not close repositories it did not open.
func WithRepository(repo storage.GraphRepository) EngineOption {
	return func(o *engineOptions) {
		o.repo = repo
	}
}

// WithStoragePath opens a BadgerDB graph repository at the given path,
// owned and closed by the engine.
func WithStoragePath(path string) EngineOption {
	return func(o *engineOptions) {
		o.storagePath = path
	}
}

// WithGateProfile selects the quality gate profile: "strict",
// "moderate", or "lenient". Default is "moderate".
func WithGateProfile(name string) EngineOption {
	return func(o *engineOptions) {
		o.gateProfile = name
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithLearnerOptions forwards options to the learning pipeline.
func WithLearnerOptions(opts ...learning.Option) EngineOption {
	return func(o *engineOptions) {
		o.learnerOpts = append(o.learnerOpts, opts...)
	}
}

// NewEngine creates an engine. With no options it runs fully
// self-contained: in-memory graph, hashing embedding provider, no
// persistence.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		gateProfile: reasoning.DefaultProfile,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	provider := options.provider
	if provider == nil {
		p, err := hashing.New(hashing.DefaultDimension)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	e := &Engine{
		store:    graph.NewStore(graph.WithLogger(options.logger)),
		provider: provider,
		logger:   options.logger,
	}

	learnerOpts := append([]learning.Option{learning.WithLogger(options.logger)}, options.learnerOpts...)
	learner, err := learning.NewLearner(e.store, provider, learnerOpts...)
	if err != nil {
		return nil, err
	}
	e.learner = learner

	aggregator, err := reasoning.NewAggregator(e.store, provider,
		reasoning.WithGateProfile(options.gateProfile),
		reasoning.WithAggregatorLogger(options.logger))
	if err != nil {
		learner.Release()
		return nil, err
	}
	e.aggregator = aggregator

	switch {
	case options.repo != nil:
		e.repo = options.repo
	case options.storagePath != "":
		backend, err := badger.OpenBackend(options.storagePath, false)
		if err != nil {
			learner.Release()
			return nil, err
		}
		repo, err := badger.NewGraphRepository(backend)
		if err != nil {
			backend.Close()
			learner.Release()
			return nil, err
		}
		e.backend = backend
		e.repo = repo
	}
	return e, nil
}

// Close releases the engine's resources. Repositories passed in by the
// caller stay open.
func (e *Engine) Close() error {
	e.learner.Release()

	if e.backend == nil {
		return nil
	}
	if err := e.repo.Close(); err != nil {
		e.logger.Error("error closing graph repository", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Learn ingests one piece of content, returning the id of its concept.
func (e *Engine) Learn(ctx context.Context, content, source, category string) (core.ID, error) {
	return e.learner.Learn(ctx, content, source, category)
}

// LearnBatch ingests many items at once. Per-item failures are logged
// and leave a zero id at that position; the batch itself never fails.
func (e *Engine) LearnBatch(ctx context.Context, items []learning.Item) ([]core.ID, error) {
	return e.learner.LearnBatch(ctx, items)
}

// Ask answers a free-text query by multi-path consensus over the graph.
func (e *Engine) Ask(ctx context.Context, query string, opts reasoning.AskOptions) (*core.Answer, error) {
	return e.aggregator.Ask(ctx, query, opts)
}

// AskStream answers a query while streaming progress events. The
// channel closes when the query completes or the context is cancelled.
func (e *Engine) AskStream(ctx context.Context, query string, opts reasoning.AskOptions) <-chan reasoning.ProgressEvent {
	return e.aggregator.AskStream(ctx, query, opts)
}

// AskMultiStrategy answers with graph, semantic, and hybrid strategies
// concurrently and reconciles their results.
func (e *Engine) AskMultiStrategy(ctx context.Context, query string, opts reasoning.AskOptions) (*core.Answer, error) {
	return e.aggregator.AskMultiStrategy(ctx, query, opts)
}

// FindPathSemantic finds reasoning paths between two learned contents,
// traversal restricted by the optional filter.
func (e *Engine) FindPathSemantic(ctx context.Context, from, to string, maxDepth, numPaths int, filter *reasoning.Filter) []core.ReasoningPath {
	starts := []core.ID{core.IDFromContent(from)}
	targets := []core.ID{core.IDFromContent(to)}
	return e.aggregator.Finder().FindPaths(ctx, starts, targets, maxDepth, numPaths, filter)
}

// FindTemporalChain follows temporal edges from a learned content,
// optionally bounded by concept creation time.
func (e *Engine) FindTemporalChain(ctx context.Context, from string, maxDepth, numPaths int, after, before time.Time) []core.ReasoningPath {
	return e.aggregator.Finder().FindTemporalChain(ctx, core.IDFromContent(from), maxDepth, numPaths, after, before)
}

// FindCausalChain follows causal edges from a learned content.
func (e *Engine) FindCausalChain(ctx context.Context, from string, maxDepth, numPaths int) []core.ReasoningPath {
	return e.aggregator.Finder().FindCausalChain(ctx, core.IDFromContent(from), maxDepth, numPaths)
}

// FindContradictions scans the graph for concept pairs that occupy the
// same neighborhood while disagreeing in content.
func (e *Engine) FindContradictions(ctx context.Context, minOverlap float32, limit int) []reasoning.Contradiction {
	return e.aggregator.Finder().FindContradictions(ctx, minOverlap, limit)
}

// QueryBySemantic returns concepts admitted by the filter, strongest
// first, up to maxResults.
func (e *Engine) QueryBySemantic(ctx context.Context, filter *reasoning.Filter, maxResults int) []core.Concept {
	if maxResults <= 0 {
		maxResults = 10
	}

	var matched []core.Concept
	for _, concept := range e.store.Concepts() {
		if ctx.Err() != nil {
			break
		}
		if filter == nil || filter.Allows(concept) {
			matched = append(matched, concept)
		}
	}

	weight := func(c core.Concept) float32 {
		return c.Strength * c.Confidence
	}
	slices.SortFunc(matched, func(a, b core.Concept) int {
		switch {
		case weight(a) > weight(b):
			return -1
		case weight(a) < weight(b):
			return 1
		}
		return 0
	})
	if len(matched) > maxResults {
		matched = matched[:maxResults]
	}
	return matched
}

// SemanticSearch returns the concepts most similar to the query by
// embedding, best first. An empty graph yields an empty list.
func (e *Engine) SemanticSearch(ctx context.Context, query string, topK int, threshold float32) ([]graph.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	vectors, err := e.provider.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	if len(vectors) == 0 {
		return []graph.Match{}, nil
	}

	matches := e.store.SimilarByVector(vectors[0], threshold, topK, e.provider.Similarity)
	if matches == nil {
		matches = []graph.Match{}
	}
	return matches, nil
}

// Save persists the current graph snapshot and, for stateful providers,
// the provider's fitted state.
func (e *Engine) Save(ctx context.Context) error {
	if e.repo == nil {
		return ErrNoRepository
	}

	concepts := e.store.Concepts()
	associations := e.store.Associations()
	if err := e.repo.SaveGraph(ctx, concepts, associations); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}

	if stateful, ok := e.provider.(ai.StatefulProvider); ok {
		state, err := stateful.MarshalState()
		if err != nil {
			return fmt.Errorf("marshaling provider state: %w", err)
		}
		if err := e.repo.SaveProviderState(ctx, state); err != nil {
			return fmt.Errorf("saving provider state: %w", err)
		}
	}

	e.logger.Info("graph saved", "concepts", len(concepts), "associations", len(associations))
	return nil
}

// Load restores a persisted graph into the engine, rebuilding the
// lexical and neighbor indices, and restores the provider state so
// stored vectors stay comparable with freshly encoded ones.
func (e *Engine) Load(ctx context.Context) error {
	if e.repo == nil {
		return ErrNoRepository
	}

	if stateful, ok := e.provider.(ai.StatefulProvider); ok {
		state, err := e.repo.LoadProviderState(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Nothing saved; the provider starts fresh.
		case err != nil:
			return fmt.Errorf("loading provider state: %w", err)
		default:
			if err := stateful.UnmarshalState(state); err != nil {
				return fmt.Errorf("restoring provider state: %w", err)
			}
		}
	}

	concepts, associations, err := e.repo.LoadGraph(ctx)
	if err != nil {
		return fmt.Errorf("loading graph: %w", err)
	}
	for i := range concepts {
		if err := e.store.RestoreConcept(concepts[i]); err != nil {
			return fmt.Errorf("restoring concept %s: %w", concepts[i].Id, err)
		}
	}
	for i := range associations {
		if err := e.store.RestoreAssociation(associations[i]); err != nil {
			return fmt.Errorf("restoring association: %w", err)
		}
	}

	e.logger.Info("graph loaded", "concepts", len(concepts), "associations", len(associations))
	return nil
}

// Stats reports the engine's current graph size and provider.
func (e *Engine) Stats() Stats {
	concepts, associations := e.store.Count()
	return Stats{
		Concepts:     concepts,
		Associations: associations,
		Provider:     e.provider.Name(),
		Dimension:    e.provider.Dimension(),
	}
}

// Store exposes the underlying graph store for advanced callers.
func (e *Engine) Store() *graph.Store {
	return e.store
}
