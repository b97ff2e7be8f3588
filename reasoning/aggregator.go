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


package reasoning

import (
	"context"
	"log/slog"
	"slices"

	"github.com/poiesic/cognate/ai"
	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/graph"
)

const (
	// boostWeight blends terminal-to-query cosine similarity into a
	// path's confidence when semantic boost is on.
	boostWeight = 0.3

	// consensusWeight blends cluster consensus into the final answer
	// confidence: final = (1-w)*best + w*consensus.
	consensusWeight = 0.3

	resolveSimilarity = 0.5
	maxStartConcepts  = 5
	maxAlternatives   = 3
)

// AskOptions tune one reasoning query. The zero value applies defaults.
type AskOptions struct {
	// NumPaths is how many reasoning paths to collect. Default 3.
	NumPaths int

	// MaxDepth bounds traversal depth in hops. Default 5.
	MaxDepth int

	// SemanticBoost blends query-to-terminal embedding similarity into
	// path confidences.
	SemanticBoost bool

	// MinConfidence rejects the final answer below this threshold, in
	// addition to the quality gate.
	MinConfidence float32

	// Filter restricts traversal, see Filter.
	Filter *Filter
}

// Aggregator turns a free-text query into a consensus answer: it
// resolves the query to start concepts, collects reasoning paths,
// clusters them by terminal concept, and gates the result.
type Aggregator struct {
	store    *graph.Store
	finder   *PathFinder
	provider ai.Provider
	gate     *QualityGate
	logger   *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator) error

// WithGateProfile selects the quality gate profile.
// Default is "moderate".
func WithGateProfile(name string) AggregatorOption {
	return func(a *Aggregator) error {
		gate, err := NewQualityGate(name)
		if err != nil {
			return err
		}
		a.gate = gate
		return nil
	}
}

// WithAggregatorLogger sets a custom logger.
// Default is slog.Default().
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAggregator creates an aggregator over the given store and provider.
func NewAggregator(store *graph.Store, provider ai.Provider, opts ...AggregatorOption) (*Aggregator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	finder, err := NewPathFinder(store)
	if err != nil {
		return nil, err
	}
	gate, err := NewQualityGate(DefaultProfile)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		store:    store,
		finder:   finder,
		provider: provider,
		gate:     gate,
		logger:   slog.Default().With("component", "aggregator"),
	}
	for _, opt := range opts {
		if optErr := opt(a); optErr != nil {
			return nil, optErr
		}
	}
	return a, nil
}

// Finder exposes the aggregator's path finder for direct path queries.
func (a *Aggregator) Finder() *PathFinder {
	return a.finder
}

// Ask answers a free-text query by multi-path consensus. A query the
// graph cannot support never errors; it returns the gate's
// insufficient-evidence answer with confidence zero.
func (a *Aggregator) Ask(ctx context.Context, query string, opts AskOptions) (*core.Answer, error) {
	return a.ask(ctx, query, opts, nil)
}

// ask is the shared query pipeline; emit, when set, receives each
// discovered path's boosted confidence for streaming progress.
func (a *Aggregator) ask(ctx context.Context, query string, opts AskOptions, emit func(path core.ReasoningPath, confidence float32)) (*core.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	starts, queryVec := a.resolveStarts(ctx, query)
	if len(starts) == 0 {
		return a.rejected(nil, 0), nil
	}

	boost := func(path core.ReasoningPath) float32 {
		if !opts.SemanticBoost || queryVec == nil {
			return path.Confidence
		}
		terminal, ok := a.store.Get(path.Terminal())
		if !ok || len(terminal.Vector) == 0 {
			return path.Confidence
		}
		similarity := a.provider.Similarity(queryVec, terminal.Vector)
		return (1-boostWeight)*path.Confidence + boostWeight*similarity
	}

	var onPath func(core.ReasoningPath) bool
	if emit != nil {
		onPath = func(path core.ReasoningPath) bool {
			emit(path, boost(path))
			return ctx.Err() == nil
		}
	}

	paths := a.finder.findPaths(ctx, starts, nil, opts.MaxDepth, opts.NumPaths, opts.Filter, false, onPath)
	accessed := countConcepts(starts, paths)
	if len(paths) == 0 {
		return a.rejected(nil, accessed), nil
	}

	for i := range paths {
		paths[i].Confidence = boost(paths[i])
	}

	answer := a.aggregate(paths, accessed)
	if assessment := a.gate.Assess(answer); !assessment.Passed {
		return a.rejected(&assessment, accessed), nil
	}
	if opts.MinConfidence > 0 && answer.Confidence < opts.MinConfidence {
		return a.rejected(nil, accessed), nil
	}
	return answer, nil
}

// aggregate clusters paths by terminal concept and derives the
// consensus answer: the largest cluster names the primary answer, and
// the final confidence blends its best path with the consensus share.
func (a *Aggregator) aggregate(paths []core.ReasoningPath, accessed int) *core.Answer {
	clusters := make(map[core.ID][]core.ReasoningPath)
	for _, path := range paths {
		terminal := path.Terminal()
		clusters[terminal] = append(clusters[terminal], path)
	}

	var winner core.ID
	var winnerBest float32
	for terminal, members := range clusters {
		best := bestConfidence(members)
		if len(members) > len(clusters[winner]) ||
			(len(members) == len(clusters[winner]) && best > winnerBest) {
			winner = terminal
			winnerBest = best
		}
	}

	winning := clusters[winner]
	slices.SortFunc(winning, func(x, y core.ReasoningPath) int {
		switch {
		case x.Confidence > y.Confidence:
			return -1
		case x.Confidence < y.Confidence:
			return 1
		}
		return 0
	})
	consensus := float32(len(winning)) / float32(len(paths))

	answer := &core.Answer{
		Confidence:        (1-consensusWeight)*winnerBest + consensusWeight*consensus,
		ConsensusStrength: consensus,
		Paths:             winning,
		ConceptsAccessed:  accessed,
	}
	if concept, ok := a.store.Get(winner); ok {
		answer.Primary = concept.Content
	}

	// Alternatives are the other clusters' terminals, best first.
	type alt struct {
		content    string
		confidence float32
	}
	var alts []alt
	for terminal, members := range clusters {
		if terminal == winner {
			continue
		}
		if concept, ok := a.store.Get(terminal); ok {
			alts = append(alts, alt{content: concept.Content, confidence: bestConfidence(members)})
		}
	}
	slices.SortFunc(alts, func(x, y alt) int {
		switch {
		case x.confidence > y.confidence:
			return -1
		case x.confidence < y.confidence:
			return 1
		}
		return 0
	})
	for i, alternative := range alts {
		if i == maxAlternatives {
			break
		}
		answer.Alternatives = append(answer.Alternatives, alternative.content)
	}
	return answer
}

// rejected builds the canonical insufficient-evidence answer.
func (a *Aggregator) rejected(assessment *core.QualityAssessment, accessed int) *core.Answer {
	if assessment == nil {
		v := a.gate.Assess(nil)
		assessment = &v
	}
	return &core.Answer{
		Primary:          assessment.Recommendation,
		Confidence:       0,
		ConceptsAccessed: accessed,
	}
}

// resolveStarts maps a query to start concepts through the lexical
// index and, when the provider can embed the query, vector similarity.
// Provider failures degrade to lexical-only resolution.
func (a *Aggregator) resolveStarts(ctx context.Context, query string) ([]core.ID, []float32) {
	type candidate struct {
		id    core.ID
		score float32
	}
	byId := make(map[core.ID]float32)

	for _, id := range a.store.LexicalCandidates(graph.Tokenize(query)) {
		if concept, ok := a.store.Get(id); ok {
			byId[id] = tokenOverlap(query, concept.Content)
		}
	}

	var queryVec []float32
	vectors, err := a.provider.Encode(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		a.logger.Warn("query embedding failed, resolving lexically", "err", err)
	} else {
		queryVec = vectors[0]
		for _, match := range a.store.SimilarByVector(queryVec, resolveSimilarity, maxStartConcepts, a.provider.Similarity) {
			if match.Score > byId[match.Id] {
				byId[match.Id] = match.Score
			}
		}
	}

	candidates := make([]candidate, 0, len(byId))
	for id, score := range byId {
		candidates = append(candidates, candidate{id: id, score: score})
	}
	slices.SortFunc(candidates, func(x, y candidate) int {
		switch {
		case x.score > y.score:
			return -1
		case x.score < y.score:
			return 1
		}
		return 0
	})
	if len(candidates) > maxStartConcepts {
		candidates = candidates[:maxStartConcepts]
	}

	starts := make([]core.ID, 0, len(candidates))
	for _, c := range candidates {
		starts = append(starts, c.id)
	}
	return starts, queryVec
}

func bestConfidence(paths []core.ReasoningPath) float32 {
	var best float32
	for _, path := range paths {
		if path.Confidence > best {
			best = path.Confidence
		}
	}
	return best
}

func countConcepts(starts []core.ID, paths []core.ReasoningPath) int {
	seen := make(map[core.ID]struct{}, len(starts))
	for _, id := range starts {
		seen[id] = struct{}{}
	}
	for _, path := range paths {
		for _, id := range path.Concepts {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
