package reasoning

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/cognate/core"
)

// Strategy names one of the query strategies run by AskMultiStrategy.
type Strategy string

const (
	// StrategyGraph traverses associations with no embedding influence.
	StrategyGraph Strategy = "graph"
	// StrategySemantic answers from embedding similarity alone.
	StrategySemantic Strategy = "semantic"
	// StrategyHybrid traverses the graph with semantic boost on.
	StrategyHybrid Strategy = "hybrid"
)

// strategyResult pairs a strategy with its independent answer.
type strategyResult struct {
	strategy Strategy
	answer   *core.Answer
}

// AskMultiStrategy answers the query with the graph, semantic, and
// hybrid strategies concurrently, then reconciles: the answer is the
// highest-confidence one among agreeing strategies, ConsensusStrength
// is replaced by the inter-strategy agreement share, and disagreeing
// primaries are surfaced as alternatives.
func (a *Aggregator) AskMultiStrategy(ctx context.Context, query string, opts AskOptions) (*core.Answer, error) {
	results := make([]strategyResult, 3)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		graphOpts := opts
		graphOpts.SemanticBoost = false
		answer, err := a.ask(groupCtx, query, graphOpts, nil)
		results[0] = strategyResult{strategy: StrategyGraph, answer: answer}
		return err
	})
	group.Go(func() error {
		answer, err := a.askSemantic(groupCtx, query, opts)
		results[1] = strategyResult{strategy: StrategySemantic, answer: answer}
		return err
	})
	group.Go(func() error {
		hybridOpts := opts
		hybridOpts.SemanticBoost = true
		answer, err := a.ask(groupCtx, query, hybridOpts, nil)
		results[2] = strategyResult{strategy: StrategyHybrid, answer: answer}
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Count agreement over non-rejected primaries, keeping the best
	// confidence seen for each so ties resolve deterministically.
	votes := make(map[string]int)
	best := make(map[string]float32)
	for _, result := range results {
		if result.answer.Confidence > 0 {
			primary := core.NormalizeContent(result.answer.Primary)
			votes[primary]++
			if result.answer.Confidence > best[primary] {
				best[primary] = result.answer.Confidence
			}
		}
	}
	if len(votes) == 0 {
		return a.rejected(nil, 0), nil
	}

	leading := leadingPrimary(votes, best)
	agreement := float32(votes[leading]) / float32(len(results))

	var chosen *core.Answer
	var disagreeing []string
	for _, result := range results {
		if result.answer.Confidence == 0 {
			continue
		}
		if core.NormalizeContent(result.answer.Primary) == leading {
			if chosen == nil || result.answer.Confidence > chosen.Confidence {
				chosen = result.answer
			}
		} else {
			disagreeing = append(disagreeing, fmt.Sprintf("%s (%s strategy)", result.answer.Primary, result.strategy))
		}
	}

	reconciled := *chosen
	reconciled.ConsensusStrength = agreement
	reconciled.Alternatives = append(disagreeing, reconciled.Alternatives...)
	if len(reconciled.Alternatives) > maxAlternatives {
		reconciled.Alternatives = reconciled.Alternatives[:maxAlternatives]
	}
	return &reconciled, nil
}

// leadingPrimary picks the winning primary: most votes, then higher
// best confidence, then lexicographically smaller primary, so the
// reconciled answer never depends on map iteration order.
func leadingPrimary(votes map[string]int, best map[string]float32) string {
	var leading string
	var started bool
	for primary := range votes {
		if !started {
			leading, started = primary, true
			continue
		}
		switch {
		case votes[primary] > votes[leading]:
			leading = primary
		case votes[primary] < votes[leading]:
		case best[primary] > best[leading]:
			leading = primary
		case best[primary] < best[leading]:
		case primary < leading:
			leading = primary
		}
	}
	return leading
}

// askSemantic answers from embedding similarity alone: the nearest
// concept to the query embedding becomes a zero-hop answer.
func (a *Aggregator) askSemantic(ctx context.Context, query string, opts AskOptions) (*core.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors, err := a.provider.Encode(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		a.logger.Warn("semantic strategy unavailable", "err", err)
		return a.rejected(nil, 0), nil
	}

	threshold := float32(resolveSimilarity)
	if opts.MinConfidence > 0 {
		threshold = opts.MinConfidence
	}
	matches := a.store.SimilarByVector(vectors[0], threshold, maxStartConcepts, a.provider.Similarity)
	if len(matches) == 0 {
		return a.rejected(nil, 0), nil
	}

	best, ok := a.store.Get(matches[0].Id)
	if !ok {
		return a.rejected(nil, 0), nil
	}
	a.store.Touch(best.Id)

	answer := &core.Answer{
		Primary:           best.Content,
		Confidence:        matches[0].Score,
		ConsensusStrength: 1,
		Paths: []core.ReasoningPath{{
			Concepts:    []core.ID{best.Id},
			Confidence:  matches[0].Score,
			Explanation: best.Content,
		}},
		ConceptsAccessed: len(matches),
	}
	for i, match := range matches[1:] {
		if i == maxAlternatives {
			break
		}
		if concept, ok := a.store.Get(match.Id); ok {
			answer.Alternatives = append(answer.Alternatives, concept.Content)
		}
	}
	return answer, nil
}
