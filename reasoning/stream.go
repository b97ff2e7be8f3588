package reasoning

import (
	"context"

	"github.com/poiesic/cognate/core"
)

// Stage identifies a phase of a streaming query.
type Stage string

const (
	// StageResolving means the query is being mapped to start concepts.
	StageResolving Stage = "resolving"
	// StagePathFound means one more reasoning path has been discovered.
	StagePathFound Stage = "path_found"
	// StageAggregating means paths are being clustered into an answer.
	StageAggregating Stage = "aggregating"
	// StageComplete carries the final gated answer.
	StageComplete Stage = "complete"
)

// ProgressEvent is one streamed update of a running query. Confidence
// is the best estimate so far and never decreases across the stream;
// Answer is set only on StageComplete.
type ProgressEvent struct {
	Stage      Stage
	Path       *core.ReasoningPath
	Confidence float32
	Answer     *core.Answer
}

// AskStream runs Ask while emitting progress events. The channel is
// closed when the query finishes or the context is cancelled;
// cancellation stops path expansion and no final answer is emitted.
func (a *Aggregator) AskStream(ctx context.Context, query string, opts AskOptions) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 8)

	go func() {
		defer close(events)

		var highWater float32
		send := func(event ProgressEvent) bool {
			if event.Confidence < highWater {
				event.Confidence = highWater
			} else {
				highWater = event.Confidence
			}
			select {
			case events <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(ProgressEvent{Stage: StageResolving}) {
			return
		}

		emit := func(path core.ReasoningPath, confidence float32) {
			p := path
			send(ProgressEvent{Stage: StagePathFound, Path: &p, Confidence: confidence})
		}

		answer, err := a.ask(ctx, query, opts, emit)
		if err != nil {
			a.logger.Warn("streaming query aborted", "err", err)
			return
		}
		if !send(ProgressEvent{Stage: StageAggregating, Confidence: answer.Confidence}) {
			return
		}
		send(ProgressEvent{Stage: StageComplete, Confidence: answer.Confidence, Answer: answer})
	}()

	return events
}
