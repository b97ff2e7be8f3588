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


package learning

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/cognate/ai"
	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/graph"
)

const (
	defaultSimilarityThreshold = 0.6
	defaultMaxCandidates       = 8

	// membershipConfidence is the confidence of the compositional edge
	// linking a learned text to the phrase concepts extracted from it.
	membershipConfidence = 0.9
)

// Item is one unit of content for batch learning.
type Item struct {
	Content  string
	Source   string
	Category string
}

// Learner orchestrates turning content into concepts and associations.
type Learner struct {
	store         *graph.Store
	provider      ai.Provider
	classifier    Classifier
	pool          *ants.Pool
	simThreshold  float32
	maxCandidates int
	logger        *slog.Logger
}

// Option configures a Learner.
type Option func(*Learner) error

// WithPoolSize sets the worker pool size for batch extraction.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(l *Learner) error {
		if size < 1 {
			size = 1
		}
		if l.pool != nil {
			l.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		l.pool = pool
		return nil
	}
}

// WithClassifier replaces the association-type classification policy.
func WithClassifier(classifier Classifier) Option {
	return func(l *Learner) error {
		if classifier == nil {
			return ErrClassifierRequired
		}
		l.classifier = classifier
		return nil
	}
}

// WithSimilarityThreshold sets the minimum cosine similarity for
// embedding-based candidate discovery.
func WithSimilarityThreshold(threshold float32) Option {
	return func(l *Learner) error {
		l.simThreshold = threshold
		return nil
	}
}

// WithMaxCandidates caps how many related concepts one learned text may
// link to during discovery.
func WithMaxCandidates(max int) Option {
	return func(l *Learner) error {
		if max < 1 {
			max = 1
		}
		l.maxCandidates = max
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Learner) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// NewLearner creates a learner over the given store and provider.
func NewLearner(store *graph.Store, provider ai.Provider, opts ...Option) (*Learner, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	l := &Learner{
		store:         store,
		provider:      provider,
		classifier:    NewCueClassifier(),
		pool:          pool,
		simThreshold:  defaultSimilarityThreshold,
		maxCandidates: defaultMaxCandidates,
		logger:        slog.Default().With("component", "learner"),
	}

	for _, opt := range opts {
		if optErr := opt(l); optErr != nil {
			l.Release()
			return nil, optErr
		}
	}
	return l, nil
}

// Release releases the worker pool. The learner should not be used
// after calling Release.
func (l *Learner) Release() {
	if l.pool != nil {
		l.pool.Release()
	}
}

// plan is the prepared work for one learned text: the concepts it
// created and the edges still to insert.
type plan struct {
	id        core.ID
	content   string
	relations []preparedRelation
	newTexts  []string
	newIds    []core.ID
}

type preparedRelation struct {
	subject core.ID
	object  core.ID
	Relation
}

// Learn normalizes content, resolves its deterministic id, and either
// reinforces the existing concept or creates it, attaches an embedding,
// and extracts associations. Extraction problems degrade to a
// lexical-only graph rather than failing the learn call.
func (l *Learner) Learn(ctx context.Context, content, source, category string) (core.ID, error) {
	p, isNew, err := l.prepare(content, source, category)
	if err != nil {
		return core.ZeroID, err
	}
	if !isNew {
		return p.id, nil
	}

	l.embed(ctx, p)
	if err := l.connect(ctx, p); err != nil {
		l.logger.Warn("association extraction incomplete", "concept", p.id, "err", err)
	}
	return p.id, nil
}

// LearnBatch learns every item. All concepts are created first so
// associations may form within the batch, embeddings are computed in
// one provider call, and extraction for the new concepts runs
// concurrently on the worker pool. Per-item failures are counted and
// logged, never aborting the batch.
func (l *Learner) LearnBatch(ctx context.Context, items []Item) ([]core.ID, error) {
	ids := make([]core.ID, len(items))
	plans := make([]*plan, 0, len(items))

	// Phase 1: every concept exists before any association attempt.
	var failed atomic.Int64
	for i, item := range items {
		p, isNew, err := l.prepare(item.Content, item.Source, item.Category)
		if err != nil {
			failed.Add(1)
			l.logger.Warn("skipping item", "index", i, "err", err)
			continue
		}
		ids[i] = p.id
		if isNew {
			plans = append(plans, p)
		}
	}

	// Phase 2: one batch embedding call for everything new.
	l.embedBatch(ctx, plans)

	// Phase 3: concurrent extraction; edge insertion is serialized by
	// the store's write lock, keeping the index invariants intact.
	var wg sync.WaitGroup
	for _, p := range plans {
		p := p
		wg.Add(1)
		submitErr := l.pool.Submit(func() {
			defer wg.Done()
			if err := l.connect(ctx, p); err != nil {
				failed.Add(1)
				l.logger.Warn("association extraction incomplete", "concept", p.id, "err", err)
			}
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			l.logger.Error("worker pool rejected extraction task", "concept", p.id, "err", submitErr)
		}
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		l.logger.Info("batch learn finished with failures", "items", len(items), "failures", n)
	}
	return ids, nil
}

// prepare upserts the content concept and, for new content, the phrase
// concepts of its extracted relations. Returns the plan and whether the
// content concept is new.
func (l *Learner) prepare(content, source, category string) (*plan, bool, error) {
	id, isNew, err := l.store.UpsertConcept(content, source, category)
	if err != nil {
		return nil, false, err
	}
	p := &plan{id: id, content: content}
	if !isNew {
		return p, false, nil
	}
	p.newTexts = append(p.newTexts, content)
	p.newIds = append(p.newIds, id)

	for _, relation := range l.classifier.ExtractRelations(content) {
		subjectId, subjectNew, err := l.store.UpsertConcept(relation.Subject, source, category)
		if err != nil {
			return nil, false, err
		}
		objectId, objectNew, err := l.store.UpsertConcept(relation.Object, source, category)
		if err != nil {
			return nil, false, err
		}
		if subjectNew {
			p.newTexts = append(p.newTexts, relation.Subject)
			p.newIds = append(p.newIds, subjectId)
		}
		if objectNew {
			p.newTexts = append(p.newTexts, relation.Object)
			p.newIds = append(p.newIds, objectId)
		}
		p.relations = append(p.relations, preparedRelation{
			subject:  subjectId,
			object:   objectId,
			Relation: relation,
		})
	}
	return p, true, nil
}

// embed attaches embeddings to one plan's new concepts.
func (l *Learner) embed(ctx context.Context, p *plan) {
	l.embedBatch(ctx, []*plan{p})
}

// embedBatch computes embeddings for every new concept across the plans
// in one provider call. Embedding failures are logged; learning
// proceeds lexically without vectors.
func (l *Learner) embedBatch(ctx context.Context, plans []*plan) {
	var texts []string
	var ids []core.ID
	for _, p := range plans {
		texts = append(texts, p.newTexts...)
		ids = append(ids, p.newIds...)
	}
	if len(texts) == 0 {
		return
	}

	vectors, err := l.provider.Encode(ctx, texts)
	if err != nil {
		l.logger.Warn("embedding failed, learning lexically", "texts", len(texts), "err", err)
		return
	}
	for i, vector := range vectors {
		if i >= len(ids) {
			break
		}
		if err := l.store.SetVector(ids[i], vector); err != nil {
			l.logger.Warn("failed to attach vector", "concept", ids[i], "err", err)
		}
	}
}

// connect inserts the plan's relation edges and discovers additional
// related concepts for the learned content. Reads are lock-free against
// the current graph; every insertion goes through the store's write lock.
func (l *Learner) connect(ctx context.Context, p *plan) error {
	var errs []error

	for _, relation := range p.relations {
		if _, err := l.store.InsertOrReinforceAssociation(relation.subject, relation.object, relation.Type, relation.Confidence); err != nil {
			errs = append(errs, err)
		}
		// The learned text is linked to the phrases extracted from it.
		for _, member := range []core.ID{relation.subject, relation.object} {
			if member == p.id {
				continue
			}
			if _, err := l.store.InsertOrReinforceAssociation(p.id, member, core.AssociationCompositional, membershipConfidence); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, candidate := range l.discover(ctx, p) {
		if candidate == p.id {
			continue
		}
		target, ok := l.store.Get(candidate)
		if !ok {
			continue
		}
		assocType, confidence := l.classifier.Classify(p.content, target.Content)
		if _, err := l.store.InsertOrReinforceAssociation(p.id, candidate, assocType, confidence); err != nil {
			errs = append(errs, err)
		}
	}

	return joinErrors(errs)
}

// discover gathers candidate related concepts through the lexical index
// and, when the concept has an embedding, vector similarity.
func (l *Learner) discover(ctx context.Context, p *plan) []core.ID {
	if ctx.Err() != nil {
		return nil
	}

	seen := make(map[core.ID]struct{})
	for _, relation := range p.relations {
		seen[relation.subject] = struct{}{}
		seen[relation.object] = struct{}{}
	}

	var candidates []core.ID
	add := func(id core.ID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}

	for _, id := range l.store.LexicalCandidates(graph.Tokenize(p.content)) {
		add(id)
	}

	if concept, ok := l.store.Get(p.id); ok && len(concept.Vector) > 0 {
		for _, match := range l.store.SimilarByVector(concept.Vector, l.simThreshold, l.maxCandidates, l.provider.Similarity) {
			add(match.Id)
		}
	}

	if len(candidates) > l.maxCandidates {
		candidates = candidates[:l.maxCandidates]
	}
	return candidates
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
