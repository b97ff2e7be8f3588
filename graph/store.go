package graph

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/cognate/core"
)

const (
	initialStrength   = 1.0
	strengthIncrement = 0.25
	maxStrength       = 10.0
	reinforceBlend    = 0.1
)

// pairKey identifies a directed association by its ordered endpoints.
type pairKey struct {
	source core.ID
	target core.ID
}

// Match is a concept id with a similarity score, produced by vector scans.
type Match struct {
	Id    core.ID
	Score float32
}

// Store is the concept graph store. All mutations go through its
// methods so the derived indices (lexical, neighbors) always mirror the
// concept and association maps.
type Store struct {
	mu           sync.RWMutex
	concepts     map[core.ID]*core.Concept
	associations map[pairKey]*core.Association
	neighbors    map[core.ID]map[core.ID]struct{}
	lexical      map[string]map[core.ID]struct{}
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore creates an empty concept graph store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		concepts:     make(map[core.ID]*core.Concept),
		associations: make(map[pairKey]*core.Association),
		neighbors:    make(map[core.ID]map[core.ID]struct{}),
		lexical:      make(map[string]map[core.ID]struct{}),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertConcept creates a concept from content or reinforces the
// existing one. Re-learning identical normalized content is idempotent:
// it increments AccessCount and Strength and refreshes ModifiedAt
// without creating a duplicate.
func (s *Store) UpsertConcept(content, source, category string) (core.ID, bool, error) {
	if content == "" {
		return core.ZeroID, false, core.ErrEmptyContent
	}
	id := core.IDFromContent(content)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.concepts[id]; ok {
		// AccessCount is also incremented by Touch under the read lock,
		// so every mutation of it must be atomic.
		atomic.AddUint64(&existing.AccessCount, 1)
		existing.Strength += strengthIncrement
		if existing.Strength > maxStrength {
			existing.Strength = maxStrength
		}
		existing.ModifiedAt = now
		return id, false, nil
	}

	concept := &core.Concept{
		Id:         id,
		Content:    content,
		Strength:   initialStrength,
		Confidence: 1.0,
		CreatedAt:  now,
		ModifiedAt: now,
		Source:     source,
		Category:   category,
	}
	if err := core.ValidateConcept(concept); err != nil {
		return core.ZeroID, false, err
	}

	s.concepts[id] = concept
	s.indexWords(concept)
	return id, true, nil
}

// Get returns a snapshot copy of the concept, if present.
func (s *Store) Get(id core.ID) (core.Concept, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	concept, ok := s.concepts[id]
	if !ok {
		return core.Concept{}, false
	}
	return snapshotConcept(concept), true
}

// Touch atomically increments a concept's access count. It is the only
// concept mutation allowed under concurrent readers; the increment
// happens while the read lock is held so it can never interleave with
// a writer holding the write lock.
func (s *Store) Touch(id core.ID) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if concept, ok := s.concepts[id]; ok {
		atomic.AddUint64(&concept.AccessCount, 1)
	}
}

// SetVector attaches an embedding vector to a concept.
func (s *Store) SetVector(id core.ID, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	concept, ok := s.concepts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConcept, id)
	}
	concept.Vector = vector
	concept.ModifiedAt = time.Now().UTC()
	return nil
}

// InsertOrReinforceAssociation inserts a directed typed edge or
// strengthens the existing one for the same ordered pair. Both
// endpoints must already exist; the neighbor index is updated in the
// same critical section so it never diverges from the association map.
func (s *Store) InsertOrReinforceAssociation(source, target core.ID, assocType core.AssociationType, confidence float32) (core.Association, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.concepts[source]; !ok {
		return core.Association{}, fmt.Errorf("%w: source %s", ErrUnknownConcept, source)
	}
	if _, ok := s.concepts[target]; !ok {
		return core.Association{}, fmt.Errorf("%w: target %s", ErrUnknownConcept, target)
	}

	key := pairKey{source: source, target: target}
	if existing, ok := s.associations[key]; ok {
		existing.Weight++
		if confidence > existing.Confidence {
			existing.Confidence = confidence
		}
		existing.Confidence += (1 - existing.Confidence) * reinforceBlend
		if existing.Confidence > 1 {
			existing.Confidence = 1
		}
		existing.LastUsedAt = now
		return *existing, nil
	}

	assoc := &core.Association{
		SourceId:   source,
		TargetId:   target,
		Type:       assocType,
		Confidence: confidence,
		Weight:     1,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if err := core.ValidateAssociation(assoc); err != nil {
		return core.Association{}, err
	}

	s.associations[key] = assoc
	s.link(source, target)
	return *assoc, nil
}

// Neighbors returns the undirected neighbor set of a concept.
func (s *Store) Neighbors(id core.ID) []core.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.neighbors[id]
	if !ok {
		return nil
	}
	result := make([]core.ID, 0, len(set))
	for neighbor := range set {
		result = append(result, neighbor)
	}
	return result
}

// Association returns the directed edge for the exact ordered pair.
func (s *Store) Association(source, target core.ID) (core.Association, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assoc, ok := s.associations[pairKey{source: source, target: target}]
	if !ok {
		return core.Association{}, false
	}
	return *assoc, true
}

// Edges returns copies of every association incident to the concept,
// outgoing and incoming. Traversal treats edges as bidirectional while
// keeping the stored direction and type intact.
func (s *Store) Edges(id core.ID) []core.Association {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.neighbors[id]
	if !ok {
		return nil
	}
	result := make([]core.Association, 0, len(set))
	for neighbor := range set {
		if assoc, ok := s.associations[pairKey{source: id, target: neighbor}]; ok {
			result = append(result, *assoc)
		}
		if assoc, ok := s.associations[pairKey{source: neighbor, target: id}]; ok {
			result = append(result, *assoc)
		}
	}
	return result
}

// LexicalCandidates returns ids of concepts whose content shares at
// least one indexed word with the given words.
func (s *Store) LexicalCandidates(words []string) []core.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[core.ID]struct{})
	for _, word := range words {
		for id := range s.lexical[word] {
			seen[id] = struct{}{}
		}
	}
	result := make([]core.ID, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	return result
}

// SimilarByVector scans all concept embeddings and returns ids whose
// similarity to the query vector meets the threshold, best first, up to
// limit results. The similarity function is supplied by the embedding
// provider.
func (s *Store) SimilarByVector(vector []float32, minSimilarity float32, limit int, similarity func(a, b []float32) float32) []Match {
	s.mu.RLock()
	var matches []Match
	for id, concept := range s.concepts {
		if len(concept.Vector) == 0 {
			continue
		}
		score := similarity(vector, concept.Vector)
		if score >= minSimilarity {
			matches = append(matches, Match{Id: id, Score: score})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matches, func(a, b Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Concepts returns a snapshot of every concept in the store.
func (s *Store) Concepts() []core.Concept {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]core.Concept, 0, len(s.concepts))
	for _, concept := range s.concepts {
		result = append(result, snapshotConcept(concept))
	}
	return result
}

// Associations returns a snapshot of every association in the store.
func (s *Store) Associations() []core.Association {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]core.Association, 0, len(s.associations))
	for _, assoc := range s.associations {
		result = append(result, *assoc)
	}
	return result
}

// Count returns the number of concepts and associations.
func (s *Store) Count() (concepts, associations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.concepts), len(s.associations)
}

// RestoreConcept inserts a persisted concept as-is, preserving its
// metadata, and rebuilds its lexical index entries. Used by load.
func (s *Store) RestoreConcept(concept core.Concept) error {
	if err := core.ValidateConcept(&concept); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.concepts[concept.Id]; ok && existing.Content != concept.Content {
		return fmt.Errorf("%w: %s", ErrConceptExists, concept.Id)
	}
	stored := concept
	s.concepts[concept.Id] = &stored
	s.indexWords(&stored)
	return nil
}

// RestoreAssociation inserts a persisted association as-is and rebuilds
// the neighbor adjacency. Both endpoints must already be restored.
func (s *Store) RestoreAssociation(assoc core.Association) error {
	if err := core.ValidateAssociation(&assoc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.concepts[assoc.SourceId]; !ok {
		return fmt.Errorf("%w: source %s", ErrUnknownConcept, assoc.SourceId)
	}
	if _, ok := s.concepts[assoc.TargetId]; !ok {
		return fmt.Errorf("%w: target %s", ErrUnknownConcept, assoc.TargetId)
	}

	stored := assoc
	s.associations[pairKey{source: assoc.SourceId, target: assoc.TargetId}] = &stored
	s.link(assoc.SourceId, assoc.TargetId)
	return nil
}

// link records both directions in the undirected neighbor index.
// Callers must hold the write lock.
func (s *Store) link(a, b core.ID) {
	if s.neighbors[a] == nil {
		s.neighbors[a] = make(map[core.ID]struct{})
	}
	if s.neighbors[b] == nil {
		s.neighbors[b] = make(map[core.ID]struct{})
	}
	s.neighbors[a][b] = struct{}{}
	s.neighbors[b][a] = struct{}{}
}

// indexWords adds the concept's content words to the lexical index.
// Callers must hold the write lock.
func (s *Store) indexWords(concept *core.Concept) {
	for _, word := range Tokenize(concept.Content) {
		if s.lexical[word] == nil {
			s.lexical[word] = make(map[core.ID]struct{})
		}
		s.lexical[word][concept.Id] = struct{}{}
	}
}

// snapshotConcept copies a concept with an atomic read of its access count.
func snapshotConcept(concept *core.Concept) core.Concept {
	copied := *concept
	copied.AccessCount = atomic.LoadUint64(&concept.AccessCount)
	return copied
}
