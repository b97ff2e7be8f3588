package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a 128-bit identifier for domain entities, deterministically
// derived from normalized content so that re-learning identical content
// resolves to the same concept.
type ID [16]byte

// ZeroID is the all-zero ID, used to mark absent endpoints.
var ZeroID ID

// IDFromContent generates a deterministic ID from text content using
// BLAKE2b hashing over the normalized form. Identical content always
// produces an identical ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(NormalizeContent(text)))
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}

// String returns the hex representation of the ID.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool {
	return id == ZeroID
}

// NormalizeContent canonicalizes text for identity purposes: lowercase,
// whitespace collapsed to single spaces, trailing sentence punctuation
// removed. The stored Concept keeps the original content.
func NormalizeContent(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return strings.TrimRight(normalized, ".!? ")
}

// AssociationType classifies the relationship an association expresses.
type AssociationType byte

const (
	// AssociationSemantic is a general relatedness edge.
	AssociationSemantic AssociationType = iota + 1
	// AssociationCausal links a cause to its effect.
	AssociationCausal
	// AssociationTemporal orders concepts in time.
	AssociationTemporal
	// AssociationHierarchical links a concept to its broader kind ("is-a").
	AssociationHierarchical
	// AssociationCompositional links a whole to its parts.
	AssociationCompositional
)

// String returns the lowercase name of the association type.
func (t AssociationType) String() string {
	switch t {
	case AssociationSemantic:
		return "semantic"
	case AssociationCausal:
		return "causal"
	case AssociationTemporal:
		return "temporal"
	case AssociationHierarchical:
		return "hierarchical"
	case AssociationCompositional:
		return "compositional"
	default:
		return "unknown"
	}
}

// Concept is a learned unit of content with reinforcement metadata and
// an optional embedding vector. Concepts are mutated only through
// learning, reinforcement, or access-count increments during traversal.
type Concept struct {
	Id          ID
	Content     string
	Strength    float32
	Confidence  float32
	AccessCount uint64 // incremented atomically during traversal
	CreatedAt   time.Time
	ModifiedAt  time.Time
	Source      string
	Category    string
	Vector      []float32
}

// Association is a typed, directed, weighted edge between two concepts.
// It is keyed by the ordered (SourceId, TargetId) pair; re-discovering
// the same pair strengthens the existing edge.
type Association struct {
	SourceId   ID
	TargetId   ID
	Type       AssociationType
	Confidence float32
	Weight     float32
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// ReasoningPath is an ordered chain of concepts connected by typed
// associations, with an aggregate confidence and a human-readable
// explanation of the traversal.
type ReasoningPath struct {
	Concepts    []ID
	Types       []AssociationType
	Confidence  float32
	Explanation string
}

// Terminal returns the final concept of the path, or ZeroID for an
// empty path.
func (p *ReasoningPath) Terminal() ID {
	if len(p.Concepts) == 0 {
		return ZeroID
	}
	return p.Concepts[len(p.Concepts)-1]
}

// Hops returns the number of edges the path traverses.
func (p *ReasoningPath) Hops() int {
	return len(p.Types)
}

// Answer is the aggregated result of a reasoning query.
type Answer struct {
	Primary           string
	Confidence        float32
	ConsensusStrength float32
	Paths             []ReasoningPath
	ConceptsAccessed  int
	Alternatives      []string
}

// QualityAssessment is the Quality Gate's verdict on an Answer.
type QualityAssessment struct {
	Passed         bool
	Profile        string
	Recommendation string
}
