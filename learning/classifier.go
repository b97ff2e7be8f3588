package learning

import (
	"strings"

	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/graph"
)

// Relation is a typed, directed relationship extracted from one text.
type Relation struct {
	Subject    string
	Object     string
	Type       core.AssociationType
	Confidence float32
}

// Classifier decides association types. It is a replaceable policy: the
// default keyword tables are neither complete nor authoritative, and
// callers may substitute their own implementation at construction time.
type Classifier interface {
	// ExtractRelations finds typed relations explicitly expressed in the
	// content, such as "a dog is a mammal" or "heat causes expansion".
	ExtractRelations(content string) []Relation

	// Classify proposes an association type and confidence for two
	// related contents with no explicit connective between them.
	Classify(a, b string) (core.AssociationType, float32)
}

// cue is a connective phrase mapping to an association type. Reversed
// cues express the relation object-first ("x because y" means y causes x).
type cue struct {
	phrase     string
	assocType  core.AssociationType
	confidence float32
	reversed   bool
}

// CueClassifier is the default keyword-based classification policy.
type CueClassifier struct {
	cues []cue
}

var _ Classifier = (*CueClassifier)(nil)

// NewCueClassifier creates the default cue tables. Longer, more
// specific phrases come first so they win over their substrings.
func NewCueClassifier() *CueClassifier {
	return &CueClassifier{
		cues: []cue{
			{" is a kind of ", core.AssociationHierarchical, 0.85, false},
			{" is a type of ", core.AssociationHierarchical, 0.85, false},
			{" is part of ", core.AssociationCompositional, 0.75, false},
			{" is made of ", core.AssociationCompositional, 0.7, false},
			{" is composed of ", core.AssociationCompositional, 0.7, false},
			{" consists of ", core.AssociationCompositional, 0.7, false},
			{" contains ", core.AssociationCompositional, 0.65, false},
			{" results in ", core.AssociationCausal, 0.8, false},
			{" leads to ", core.AssociationCausal, 0.8, false},
			{" causes ", core.AssociationCausal, 0.8, false},
			{" because of ", core.AssociationCausal, 0.75, true},
			{" because ", core.AssociationCausal, 0.75, true},
			{" therefore ", core.AssociationCausal, 0.7, false},
			{" happens before ", core.AssociationTemporal, 0.8, false},
			{" happens after ", core.AssociationTemporal, 0.8, true},
			{" comes before ", core.AssociationTemporal, 0.8, false},
			{" comes after ", core.AssociationTemporal, 0.8, true},
			{" before ", core.AssociationTemporal, 0.7, false},
			{" after ", core.AssociationTemporal, 0.7, true},
			{" and then ", core.AssociationTemporal, 0.7, false},
			{" then ", core.AssociationTemporal, 0.65, false},
			{" until ", core.AssociationTemporal, 0.65, false},
			{" is an ", core.AssociationHierarchical, 0.85, false},
			{" is a ", core.AssociationHierarchical, 0.85, false},
			{" are ", core.AssociationHierarchical, 0.7, false},
		},
	}
}

// ExtractRelations scans the normalized content for cue phrases and
// returns one relation per matched cue, subject and object cleaned of
// stop words. A cue splitting the content on an empty side is skipped.
func (c *CueClassifier) ExtractRelations(content string) []Relation {
	normalized := " " + core.NormalizeContent(content) + " "

	var relations []Relation
	for _, cue := range c.cues {
		before, after, found := strings.Cut(normalized, cue.phrase)
		if !found {
			continue
		}
		subject := cleanPhrase(before)
		object := cleanPhrase(after)
		if subject == "" || object == "" {
			continue
		}
		if cue.reversed {
			subject, object = object, subject
		}
		relations = append(relations, Relation{
			Subject:    subject,
			Object:     object,
			Type:       cue.assocType,
			Confidence: cue.confidence,
		})
		// One relation per content keeps extraction predictable; the
		// first (most specific) cue wins.
		break
	}
	return relations
}

// Classify scores two contents with no explicit connective: always
// semantic, with confidence growing with lexical overlap.
func (c *CueClassifier) Classify(a, b string) (core.AssociationType, float32) {
	overlap := jaccard(graph.Tokenize(a), graph.Tokenize(b))
	return core.AssociationSemantic, 0.5 + 0.3*overlap
}

// cleanPhrase reduces a cue side to its content words.
func cleanPhrase(text string) string {
	return strings.Join(graph.Tokenize(text), " ")
}

// jaccard computes set overlap of two token lists in [0, 1].
func jaccard(a, b []string) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, w := range a {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, w := range b {
		setB[w] = struct{}{}
	}

	var shared int
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float32(shared) / float32(union)
}
