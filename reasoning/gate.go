package reasoning

import (
	"fmt"

	"github.com/poiesic/cognate/core"
)

// Profile is a named set of evidence thresholds an answer must meet.
type Profile struct {
	Name          string
	MinConfidence float32
	MinConsensus  float32
	MinPaths      int
}

var profiles = map[string]Profile{
	"strict":   {Name: "strict", MinConfidence: 0.7, MinConsensus: 0.6, MinPaths: 2},
	"moderate": {Name: "moderate", MinConfidence: 0.5, MinConsensus: 0.4, MinPaths: 1},
	"lenient":  {Name: "lenient", MinConfidence: 0.25, MinConsensus: 0.2, MinPaths: 1},
}

// DefaultProfile is the gate profile used when none is configured.
const DefaultProfile = "moderate"

// QualityGate decides whether an aggregated answer carries enough
// evidence to be returned as-is. A failing answer is replaced by the
// gate's recommendation rather than surfaced with low confidence.
type QualityGate struct {
	profile Profile
}

// NewQualityGate creates a gate for a named profile: "strict",
// "moderate", or "lenient".
func NewQualityGate(name string) (*QualityGate, error) {
	profile, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return &QualityGate{profile: profile}, nil
}

// Profile returns the gate's profile name.
func (g *QualityGate) Profile() string {
	return g.profile.Name
}

// Assess checks an answer against the gate's profile. The verdict
// carries a recommendation string that replaces the answer text when
// the assessment fails.
func (g *QualityGate) Assess(answer *core.Answer) core.QualityAssessment {
	p := g.profile
	assessment := core.QualityAssessment{Profile: p.Name}

	switch {
	case answer == nil || len(answer.Paths) == 0:
		assessment.Recommendation = "insufficient evidence: no supporting reasoning paths were found"
	case len(answer.Paths) < p.MinPaths:
		assessment.Recommendation = fmt.Sprintf(
			"insufficient evidence: %d supporting path(s), profile %q requires %d",
			len(answer.Paths), p.Name, p.MinPaths)
	case answer.Confidence < p.MinConfidence:
		assessment.Recommendation = fmt.Sprintf(
			"insufficient evidence: confidence %.2f below the %q threshold %.2f",
			answer.Confidence, p.Name, p.MinConfidence)
	case answer.ConsensusStrength < p.MinConsensus:
		assessment.Recommendation = fmt.Sprintf(
			"insufficient evidence: consensus %.2f below the %q threshold %.2f",
			answer.ConsensusStrength, p.Name, p.MinConsensus)
	default:
		assessment.Passed = true
	}
	return assessment
}
