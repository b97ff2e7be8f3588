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
	"math"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/cognate/core"
	"github.com/poiesic/cognate/graph"
)

const (
	defaultMaxDepth          = 5
	defaultNumPaths          = 3
	defaultMinEdgeConfidence = 0.2

	// hopDiscount penalizes longer inference chains: a path's confidence
	// is the product of its edge confidences times hopDiscount^(hops-1).
	hopDiscount = 0.9

	// pathBudget bounds how many candidate paths a search may collect
	// before sorting, as a multiple of the requested path count.
	pathBudget = 16
)

// Filter restricts which concepts and edges a search may traverse.
// The zero value admits everything.
type Filter struct {
	// Types restricts traversal to the listed association types.
	Types []core.AssociationType

	// Category restricts traversal to concepts of one category.
	Category string

	// After and Before bound concept creation time. A zero time means
	// the bound is open on that side.
	After  time.Time
	Before time.Time

	// MinEdgeConfidence prunes edges below this confidence. Zero applies
	// the search default.
	MinEdgeConfidence float32
}

func (f *Filter) allowsEdge(assoc core.Association, floor float32) bool {
	min := floor
	if f != nil && f.MinEdgeConfidence > 0 {
		min = f.MinEdgeConfidence
	}
	if assoc.Confidence < min {
		return false
	}
	if f == nil || len(f.Types) == 0 {
		return true
	}
	return slices.Contains(f.Types, assoc.Type)
}

// Allows reports whether the filter admits a concept.
func (f *Filter) Allows(concept core.Concept) bool {
	return f.allowsConcept(concept)
}

func (f *Filter) allowsConcept(concept core.Concept) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && concept.Category != f.Category {
		return false
	}
	if !f.After.IsZero() && concept.CreatedAt.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && concept.CreatedAt.After(f.Before) {
		return false
	}
	return true
}

// Contradiction is a pair of concepts that occupy the same graph
// neighborhood while expressing dissimilar or negated content.
type Contradiction struct {
	A       core.ID
	B       core.ID
	Overlap float32
	Reason  string
}

// PathFinder runs bounded-depth searches over the concept graph.
type PathFinder struct {
	store  *graph.Store
	logger *slog.Logger
}

// PathFinderOption configures a PathFinder.
type PathFinderOption func(*PathFinder)

// WithPathFinderLogger sets a custom logger.
// Default is slog.Default().
func WithPathFinderLogger(logger *slog.Logger) PathFinderOption {
	return func(f *PathFinder) {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger
	}
}

// NewPathFinder creates a path finder over the given store.
func NewPathFinder(store *graph.Store, opts ...PathFinderOption) (*PathFinder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	f := &PathFinder{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// searchSpec parameterizes one graph search.
type searchSpec struct {
	starts   []core.ID
	targets  map[core.ID]struct{}
	maxDepth int
	budget   int
	filter   *Filter
	// directed restricts traversal to the stored edge direction, used
	// by temporal and causal chains where direction carries meaning.
	directed bool
	// onPath receives each discovered path; returning false stops the
	// search. Used by streaming queries.
	onPath func(core.ReasoningPath) bool
}

// FindPaths searches from the start concepts for simple paths of at
// most maxDepth hops, returning up to numPaths paths ordered by
// confidence, then fewer hops, then better-reinforced terminals. Empty
// targets means any reachable concept terminates a path. Every concept
// on a returned path has its access count incremented.
func (f *PathFinder) FindPaths(ctx context.Context, starts, targets []core.ID, maxDepth, numPaths int, filter *Filter) []core.ReasoningPath {
	return f.findPaths(ctx, starts, targets, maxDepth, numPaths, filter, false, nil)
}

// FindTemporalChain follows temporal edges in their stored direction
// from the start concept, returning the best ordered chains. The filter
// bounds, when set, restrict chain members by creation time.
func (f *PathFinder) FindTemporalChain(ctx context.Context, start core.ID, maxDepth, numPaths int, after, before time.Time) []core.ReasoningPath {
	filter := &Filter{
		Types:  []core.AssociationType{core.AssociationTemporal},
		After:  after,
		Before: before,
	}
	return f.findChains(ctx, start, maxDepth, numPaths, filter)
}

// FindCausalChain follows causal edges in their stored direction from
// the start concept, returning cause-to-effect chains.
func (f *PathFinder) FindCausalChain(ctx context.Context, start core.ID, maxDepth, numPaths int) []core.ReasoningPath {
	filter := &Filter{Types: []core.AssociationType{core.AssociationCausal}}
	return f.findChains(ctx, start, maxDepth, numPaths, filter)
}

// findChains runs a directed single-type search and prefers longer
// chains over higher confidence, since a chain query asks for the full
// ordering rather than the safest inference.
func (f *PathFinder) findChains(ctx context.Context, start core.ID, maxDepth, numPaths int, filter *Filter) []core.ReasoningPath {
	paths := f.findPaths(ctx, []core.ID{start}, nil, maxDepth, 0, filter, true, nil)

	slices.SortFunc(paths, func(a, b core.ReasoningPath) int {
		if a.Hops() != b.Hops() {
			return b.Hops() - a.Hops()
		}
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
	if numPaths <= 0 {
		numPaths = defaultNumPaths
	}
	if len(paths) > numPaths {
		paths = paths[:numPaths]
	}
	return paths
}

// FindContradictions scans for concept pairs whose graph neighborhoods
// strongly overlap while their contents diverge or negate each other.
// Such pairs occupy the same semantic role in the graph yet disagree.
func (f *PathFinder) FindContradictions(ctx context.Context, minOverlap float32, limit int) []Contradiction {
	if minOverlap <= 0 {
		minOverlap = 0.5
	}
	if limit <= 0 {
		limit = 10
	}

	concepts := f.store.Concepts()
	neighborSets := make(map[core.ID]map[core.ID]struct{}, len(concepts))
	for _, concept := range concepts {
		set := make(map[core.ID]struct{})
		for _, n := range f.store.Neighbors(concept.Id) {
			set[n] = struct{}{}
		}
		if len(set) > 0 {
			neighborSets[concept.Id] = set
		}
	}

	// Candidate pairs share at least two neighbors.
	shared := make(map[[2]core.ID]int)
	for _, set := range neighborSets {
		members := make([]core.ID, 0, len(set))
		for id := range set {
			members = append(members, id)
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				a, b := members[i], members[j]
				if b.String() < a.String() {
					a, b = b, a
				}
				shared[[2]core.ID{a, b}]++
			}
		}
	}

	contents := make(map[core.ID]string, len(concepts))
	for _, concept := range concepts {
		contents[concept.Id] = core.NormalizeContent(concept.Content)
	}

	var found []Contradiction
	for pair, count := range shared {
		if ctx.Err() != nil {
			break
		}
		if count < 2 {
			continue
		}
		a, b := pair[0], pair[1]
		if _, ok := f.store.Association(a, b); ok {
			continue
		}
		if _, ok := f.store.Association(b, a); ok {
			continue
		}
		overlap := neighborJaccard(neighborSets[a], neighborSets[b])
		if overlap < minOverlap {
			continue
		}

		reason := ""
		if negationMismatch(contents[a], contents[b]) {
			reason = "negated restatement in a shared neighborhood"
		} else if tokenOverlap(contents[a], contents[b]) < 0.25 {
			reason = "dissimilar contents occupying the same neighborhood"
		}
		if reason == "" {
			continue
		}
		found = append(found, Contradiction{A: a, B: b, Overlap: overlap, Reason: reason})
	}

	slices.SortFunc(found, func(x, y Contradiction) int {
		switch {
		case x.Overlap > y.Overlap:
			return -1
		case x.Overlap < y.Overlap:
			return 1
		}
		return strings.Compare(x.A.String(), y.A.String())
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found
}

// scoredPath carries the tie-break key alongside the path.
type scoredPath struct {
	path           core.ReasoningPath
	terminalAccess uint64
}

func (f *PathFinder) findPaths(ctx context.Context, starts, targets []core.ID, maxDepth, numPaths int, filter *Filter, directed bool, onPath func(core.ReasoningPath) bool) []core.ReasoningPath {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	wanted := numPaths
	if wanted <= 0 {
		wanted = defaultNumPaths
	}

	spec := searchSpec{
		starts:   starts,
		maxDepth: maxDepth,
		budget:   wanted * pathBudget,
		filter:   filter,
		directed: directed,
		onPath:   onPath,
	}
	if len(targets) > 0 {
		spec.targets = make(map[core.ID]struct{}, len(targets))
		for _, id := range targets {
			spec.targets[id] = struct{}{}
		}
	}

	collected := f.walk(ctx, spec)

	slices.SortFunc(collected, func(a, b scoredPath) int {
		switch {
		case a.path.Confidence > b.path.Confidence:
			return -1
		case a.path.Confidence < b.path.Confidence:
			return 1
		}
		if a.path.Hops() != b.path.Hops() {
			return a.path.Hops() - b.path.Hops()
		}
		switch {
		case a.terminalAccess > b.terminalAccess:
			return -1
		case a.terminalAccess < b.terminalAccess:
			return 1
		}
		return 0
	})

	if numPaths > 0 && len(collected) > numPaths {
		collected = collected[:numPaths]
	}

	paths := make([]core.ReasoningPath, 0, len(collected))
	touched := make(map[core.ID]struct{})
	for _, sp := range collected {
		for _, id := range sp.path.Concepts {
			if _, ok := touched[id]; ok {
				continue
			}
			touched[id] = struct{}{}
			f.store.Touch(id)
		}
		paths = append(paths, sp.path)
	}
	return paths
}

// walk enumerates simple paths by depth-first search. Edges are
// undirected for general search and directed for chains; revisiting a
// concept within one path is never allowed.
func (f *PathFinder) walk(ctx context.Context, spec searchSpec) []scoredPath {
	var collected []scoredPath
	seen := make(map[string]int)

	record := func(concepts []core.ID, types []core.AssociationType, edgeProduct float32) bool {
		path := core.ReasoningPath{
			Concepts:   slices.Clone(concepts),
			Types:      slices.Clone(types),
			Confidence: pathConfidence(edgeProduct, len(types)),
		}
		key := pathKey(path.Concepts)
		if at, dup := seen[key]; dup {
			// The same concept sequence can be reached through either
			// stored direction of a pair; keep the better-scoring edge.
			if path.Confidence > collected[at].path.Confidence {
				path.Explanation = f.explain(path)
				terminal, _ := f.store.Get(path.Terminal())
				collected[at] = scoredPath{path: path, terminalAccess: terminal.AccessCount}
			}
			return true
		}
		seen[key] = len(collected)
		path.Explanation = f.explain(path)

		terminal, _ := f.store.Get(path.Terminal())
		collected = append(collected, scoredPath{path: path, terminalAccess: terminal.AccessCount})

		if spec.onPath != nil && !spec.onPath(path) {
			return false
		}
		return len(collected) < spec.budget
	}

	var dfs func(current core.ID, concepts []core.ID, types []core.AssociationType, edgeProduct float32, visited map[core.ID]struct{}) bool
	dfs = func(current core.ID, concepts []core.ID, types []core.AssociationType, edgeProduct float32, visited map[core.ID]struct{}) bool {
		if ctx.Err() != nil {
			return false
		}
		if len(types) >= spec.maxDepth {
			return true
		}

		for _, assoc := range f.store.Edges(current) {
			next := assoc.TargetId
			if next == current {
				if spec.directed {
					continue
				}
				next = assoc.SourceId
			}
			if spec.directed && assoc.SourceId != current {
				continue
			}
			if _, ok := visited[next]; ok {
				continue
			}
			if !spec.filter.allowsEdge(assoc, defaultMinEdgeConfidence) {
				continue
			}
			concept, ok := f.store.Get(next)
			if !ok || !spec.filter.allowsConcept(concept) {
				continue
			}

			visited[next] = struct{}{}
			concepts = append(concepts, next)
			types = append(types, assoc.Type)
			product := edgeProduct * assoc.Confidence

			terminalHit := spec.targets == nil
			if _, ok := spec.targets[next]; ok {
				terminalHit = true
			}
			proceed := true
			if terminalHit {
				proceed = record(concepts, types, product)
			}
			if proceed {
				proceed = dfs(next, concepts, types, product, visited)
			}

			delete(visited, next)
			concepts = concepts[:len(concepts)-1]
			types = types[:len(types)-1]
			if !proceed {
				return false
			}
		}
		return true
	}

	for _, start := range spec.starts {
		concept, ok := f.store.Get(start)
		if !ok || !spec.filter.allowsConcept(concept) {
			continue
		}
		visited := map[core.ID]struct{}{start: {}}
		if !dfs(start, []core.ID{start}, nil, 1.0, visited) {
			break
		}
	}
	return collected
}

// explain renders a path as its concept contents joined by typed arrows.
func (f *PathFinder) explain(path core.ReasoningPath) string {
	var b strings.Builder
	for i, id := range path.Concepts {
		if i > 0 {
			b.WriteString(" --[")
			b.WriteString(path.Types[i-1].String())
			b.WriteString("]--> ")
		}
		if concept, ok := f.store.Get(id); ok {
			b.WriteString(concept.Content)
		} else {
			b.WriteString(id.String())
		}
	}
	return b.String()
}

// pathConfidence combines edge confidences with the hop discount.
func pathConfidence(edgeProduct float32, hops int) float32 {
	if hops < 1 {
		return edgeProduct
	}
	discount := math.Pow(hopDiscount, float64(hops-1))
	return edgeProduct * float32(discount)
}

func pathKey(concepts []core.ID) string {
	var b strings.Builder
	b.Grow(len(concepts) * 32)
	for _, id := range concepts {
		b.WriteString(id.String())
	}
	return b.String()
}

func neighborJaccard(a, b map[core.ID]struct{}) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var shared int
	for id := range a {
		if _, ok := b[id]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float32(shared) / float32(union)
}

func tokenOverlap(a, b string) float32 {
	ta, tb := graph.Tokenize(a), graph.Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(ta))
	for _, w := range ta {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tb))
	for _, w := range tb {
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

var negationWords = []string{"not", "no", "never", "cannot", "can't", "isn't", "doesn't", "won't"}

// negationMismatch reports whether exactly one of the two normalized
// contents carries a negation marker.
func negationMismatch(a, b string) bool {
	return hasNegation(a) != hasNegation(b)
}

func hasNegation(content string) bool {
	for _, word := range strings.Fields(content) {
		if slices.Contains(negationWords, word) {
			return true
		}
	}
	return false
}
