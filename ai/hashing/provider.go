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


// Package hashing provides a lightweight frequency-based embedding
// provider used as a fallback when no semantic model is available.
//
// Vectors are signed feature-hashed TF-IDF projections into a fixed
// dimension. The provider fits incrementally: every encoded text
// updates document frequencies, so similarity improves as the corpus
// grows. The entire fitted state (document count and per-term document
// frequencies) can be persisted and restored, keeping similarity scores
// stable across restarts.
package hashing

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/poiesic/cognate/ai"
)

const (
	// DefaultDimension is the vector width used when none is configured.
	DefaultDimension = 256

	stateVersion = 1
)

// Provider implements ai.Provider with incrementally-fit hashed TF-IDF
// vectors. It also implements ai.StatefulProvider.
type Provider struct {
	mu        sync.RWMutex
	dimension int
	docCount  uint64
	docFreq   map[string]uint64
}

var _ ai.StatefulProvider = (*Provider)(nil)

// New creates a hashing provider with the given vector width.
func New(dimension int) (*Provider, error) {
	if dimension <= 0 {
		return nil, errors.New("hashing: dimension must be positive")
	}
	return &Provider{
		dimension: dimension,
		docFreq:   make(map[string]uint64),
	}, nil
}

// Name identifies the provider implementation.
func (p *Provider) Name() string {
	return "hashing-tfidf"
}

// Dimension returns the fixed vector width.
func (p *Provider) Dimension() int {
	return p.dimension
}

// Similarity scores two vectors by clamped cosine similarity.
func (p *Provider) Similarity(a, b []float32) float32 {
	return ai.Cosine(a, b)
}

// Encode fits the provider on the given texts and returns their
// vectors. Fitting and encoding happen in one pass so that a freshly
// learned concept immediately contributes to term statistics.
func (p *Provider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	for _, text := range texts {
		p.fit(text)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = p.encode(text)
	}
	p.mu.Unlock()

	return vectors, nil
}

// fit updates document frequencies for one text.
// Callers must hold the write lock.
func (p *Provider) fit(text string) {
	seen := make(map[string]struct{})
	for _, term := range terms(text) {
		seen[term] = struct{}{}
	}
	for term := range seen {
		p.docFreq[term]++
	}
	p.docCount++
}

// encode projects one text into the hashed TF-IDF space.
// Callers must hold at least the read lock.
func (p *Provider) encode(text string) []float32 {
	termFreq := make(map[string]float64)
	for _, term := range terms(text) {
		termFreq[term]++
	}

	vector := make([]float32, p.dimension)
	for term, tf := range termFreq {
		df := p.docFreq[term]
		idf := math.Log(1 + float64(1+p.docCount)/float64(1+df))
		weight := tf * idf

		bucket, sign := hashTerm(term, p.dimension)
		vector[bucket] += float32(weight) * sign
	}

	// L2 normalize so dot products are cosine similarities
	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}

// hashTerm maps a term to a bucket and a sign. Signed hashing keeps the
// expected inner-product contribution of colliding terms near zero.
func hashTerm(term string, dimension int) (int, float32) {
	h := fnv.New32a()
	h.Write([]byte(term))
	sum := h.Sum32()

	bucket := int(sum % uint32(dimension))
	sign := float32(1)
	if sum&0x80000000 != 0 {
		sign = -1
	}
	return bucket, sign
}

// terms tokenizes text for frequency statistics: lowercased words with
// surrounding punctuation trimmed.
func terms(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	result := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.Trim(word, ".,!?;:'\"-()[]{}")
		if cleaned != "" {
			result = append(result, cleaned)
		}
	}
	return result
}

// sortedTerms returns the fitted vocabulary in deterministic order.
// Callers must hold at least the read lock.
func (p *Provider) sortedTerms() []string {
	result := make([]string, 0, len(p.docFreq))
	for term := range p.docFreq {
		result = append(result, term)
	}
	sort.Strings(result)
	return result
}

// DocumentCount returns how many texts the provider has been fit on.
func (p *Provider) DocumentCount() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.docCount
}
