package hashing

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/cognate/ai"
)

// MarshalState serializes the provider's entire fitted state: version,
// dimension, document count, and every (term, document frequency) pair.
// Persisting only the vocabulary would discard the weighting
// information that keeps similarity scores stable, so the full
// frequency table is always included.
func (p *Provider) MarshalState() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	terms := p.sortedTerms()

	size := raw.Byte.Size(stateVersion)
	size += varint.Uint64.Size(uint64(p.dimension))
	size += varint.Uint64.Size(p.docCount)
	size += varint.Uint64.Size(uint64(len(terms)))
	for _, term := range terms {
		size += ord.String.Size(term)
		size += varint.Uint64.Size(p.docFreq[term])
	}

	bs := make([]byte, size)
	n := raw.Byte.Marshal(stateVersion, bs)
	n += varint.Uint64.Marshal(uint64(p.dimension), bs[n:])
	n += varint.Uint64.Marshal(p.docCount, bs[n:])
	n += varint.Uint64.Marshal(uint64(len(terms)), bs[n:])
	for _, term := range terms {
		n += ord.String.Marshal(term, bs[n:])
		n += varint.Uint64.Marshal(p.docFreq[term], bs[n:])
	}
	return bs, nil
}

// UnmarshalState restores fitted state produced by MarshalState,
// replacing any current state. The persisted dimension must match the
// provider's configured dimension.
func (p *Provider) UnmarshalState(data []byte) error {
	version, n, err := raw.Byte.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrInvalidState, err)
	}
	if version != stateVersion {
		return fmt.Errorf("%w: unsupported version %d", ai.ErrInvalidState, version)
	}

	dimension, used, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrInvalidState, err)
	}
	n += used

	docCount, used, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrInvalidState, err)
	}
	n += used

	count, used, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrInvalidState, err)
	}
	n += used

	docFreq := make(map[string]uint64, count)
	for i := uint64(0); i < count; i++ {
		term, used, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return fmt.Errorf("%w: term %d: %w", ai.ErrInvalidState, i, err)
		}
		n += used

		freq, used, err := varint.Uint64.Unmarshal(data[n:])
		if err != nil {
			return fmt.Errorf("%w: term %d: %w", ai.ErrInvalidState, i, err)
		}
		n += used

		docFreq[term] = freq
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if int(dimension) != p.dimension {
		return fmt.Errorf("%w: state has dimension %d, provider configured for %d",
			ai.ErrDimensionMismatch, dimension, p.dimension)
	}
	p.docCount = docCount
	p.docFreq = docFreq
	return nil
}
