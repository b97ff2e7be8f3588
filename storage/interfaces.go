package storage

import (
	"context"

	"github.com/poiesic/cognate/core"
)

// GraphRepository persists concept graph snapshots. Implementations
// must be safe for concurrent use.
type GraphRepository interface {
	// SaveGraph persists every given concept and association,
	// overwriting records with the same identity. Concepts are never
	// deleted by the engine, so save is overwrite-only.
	SaveGraph(ctx context.Context, concepts []core.Concept, associations []core.Association) error

	// LoadGraph reads back every persisted concept and association.
	// A corrupt record fails the whole load; a partially decoded graph
	// would silently violate referential integrity.
	LoadGraph(ctx context.Context) ([]core.Concept, []core.Association, error)

	// SaveProviderState persists the embedding provider's opaque fitted
	// state alongside the graph.
	SaveProviderState(ctx context.Context, state []byte) error

	// LoadProviderState reads the provider state back. Returns
	// ErrNotFound when none was saved.
	LoadProviderState(ctx context.Context) ([]byte, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
