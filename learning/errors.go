package learning

import "errors"

var (
	// ErrStoreRequired is returned when a graph store is not provided.
	ErrStoreRequired = errors.New("graph store required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrClassifierRequired is returned when a nil classifier is configured.
	ErrClassifierRequired = errors.New("classifier required")
)
