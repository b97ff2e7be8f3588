package reasoning

import "errors"

var (
	// ErrStoreRequired is returned when a graph store is not provided.
	ErrStoreRequired = errors.New("graph store required")

	// ErrProviderRequired is returned when an embedding provider is not provided.
	ErrProviderRequired = errors.New("embedding provider required")

	// ErrUnknownProfile is returned for an unrecognized quality profile name.
	ErrUnknownProfile = errors.New("unknown quality profile")
)
