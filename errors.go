package cognate

import "errors"

var (
	// ErrNoRepository is returned by Save and Load when the engine was
	// created without a persistence backend.
	ErrNoRepository = errors.New("no graph repository configured")
)
