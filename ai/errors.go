package ai

import "errors"

var (
	// ErrProviderUnavailable indicates the embedding backend is
	// unreachable. Fatal at engine startup.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrDimensionMismatch indicates the provider's declared dimension
	// does not match the configured vector width. Fatal at engine
	// startup, since all stored vectors assume one fixed width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidState indicates a persisted provider state blob could
	// not be decoded.
	ErrInvalidState = errors.New("invalid provider state")
)
