// Package storage defines the persistence contracts for the concept
// graph. The graph lives in memory; a GraphRepository persists
// snapshots of it, encoded as protocol frames, plus the embedding
// provider's fitted state so loaded vectors stay comparable with new
// ones. Backends live in subpackages.
package storage
