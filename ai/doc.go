// Package ai defines the embedding provider capability interface used
// by the knowledge engine, and shared vector math.
//
// A Provider turns text into fixed-dimension vectors. Implementations
// are selected at construction time: a remote semantic model behind an
// OpenAI-compatible API (ai/openai), an incrementally-fit
// frequency-based fallback (ai/hashing), and test doubles (ai/mock).
// All implementations must be thread-safe for concurrent use.
package ai
