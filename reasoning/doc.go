// Package reasoning answers queries by traversing the concept graph.
//
// The PathFinder runs bounded-depth searches producing scored reasoning
// paths, with specializations for temporal chains, causal chains, and
// contradiction detection. The Aggregator resolves a query to start
// concepts, collects multiple paths, clusters them into a consensus
// answer (multi-path plan aggregation), and applies a Quality Gate that
// rejects low-evidence answers instead of returning them. Streaming
// queries emit progress events over a channel; closing the context
// cancels further path expansion.
//
// Every call is a stateless bounded search over the current graph
// snapshot; atomic access-count increments on visited concepts are the
// only side effect.
package reasoning
