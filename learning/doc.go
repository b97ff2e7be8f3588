// Package learning turns new content into graph structure.
//
// The Learner upserts a concept for each learned text, extracts typed
// relations from textual cues (creating concepts for the related
// phrases), attaches embeddings from the configured provider, and
// discovers additional related concepts through the lexical index and
// vector similarity. Batch learning creates all concepts first so
// associations can form within the batch, computes embeddings in one
// provider call, and runs extraction concurrently on a worker pool.
// Per-item extraction failures are logged and counted, never aborting
// the batch.
//
// Association-type classification is a pluggable policy behind the
// Classifier interface; the default CueClassifier is keyword-based and
// replaceable at construction time.
package learning
