// Package graph owns the in-memory concept graph: concepts in an
// id-addressed arena, directed associations keyed by their ordered
// endpoint pair, and two derived indices (a lexical inverted index and
// an undirected neighbor adjacency).
//
// The store follows single-writer/multiple-reader discipline: a coarse
// write lock guards every mutation so the derived indices are always
// consistent with the association map, while any number of readers may
// traverse concurrently. Access-count increments during traversal are
// atomic and take no lock.
package graph
