// Package testutil provides test helpers for cvnet.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG, generators for sparse composition
// vectors and dense reference implementations of every similarity method.
//
// # Random Composition Vectors
//
//	rng := testutil.NewRNG(seed)
//	genome := rng.SparseVectors(genes, dims, keySpace, false)
//
// # Dense Reference
//
//	ref := testutil.DenseSimilarity("Cosine", genomeA, genomeB)
//	// ref.At(i, j) is the similarity of gene i of A and gene j of B.
package testutil
