// Package testutil provides testing utilities for fastmks.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random point sets and computing
// exact max-kernel ground truth.
//
// # Random Point Sets
//
//	rng := testutil.NewRNG(seed)
//	refs := rng.Randn(5, 1000)           // standard normal columns
//	queries := rng.Randu(5, 100)         // uniform [0, 1) columns
//	sparse := rng.SprandU(10, 100, 0.3)  // sparse uniform, 30% density
//
// # Exact Search (Ground Truth)
//
//	indices, values := testutil.ExactTopK(kern, refs, query, k)
package testutil
