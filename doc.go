// Package fastmks provides exact fast max-kernel search for Go.
//
// Given a set of reference points and a positive-semidefinite kernel,
// fastmks finds for every query point the k reference points maximizing
// the kernel value, without computing the full kernel matrix. Three
// execution strategies are provided and always return identical results:
//
//   - Naive: all-pairs evaluation, the O(n*m) baseline
//   - Single-tree: per-query branch-and-bound over a reference cover tree
//   - Dual-tree: simultaneous traversal of a query tree and the reference
//     tree, the default and the fastest for batched queries
//
// The tree is built under the metric induced by the kernel via the
// polarization identity, so any positive-semidefinite kernel works with
// the same tree code. Dense and sparse point sets are interchangeable and
// produce identical rankings.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	refs, _ := matrix.NewDense(5, 1000, data) // 5-dimensional, 1000 points
//	mks, _ := fastmks.New(refs, kernel.Linear{})
//
//	results, _ := mks.Search(ctx, 10) // top 10 per reference point
//	idx, val := results.Column(0)     // best matches of query 0
//
// Search against a separate query set:
//
//	results, _ := mks.SearchFor(ctx, queries, 10)
//
// # Modes and Options
//
// Construction and search behavior is configured with functional options:
//
//	mks, _ := fastmks.New(refs, kernel.Polynomial{Degree: 3},
//	    fastmks.WithMode(fastmks.ModeSingle),
//	    fastmks.WithWorkers(8),
//	    fastmks.WithFilter(allowed), // roaring bitmap of reference indices
//	)
//
// # Model Persistence
//
// A built index can be saved and reloaded without rebuilding the tree:
//
//	_ = mks.SaveModel(&buf)
//	loaded, _ := fastmks.LoadModel(&buf, kernel.Polynomial{Degree: 3})
//
// Models can also be stored through the blobstore package (local files,
// S3, MinIO), with selectable compression via the codec package.
package fastmks
