package fastmks

import (
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/fastmks/covertree"
	"github.com/hupe1980/fastmks/internal/candidates"
	"github.com/hupe1980/fastmks/kernel"
	"github.com/hupe1980/fastmks/matrix"
)

// searchContext holds all mutable state of one Search invocation. Nothing
// in it outlives the call, which is what keeps repeated and concurrent
// searches free of stale bounds: per-node traversal state lives in slices
// indexed by node ID here, never on the shared tree.
type searchContext[K kernel.Kernel] struct {
	kern        K
	refs        matrix.Matrix
	queries     matrix.Matrix
	refTree     *covertree.Tree
	refNorms    []float64
	queryNorms  []float64
	k           int
	sameSet     bool
	normalized  bool
	excludeSelf bool
	filter      *roaring.Bitmap
	workers     int

	// heaps[q] is query q's candidate set; each query owns its heap.
	heaps []*candidates.Set

	// queryBounds[id] is the kernel value every query below query-node id
	// is already guaranteed, used by the dual traversal. Initialized to
	// -Inf per search and only ever tightened upward within it.
	queryBounds []float64

	evals  atomic.Int64
	scores atomic.Int64
	prunes atomic.Int64
}

func (f *FastMKS[K]) newSearchContext(queries matrix.Matrix, k int, sameSet bool) *searchContext[K] {
	s := &searchContext[K]{
		kern:        f.kern,
		refs:        f.refs,
		queries:     queries,
		refTree:     f.tree,
		refNorms:    f.refNorms,
		k:           k,
		sameSet:     sameSet,
		normalized:  f.normalized,
		excludeSelf: f.opts.excludeSelf,
		filter:      f.opts.filter,
		workers:     f.opts.workers,
		heaps:       make([]*candidates.Set, queries.Cols()),
	}
	if sameSet {
		s.queryNorms = f.refNorms
	} else {
		s.queryNorms = selfNorms(f.kern, queries)
	}
	for q := range s.heaps {
		s.heaps[q] = candidates.NewSet(k)
	}
	return s
}

// allowed reports whether reference ref may appear in query q's results.
func (s *searchContext[K]) allowed(q, ref int) bool {
	if s.excludeSelf && s.sameSet && q == ref {
		return false
	}
	if s.filter != nil && !s.filter.Contains(uint32(ref)) {
		return false
	}
	return true
}

// eval is the base case: one kernel evaluation.
func (s *searchContext[K]) eval(a, b matrix.Vector) float64 {
	s.evals.Add(1)
	return s.kern.Evaluate(a, b)
}

// finalize drains every query's candidate set into the result matrices.
func (s *searchContext[K]) finalize(mode Mode, tol Tolerance) *Results {
	res := newResults(s.k, s.queries.Cols(), tol)
	for q := range s.heaps {
		for row, e := range s.heaps[q].Finalize() {
			res.set(row, q, e.Index, e.Value)
		}
	}
	res.stats = SearchStats{
		Mode:              mode,
		KernelEvaluations: s.evals.Load(),
		NodesScored:       s.scores.Load(),
		Prunes:            s.prunes.Load(),
	}
	return res
}
