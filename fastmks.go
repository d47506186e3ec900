package fastmks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/fastmks/covertree"
	"github.com/hupe1980/fastmks/kernel"
	"github.com/hupe1980/fastmks/matrix"
)

// FastMKS is a max-kernel search index over an immutable reference point
// set. Once built it is read-only and safe for concurrent searches.
type FastMKS[K kernel.Kernel] struct {
	refs       matrix.Matrix
	kern       K
	opts       options
	refNorms   []float64
	tree       *covertree.Tree
	normalized bool
}

// New builds a FastMKS index over refs. Unless ModeNaive is configured, a
// cover tree is built under the metric induced by kern. Construction
// errors surface before any partial state exists.
func New[K kernel.Kernel](refs matrix.Matrix, kern K, optFns ...Option) (*FastMKS[K], error) {
	if refs == nil || refs.Cols() == 0 {
		return nil, ErrEmptySet
	}
	opts := applyOptions(optFns)
	if opts.base <= 1 {
		return nil, fmt.Errorf("%w: got %v", covertree.ErrInvalidBase, opts.base)
	}

	f := &FastMKS[K]{
		refs:       refs,
		kern:       kern,
		opts:       opts,
		refNorms:   selfNorms(kern, refs),
		normalized: kernel.IsNormalized(kern),
	}

	if opts.mode != ModeNaive {
		start := time.Now()
		tree, err := covertree.New(refs.Cols(), opts.base, kernel.NewMetric(kern, refs).Distance)
		opts.metricsCollector.RecordBuild(refs.Cols(), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		f.tree = tree
		opts.logger.Debug("reference tree built",
			slog.Int("points", refs.Cols()),
			slog.Int("nodes", tree.NumNodes()),
			slog.Duration("took", time.Since(start)),
		)
	}

	return f, nil
}

// References returns the reference point set.
func (f *FastMKS[K]) References() matrix.Matrix { return f.refs }

// Kernel returns the kernel the index was built with.
func (f *FastMKS[K]) Kernel() K { return f.kern }

// Tree returns the reference cover tree, or nil in naive mode.
func (f *FastMKS[K]) Tree() *covertree.Tree { return f.tree }

// Search finds the top k reference points for every reference point, i.e.
// the query set defaults to the reference set.
func (f *FastMKS[K]) Search(ctx context.Context, k int) (*Results, error) {
	return f.search(ctx, f.refs, k, true)
}

// SearchFor finds the top k reference points for every point of an
// explicit query set. The query set may be dense or sparse independently
// of the reference side.
func (f *FastMKS[K]) SearchFor(ctx context.Context, queries matrix.Matrix, k int) (*Results, error) {
	if queries == nil || queries.Cols() == 0 {
		return nil, ErrEmptySet
	}
	if queries.Rows() != f.refs.Rows() {
		return nil, &ErrDimensionMismatch{Expected: f.refs.Rows(), Actual: queries.Rows()}
	}
	return f.search(ctx, queries, k, false)
}

func (f *FastMKS[K]) search(ctx context.Context, queries matrix.Matrix, k int, sameSet bool) (*Results, error) {
	start := time.Now()
	res, err := f.doSearch(ctx, queries, k, sameSet)
	f.opts.metricsCollector.RecordSearch(f.opts.mode, k, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	res.stats.Duration = time.Since(start)
	f.opts.logger.WithSearch(f.opts.mode, k, queries.Cols()).Debug("search complete",
		slog.Int64("kernel_evaluations", res.stats.KernelEvaluations),
		slog.Int64("nodes_scored", res.stats.NodesScored),
		slog.Int64("prunes", res.stats.Prunes),
		slog.Duration("took", res.stats.Duration),
	)
	return res, nil
}

func (f *FastMKS[K]) doSearch(ctx context.Context, queries matrix.Matrix, k int, sameSet bool) (*Results, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}

	available := f.availableReferences(sameSet)
	if available == 0 {
		return nil, ErrNoCandidates
	}
	if k > available {
		if f.opts.strictK {
			return nil, &ErrKTooLarge{K: k, Available: available}
		}
		k = available
	}

	if rc := f.opts.resources; rc != nil {
		if err := rc.AcquireSearch(ctx); err != nil {
			return nil, err
		}
		defer rc.ReleaseSearch()
	}

	s := f.newSearchContext(queries, k, sameSet)

	var err error
	switch f.opts.mode {
	case ModeNaive:
		err = s.naive(ctx)
	case ModeSingle:
		err = s.single(ctx)
	default:
		err = s.dual(ctx, f.queryTree(queries, sameSet))
	}
	if err != nil {
		return nil, err
	}

	return s.finalize(f.opts.mode, f.opts.tolerance), nil
}

// availableReferences is the number of candidate rows every query column is
// guaranteed to fill. With self-exclusion each query loses at most its own
// index, so the count is conservative by one when a filter already excludes
// the query.
func (f *FastMKS[K]) availableReferences(sameSet bool) int {
	n := f.refs.Cols()
	if f.opts.filter != nil {
		n = 0
		it := f.opts.filter.Iterator()
		for it.HasNext() {
			if int(it.Next()) < f.refs.Cols() {
				n++
			}
		}
	}
	if f.opts.excludeSelf && sameSet && n > 0 {
		n--
	}
	return n
}

// queryTree returns the tree for the query side of a dual traversal. When
// the query set is the reference set the reference tree is reused.
func (f *FastMKS[K]) queryTree(queries matrix.Matrix, sameSet bool) *covertree.Tree {
	if sameSet {
		return f.tree
	}
	// Query sets are transient, so this tree is scoped to one search.
	qt, err := covertree.New(queries.Cols(), f.opts.base, kernel.NewMetric(f.kern, queries).Distance)
	if err != nil {
		// Emptiness and base were validated at entry.
		panic(fmt.Sprintf("fastmks: query tree construction failed: %v", err))
	}
	return qt
}

// selfNorms returns sqrt(K(x, x)) for every column of points. These norms
// are the query/reference halves of the Cauchy-Schwarz search bound.
func selfNorms(k kernel.Kernel, points matrix.Matrix) []float64 {
	norms := make([]float64, points.Cols())
	for j := range norms {
		v := points.ColView(j)
		norms[j] = safeSqrt(k.Evaluate(v, v))
	}
	return norms
}
