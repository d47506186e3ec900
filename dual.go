package fastmks

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fastmks/covertree"
	"github.com/hupe1980/fastmks/matrix"
)

// dual traverses the query tree and the reference tree simultaneously.
// When the query set is the reference set, qt is the reference tree
// itself.
//
// A visited node pair decomposes into the representative/representative
// base case, single-style descents of the representative against the other
// side's child subtrees, and the cross product of child pairs. Points own
// exactly one node each, so every (query point, reference point) pair is
// evaluated at most once.
//
// The query root's child subtrees own disjoint candidate heaps and bound
// entries, so they traverse in parallel.
func (s *searchContext[K]) dual(ctx context.Context, qt *covertree.Tree) error {
	s.queryBounds = make([]float64, qt.NumNodes())
	for i := range s.queryBounds {
		s.queryBounds[i] = math.Inf(-1)
	}

	qn, rn := qt.Root(), s.refTree.Root()
	qIdx, rIdx := qn.Point(), rn.Point()
	qv := s.queries.ColView(qIdx)
	rv := s.refs.ColView(rIdx)

	kv := s.eval(qv, rv)
	if s.allowed(qIdx, rIdx) {
		s.heaps[qIdx].Offer(rIdx, kv)
	}

	// Query root representative against the reference subtrees.
	s.descend(qIdx, qv, s.queryNorms[qIdx], rn, kv)

	// Reference root representative against the query subtrees.
	for _, qc := range qn.Children() {
		s.reverseDescend(qc, rIdx, rv, s.refNorms[rIdx])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, qc := range qn.Children() {
		g.Go(func() error {
			for _, rc := range rn.Children() {
				if err := gctx.Err(); err != nil {
					return err
				}
				s.dualVisit(qc, rc)
			}
			return nil
		})
	}
	return g.Wait()
}

// dualVisit processes the pair (query node, reference node). The
// representative pair is always evaluated; the subtree cross product is
// skipped when the node-to-node bound cannot beat what every query below
// qn already holds.
func (s *searchContext[K]) dualVisit(qn, rn *covertree.Node) {
	s.scores.Add(1)

	qIdx, rIdx := qn.Point(), rn.Point()
	qv := s.queries.ColView(qIdx)
	rv := s.refs.ColView(rIdx)

	kv := s.eval(qv, rv)
	if s.allowed(qIdx, rIdx) {
		s.heaps[qIdx].Offer(rIdx, kv)
	}

	ub := s.nodePairUpper(kv, qn.FurthestDescendant(), rn.FurthestDescendant(),
		s.queryNorms[qIdx], s.refNorms[rIdx])
	// Strict, as in descend: bound-equal pairs may still flip a tie.
	if ub < s.queryBounds[qn.ID()] {
		s.prunes.Add(1)
		s.updateQueryBound(qn)
		return
	}

	s.descend(qIdx, qv, s.queryNorms[qIdx], rn, kv)

	for _, qc := range qn.Children() {
		s.reverseDescend(qc, rIdx, rv, s.refNorms[rIdx])
	}

	for _, qc := range qn.Children() {
		for _, rc := range rn.Children() {
			s.dualVisit(qc, rc)
		}
	}

	s.updateQueryBound(qn)
}

// reverseDescend pairs a fixed reference point against a query subtree:
// the mirror image of the single-tree descent, pruned against the query
// node's guaranteed bound instead of a single heap.
func (s *searchContext[K]) reverseDescend(qn *covertree.Node, rIdx int, rv matrix.Vector, normR float64) {
	s.scores.Add(1)

	qIdx := qn.Point()
	kv := s.eval(s.queries.ColView(qIdx), rv)
	if s.allowed(qIdx, rIdx) {
		s.heaps[qIdx].Offer(rIdx, kv)
	}

	if !qn.IsLeaf() {
		ub := s.pointNodeUpper(kv, qn.FurthestDescendant(), normR)
		if ub < s.queryBounds[qn.ID()] {
			s.prunes.Add(1)
		} else {
			for _, qc := range qn.Children() {
				s.reverseDescend(qc, rIdx, rv, normR)
			}
		}
	}

	s.updateQueryBound(qn)
}

// updateQueryBound tightens the node's guaranteed lower bound from its own
// query's k-th best and the cached child bounds. Cached values only ever
// lag the truth from below, so the result stays sound.
func (s *searchContext[K]) updateQueryBound(qn *covertree.Node) {
	b := s.heaps[qn.Point()].Min()
	for _, qc := range qn.Children() {
		if cb := s.queryBounds[qc.ID()]; cb < b {
			b = cb
		}
	}
	if b > s.queryBounds[qn.ID()] {
		s.queryBounds[qn.ID()] = b
	}
}
