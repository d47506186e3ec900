package fastmks

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fastmks/covertree"
	"github.com/hupe1980/fastmks/matrix"
)

// single runs an independent branch-and-bound descent of the reference
// tree for every query, fanned out across workers.
func (s *searchContext[K]) single(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for q := 0; q < s.queries.Cols(); q++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.singleQuery(q)
			return nil
		})
	}

	return g.Wait()
}

func (s *searchContext[K]) singleQuery(q int) {
	qv := s.queries.ColView(q)
	root := s.refTree.Root()

	kv := s.eval(qv, s.refs.ColView(root.Point()))
	if s.allowed(q, root.Point()) {
		s.heaps[q].Offer(root.Point(), kv)
	}
	s.descend(q, qv, s.queryNorms[q], root, kv)
}

type childScore struct {
	node  *covertree.Node
	kval  float64
	upper float64
}

// descend processes the children of reference node n for a single query.
// kval is the already-evaluated K(q, n's representative); it feeds a cheap
// pre-bound via the triangle inequality that can skip a child's kernel
// evaluation outright. Surviving children are scored, offered, and then
// visited best-first so the candidate set tightens as early as possible.
// Bounds are re-checked against the improving k-th best before every
// descent.
func (s *searchContext[K]) descend(q int, qv matrix.Vector, normQ float64, n *covertree.Node, kval float64) {
	if n.IsLeaf() {
		return
	}
	heap := s.heaps[q]

	scored := make([]childScore, 0, n.NumChildren())
	for _, c := range n.Children() {
		s.scores.Add(1)
		if heap.Full() {
			// K(q, x) <= K(q, parent rep) + d(parent, child rep) + bound,
			// scaled by |q|; sound for every x below c. Prunes are strict:
			// a bound-equal subtree can still hold a value tie that wins
			// on index.
			pre := kval + (c.ParentDistance()+c.FurthestDescendant())*normQ
			if pre < heap.Min() {
				s.prunes.Add(1)
				continue
			}
		}
		ckv := s.eval(qv, s.refs.ColView(c.Point()))
		if s.allowed(q, c.Point()) {
			heap.Offer(c.Point(), ckv)
		}
		scored = append(scored, childScore{
			node:  c,
			kval:  ckv,
			upper: s.pointNodeUpper(ckv, c.FurthestDescendant(), normQ),
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].upper > scored[j].upper })

	for _, sc := range scored {
		if heap.Full() && sc.upper < heap.Min() {
			s.prunes.Add(1)
			continue
		}
		s.descend(q, qv, normQ, sc.node, sc.kval)
	}
}
