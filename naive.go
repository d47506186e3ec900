package fastmks

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// naive evaluates the kernel against every reference point for every
// query. It is the correctness baseline the tree modes are tested against,
// and the fastest choice for tiny reference sets. Queries are independent
// and fan out across workers.
func (s *searchContext[K]) naive(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for q := 0; q < s.queries.Cols(); q++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			qv := s.queries.ColView(q)
			heap := s.heaps[q]
			for r := 0; r < s.refs.Cols(); r++ {
				if !s.allowed(q, r) {
					continue
				}
				heap.Offer(r, s.eval(qv, s.refs.ColView(r)))
			}
			return nil
		})
	}

	return g.Wait()
}
