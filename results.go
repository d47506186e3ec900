package fastmks

import (
	"fmt"
	"math"
	"time"
)

// Tolerance is the numeric policy used when comparing kernel values.
// Values whose magnitude is at most Zero are classified as effectively
// zero; all other values are compared with relative tolerance Relative.
type Tolerance struct {
	Relative float64
	Zero     float64
}

// DefaultTolerance matches the thresholds the search contracts are
// specified against. The zero threshold is a classification policy, not a
// derived constant; override it per kernel if needed.
var DefaultTolerance = Tolerance{Relative: 1e-5, Zero: 1e-15}

// SearchStats are per-search traversal counters.
type SearchStats struct {
	// Mode is the traversal strategy that produced the results.
	Mode Mode
	// KernelEvaluations counts base-case kernel evaluations.
	KernelEvaluations int64
	// NodesScored counts tree nodes (or node pairs) scored.
	NodesScored int64
	// Prunes counts subtrees (or subtree pairs) skipped by the bound.
	Prunes int64
	// Duration is the wall time of the search.
	Duration time.Duration
}

// Results holds the output of a search: two parallel column-major matrices
// of shape (k, numQueries). Column q holds query q's top results sorted by
// descending kernel value, ties broken by ascending reference index.
type Results struct {
	k          int
	numQueries int
	indices    []int
	values     []float64
	tol        Tolerance
	stats      SearchStats
}

func newResults(k, numQueries int, tol Tolerance) *Results {
	return &Results{
		k:          k,
		numQueries: numQueries,
		indices:    make([]int, k*numQueries),
		values:     make([]float64, k*numQueries),
		tol:        tol,
	}
}

func (r *Results) set(row, query, index int, value float64) {
	r.indices[query*r.k+row] = index
	r.values[query*r.k+row] = value
}

// K returns the number of result rows per query. It may be smaller than
// the requested k when fewer reference points were available.
func (r *Results) K() int { return r.k }

// NumQueries returns the number of result columns.
func (r *Results) NumQueries() int { return r.numQueries }

// Index returns the reference index at the given row of query's column.
func (r *Results) Index(row, query int) int { return r.indices[query*r.k+row] }

// Value returns the kernel value at the given row of query's column.
func (r *Results) Value(row, query int) float64 { return r.values[query*r.k+row] }

// Column returns query's result column. The slices are views into the
// result matrices and must be treated as read-only.
func (r *Results) Column(query int) (indices []int, values []float64) {
	return r.indices[query*r.k : (query+1)*r.k], r.values[query*r.k : (query+1)*r.k]
}

// Stats returns the traversal counters recorded during the search.
func (r *Results) Stats() SearchStats { return r.stats }

// EquivalentTo reports whether other holds the same results under the
// tolerance policy r was produced with. See EquivalentWithin.
func (r *Results) EquivalentTo(other *Results) error {
	return EquivalentWithin(r, other, r.tol)
}

// EquivalentWithin compares two result sets under an explicit tolerance.
// Index columns must match exactly. A value of a with magnitude above
// tol.Zero must match the corresponding value of b within tol.Relative
// relative error; a value at or below tol.Zero requires b's value to be
// effectively zero as well. The first mismatch is reported.
func EquivalentWithin(a, b *Results, tol Tolerance) error {
	if a.k != b.k || a.numQueries != b.numQueries {
		return fmt.Errorf("shape mismatch: %dx%d vs %dx%d", a.k, a.numQueries, b.k, b.numQueries)
	}
	for q := 0; q < a.numQueries; q++ {
		for row := 0; row < a.k; row++ {
			ai, bi := a.Index(row, q), b.Index(row, q)
			if ai != bi {
				return fmt.Errorf("query %d row %d: index %d vs %d", q, row, ai, bi)
			}
			av, bv := a.Value(row, q), b.Value(row, q)
			if math.Abs(av) <= tol.Zero {
				if math.Abs(bv) > tol.Zero {
					return fmt.Errorf("query %d row %d: value %g vs non-zero %g", q, row, av, bv)
				}
				continue
			}
			if math.Abs(av-bv) > tol.Relative*math.Abs(av) {
				return fmt.Errorf("query %d row %d: value %g vs %g exceeds relative tolerance %g", q, row, av, bv, tol.Relative)
			}
		}
	}
	return nil
}
