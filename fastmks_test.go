package fastmks

import (
	"context"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fastmks/kernel"
	"github.com/hupe1980/fastmks/matrix"
	"github.com/hupe1980/fastmks/testutil"
)

func TestNew(t *testing.T) {
	rng := testutil.NewRNG(4711)
	refs := rng.Randn(5, 100)

	t.Run("builds reference tree", func(t *testing.T) {
		mks, err := New(refs, kernel.Linear{})
		require.NoError(t, err)

		require.NotNil(t, mks.Tree())
		assert.Equal(t, refs.Cols(), mks.Tree().NumNodes())
		assert.Equal(t, refs, mks.References())
	})

	t.Run("naive mode skips the tree", func(t *testing.T) {
		mks, err := New(refs, kernel.Linear{}, WithMode(ModeNaive))
		require.NoError(t, err)

		assert.Nil(t, mks.Tree())
	})

	t.Run("nil reference set", func(t *testing.T) {
		_, err := New(nil, kernel.Linear{})
		assert.ErrorIs(t, err, ErrEmptySet)
	})

	t.Run("invalid base", func(t *testing.T) {
		_, err := New(refs, kernel.Linear{}, WithBase(0.9))
		assert.Error(t, err)
	})
}

func TestSearchArgumentErrors(t *testing.T) {
	rng := testutil.NewRNG(1)
	refs := rng.Randn(4, 20)

	mks, err := New(refs, kernel.Linear{})
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("k below one", func(t *testing.T) {
		_, err := mks.Search(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("nil query set", func(t *testing.T) {
		_, err := mks.SearchFor(ctx, nil, 3)
		assert.ErrorIs(t, err, ErrEmptySet)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		queries := rng.Randn(7, 5)

		_, err := mks.SearchFor(ctx, queries, 3)

		var dimErr *ErrDimensionMismatch
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 4, dimErr.Expected)
		assert.Equal(t, 7, dimErr.Actual)
		assert.EqualError(t, dimErr, "dimension mismatch: expected 4, got 7")
	})
}

func TestKLargerThanReferences(t *testing.T) {
	rng := testutil.NewRNG(2)
	refs := rng.Randn(3, 8)
	queries := rng.Randn(3, 4)

	ctx := context.Background()

	t.Run("truncates by default", func(t *testing.T) {
		mks, err := New(refs, kernel.Linear{})
		require.NoError(t, err)

		res, err := mks.SearchFor(ctx, queries, 50)
		require.NoError(t, err)

		assert.Equal(t, 8, res.K())
	})

	t.Run("strict mode rejects", func(t *testing.T) {
		mks, err := New(refs, kernel.Linear{}, WithStrictK())
		require.NoError(t, err)

		_, err = mks.SearchFor(ctx, queries, 50)

		var kErr *ErrKTooLarge
		require.ErrorAs(t, err, &kErr)
		assert.Equal(t, 50, kErr.K)
		assert.Equal(t, 8, kErr.Available)
	})
}

// The tree modes must return exactly what brute force returns; the bound
// only skips work, never answers.
func TestSingleMatchesNaive(t *testing.T) {
	rng := testutil.NewRNG(4711)
	refs := rng.Randn(5, 1000)

	ctx := context.Background()

	naive, err := New(refs, kernel.Linear{}, WithMode(ModeNaive))
	require.NoError(t, err)
	single, err := New(refs, kernel.Linear{}, WithMode(ModeSingle))
	require.NoError(t, err)

	want, err := naive.Search(ctx, 10)
	require.NoError(t, err)
	got, err := single.Search(ctx, 10)
	require.NoError(t, err)

	assert.NoError(t, want.EquivalentTo(got))
}

func TestDualMatchesNaive(t *testing.T) {
	rng := testutil.NewRNG(4711)
	refs := rng.Randn(10, 2000)

	ctx := context.Background()

	naive, err := New(refs, kernel.Linear{}, WithMode(ModeNaive))
	require.NoError(t, err)
	dual, err := New(refs, kernel.Linear{})
	require.NoError(t, err)

	want, err := naive.Search(ctx, 10)
	require.NoError(t, err)
	got, err := dual.Search(ctx, 10)
	require.NoError(t, err)

	assert.NoError(t, want.EquivalentTo(got))
}

func TestDualMatchesSinglePolynomial(t *testing.T) {
	rng := testutil.NewRNG(4711)
	refs := rng.Randu(8, 2000)
	kern := kernel.Polynomial{Degree: 5, Offset: 2.5}

	ctx := context.Background()

	single, err := New(refs, kern, WithMode(ModeSingle))
	require.NoError(t, err)
	dual, err := New(refs, kern)
	require.NoError(t, err)

	want, err := single.Search(ctx, 5)
	require.NoError(t, err)
	got, err := dual.Search(ctx, 5)
	require.NoError(t, err)

	assert.NoError(t, want.EquivalentTo(got))
}

func TestSeparateQuerySet(t *testing.T) {
	rng := testutil.NewRNG(7)
	refs := rng.Randn(6, 500)
	queries := rng.Randn(6, 100)

	ctx := context.Background()

	for _, mode := range []Mode{ModeSingle, ModeDual} {
		t.Run(mode.String(), func(t *testing.T) {
			naive, err := New(refs, kernel.Linear{}, WithMode(ModeNaive))
			require.NoError(t, err)
			tree, err := New(refs, kernel.Linear{}, WithMode(mode))
			require.NoError(t, err)

			want, err := naive.SearchFor(ctx, queries, 7)
			require.NoError(t, err)
			got, err := tree.SearchFor(ctx, queries, 7)
			require.NoError(t, err)

			assert.NoError(t, want.EquivalentTo(got))
		})
	}
}

// Sparse and dense containers hold the same points, so every mode must
// return identical results for either storage.
func TestSparseMatchesDense(t *testing.T) {
	rng := testutil.NewRNG(4711)
	sparse := rng.SprandU(10, 100, 0.3)
	dense, err := sparse.Dense()
	require.NoError(t, err)

	ctx := context.Background()

	kernels := map[string]kernel.Kernel{
		"linear":     kernel.Linear{},
		"polynomial": kernel.NewPolynomial(3),
	}

	for name, kern := range kernels {
		t.Run(name, func(t *testing.T) {
			for _, mode := range []Mode{ModeNaive, ModeSingle, ModeDual} {
				t.Run(mode.String(), func(t *testing.T) {
					dmks, err := New[kernel.Kernel](dense, kern, WithMode(mode))
					require.NoError(t, err)
					smks, err := New[kernel.Kernel](sparse, kern, WithMode(mode))
					require.NoError(t, err)

					want, err := dmks.Search(ctx, 3)
					require.NoError(t, err)
					got, err := smks.Search(ctx, 3)
					require.NoError(t, err)

					assert.NoError(t, want.EquivalentTo(got))
				})
			}
		})
	}
}

func TestNormalizedKernels(t *testing.T) {
	rng := testutil.NewRNG(99)
	refs := rng.Randn(6, 600)

	ctx := context.Background()

	kernels := map[string]kernel.Kernel{
		"cosine":       kernel.Cosine{},
		"gaussian":     kernel.Gaussian{Bandwidth: 2},
		"epanechnikov": kernel.Epanechnikov{Bandwidth: 4},
	}

	for name, kern := range kernels {
		t.Run(name, func(t *testing.T) {
			naive, err := New[kernel.Kernel](refs, kern, WithMode(ModeNaive))
			require.NoError(t, err)

			want, err := naive.Search(ctx, 5)
			require.NoError(t, err)

			for _, mode := range []Mode{ModeSingle, ModeDual} {
				t.Run(mode.String(), func(t *testing.T) {
					tree, err := New[kernel.Kernel](refs, kern, WithMode(mode))
					require.NoError(t, err)

					got, err := tree.Search(ctx, 5)
					require.NoError(t, err)

					assert.NoError(t, want.EquivalentTo(got))
				})
			}
		})
	}
}

// Growing k must keep the smaller result as a prefix.
func TestLargerKExtendsSmallerK(t *testing.T) {
	rng := testutil.NewRNG(13)
	refs := rng.Randn(5, 400)

	mks, err := New(refs, kernel.Linear{})
	require.NoError(t, err)

	ctx := context.Background()

	small, err := mks.Search(ctx, 4)
	require.NoError(t, err)
	large, err := mks.Search(ctx, 9)
	require.NoError(t, err)

	for q := 0; q < small.NumQueries(); q++ {
		for row := 0; row < small.K(); row++ {
			assert.Equal(t, small.Index(row, q), large.Index(row, q))
			assert.Equal(t, small.Value(row, q), large.Value(row, q))
		}
	}
}

func TestKnownTopThree(t *testing.T) {
	// Five 2-dimensional points with hand-computable inner products
	// against the query (1, 1): 3, 7, -1, 5, 2.
	refs, err := matrix.NewDenseFromColumns([][]float64{
		{1, 2},
		{3, 4},
		{-2, 1},
		{5, 0},
		{2, 0},
	})
	require.NoError(t, err)

	query, err := matrix.NewDenseFromColumns([][]float64{{1, 1}})
	require.NoError(t, err)

	ctx := context.Background()

	for _, mode := range []Mode{ModeNaive, ModeSingle, ModeDual} {
		t.Run(mode.String(), func(t *testing.T) {
			mks, err := New(refs, kernel.Linear{}, WithMode(mode))
			require.NoError(t, err)

			res, err := mks.SearchFor(ctx, query, 3)
			require.NoError(t, err)

			indices, values := res.Column(0)
			assert.Equal(t, []int{1, 3, 0}, indices)
			assert.Equal(t, []float64{7, 5, 3}, values)
		})
	}
}

func TestExactValueTies(t *testing.T) {
	// Distinct points whose inner products against (1, 1) collide
	// exactly: 1, 2, 1, 2, 0. Tied values must resolve to the lower
	// reference index in every mode.
	refs, err := matrix.NewDenseFromColumns([][]float64{
		{0, 1},
		{2, 0},
		{1, 0},
		{0, 2},
		{1, -1},
	})
	require.NoError(t, err)

	query, err := matrix.NewDenseFromColumns([][]float64{{1, 1}})
	require.NoError(t, err)

	ctx := context.Background()

	for _, mode := range []Mode{ModeNaive, ModeSingle, ModeDual} {
		t.Run(mode.String(), func(t *testing.T) {
			mks, err := New(refs, kernel.Linear{}, WithMode(mode))
			require.NoError(t, err)

			res, err := mks.SearchFor(ctx, query, 1)
			require.NoError(t, err)
			indices, values := res.Column(0)
			assert.Equal(t, []int{1}, indices)
			assert.Equal(t, []float64{2}, values)

			res, err = mks.SearchFor(ctx, query, 3)
			require.NoError(t, err)
			indices, values = res.Column(0)
			assert.Equal(t, []int{1, 3, 0}, indices)
			assert.Equal(t, []float64{2, 2, 1}, values)
		})
	}
}

func TestTiedGridMatchesNaive(t *testing.T) {
	// Every point of the {0,1,2,3}^3 grid: 64 distinct points whose
	// pairwise inner products collide constantly, so tree prunes sit on
	// tie boundaries for most queries.
	cols := make([][]float64, 0, 64)
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				cols = append(cols, []float64{float64(x), float64(y), float64(z)})
			}
		}
	}
	refs, err := matrix.NewDenseFromColumns(cols)
	require.NoError(t, err)

	ctx := context.Background()

	naive, err := New(refs, kernel.Linear{}, WithMode(ModeNaive))
	require.NoError(t, err)
	want, err := naive.Search(ctx, 5)
	require.NoError(t, err)

	for _, mode := range []Mode{ModeSingle, ModeDual} {
		t.Run(mode.String(), func(t *testing.T) {
			mks, err := New(refs, kernel.Linear{}, WithMode(mode))
			require.NoError(t, err)

			got, err := mks.Search(ctx, 5)
			require.NoError(t, err)

			assert.NoError(t, want.EquivalentTo(got))
		})
	}
}

func TestSelfMatch(t *testing.T) {
	rng := testutil.NewRNG(21)
	refs := rng.Randn(4, 100)

	ctx := context.Background()

	t.Run("self kernel value under a normalized kernel", func(t *testing.T) {
		mks, err := New(refs, kernel.Cosine{})
		require.NoError(t, err)

		res, err := mks.Search(ctx, 1)
		require.NoError(t, err)

		for q := 0; q < res.NumQueries(); q++ {
			assert.InDelta(t, 1.0, res.Value(0, q), 1e-12)
		}
	})

	t.Run("exclude self", func(t *testing.T) {
		mks, err := New(refs, kernel.Cosine{}, WithExcludeSelf())
		require.NoError(t, err)

		res, err := mks.Search(ctx, 3)
		require.NoError(t, err)

		for q := 0; q < res.NumQueries(); q++ {
			for row := 0; row < res.K(); row++ {
				assert.NotEqual(t, q, res.Index(row, q))
			}
		}
	})

	t.Run("exclude self only applies to same-set searches", func(t *testing.T) {
		mks, err := New(refs, kernel.Cosine{}, WithExcludeSelf())
		require.NoError(t, err)

		res, err := mks.SearchFor(ctx, refs, 1)
		require.NoError(t, err)

		// Explicit query sets carry no identity, so q's best match is q.
		for q := 0; q < res.NumQueries(); q++ {
			assert.Equal(t, q, res.Index(0, q))
		}
	})
}

func TestFilter(t *testing.T) {
	rng := testutil.NewRNG(31)
	refs := rng.Randn(5, 200)

	filter := roaring.New()
	for i := uint32(0); i < 200; i += 2 {
		filter.Add(i)
	}

	ctx := context.Background()

	for _, mode := range []Mode{ModeNaive, ModeSingle, ModeDual} {
		t.Run(mode.String(), func(t *testing.T) {
			mks, err := New(refs, kernel.Linear{}, WithMode(mode), WithFilter(filter))
			require.NoError(t, err)

			res, err := mks.Search(ctx, 5)
			require.NoError(t, err)

			for q := 0; q < res.NumQueries(); q++ {
				for row := 0; row < res.K(); row++ {
					assert.Zerof(t, res.Index(row, q)%2, "query %d row %d: odd index %d", q, row, res.Index(row, q))
				}
			}
		})
	}

	t.Run("empty filter", func(t *testing.T) {
		mks, err := New(refs, kernel.Linear{}, WithFilter(roaring.New()))
		require.NoError(t, err)

		_, err = mks.Search(ctx, 1)
		assert.ErrorIs(t, err, ErrNoCandidates)
	})
}

func TestSerialMatchesParallel(t *testing.T) {
	rng := testutil.NewRNG(47)
	refs := rng.Randn(6, 800)

	ctx := context.Background()

	for _, mode := range []Mode{ModeNaive, ModeSingle, ModeDual} {
		t.Run(mode.String(), func(t *testing.T) {
			serial, err := New(refs, kernel.Linear{}, WithMode(mode), WithWorkers(1))
			require.NoError(t, err)
			parallel, err := New(refs, kernel.Linear{}, WithMode(mode), WithWorkers(8))
			require.NoError(t, err)

			want, err := serial.Search(ctx, 6)
			require.NoError(t, err)
			got, err := parallel.Search(ctx, 6)
			require.NoError(t, err)

			assert.NoError(t, want.EquivalentTo(got))
		})
	}
}

func TestRepeatedSearchesAreStable(t *testing.T) {
	rng := testutil.NewRNG(53)
	refs := rng.Randn(5, 500)

	mks, err := New(refs, kernel.Linear{})
	require.NoError(t, err)

	ctx := context.Background()

	first, err := mks.Search(ctx, 5)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := mks.Search(ctx, 5)
		require.NoError(t, err)
		assert.NoError(t, first.EquivalentTo(again))
	}
}

func TestSearchStats(t *testing.T) {
	rng := testutil.NewRNG(61)
	refs := rng.Randn(5, 300)

	ctx := context.Background()

	t.Run("naive counts all pairs", func(t *testing.T) {
		mks, err := New(refs, kernel.Linear{}, WithMode(ModeNaive))
		require.NoError(t, err)

		res, err := mks.Search(ctx, 3)
		require.NoError(t, err)

		stats := res.Stats()
		assert.Equal(t, ModeNaive, stats.Mode)
		assert.Equal(t, int64(300*300), stats.KernelEvaluations)
		assert.Greater(t, stats.Duration.Nanoseconds(), int64(0))
	})

	t.Run("tree modes prune work", func(t *testing.T) {
		mks, err := New(refs, kernel.Linear{}, WithMode(ModeSingle))
		require.NoError(t, err)

		res, err := mks.Search(ctx, 3)
		require.NoError(t, err)

		stats := res.Stats()
		assert.Equal(t, ModeSingle, stats.Mode)
		assert.Less(t, stats.KernelEvaluations, int64(300*300))
		assert.Greater(t, stats.NodesScored, int64(0))
	})
}

func TestBasicMetricsCollector(t *testing.T) {
	rng := testutil.NewRNG(71)
	refs := rng.Randn(4, 100)

	mc := &BasicMetricsCollector{}

	mks, err := New(refs, kernel.Linear{}, WithMetricsCollector(mc))
	require.NoError(t, err)

	_, err = mks.Search(context.Background(), 3)
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.BuildCount)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(0), stats.SearchErrors)
}
