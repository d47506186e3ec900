package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/fastmks/kernel"
	"github.com/hupe1980/fastmks/matrix"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Intn returns a non-negative pseudo-random number in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Randn returns a rows x cols dense matrix whose entries are drawn from
// the standard normal distribution.
func (r *RNG) Randn(rows, cols int) *matrix.Dense {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.rand.NormFloat64()
	}

	m, err := matrix.NewDense(rows, cols, data)
	if err != nil {
		panic(err)
	}

	return m
}

// Randu returns a rows x cols dense matrix whose entries are drawn
// uniformly from [0, 1).
func (r *RNG) Randu(rows, cols int) *matrix.Dense {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.rand.Float64()
	}

	m, err := matrix.NewDense(rows, cols, data)
	if err != nil {
		panic(err)
	}

	return m
}

// SprandU returns a rows x cols sparse matrix where each entry is
// nonzero with the given probability. Nonzero values are drawn uniformly
// from [0, 1). Columns that would come out empty receive a single entry
// so every point remains a valid vector.
func (r *RNG) SprandU(rows, cols int, density float64) *matrix.Sparse {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []matrix.Entry

	for j := 0; j < cols; j++ {
		start := len(entries)

		for i := 0; i < rows; i++ {
			if r.rand.Float64() < density {
				entries = append(entries, matrix.Entry{Row: i, Col: j, Value: r.rand.Float64()})
			}
		}

		if len(entries) == start {
			entries = append(entries, matrix.Entry{Row: r.rand.Intn(rows), Col: j, Value: r.rand.Float64()})
		}
	}

	m, err := matrix.NewSparseFromEntries(rows, cols, entries)
	if err != nil {
		panic(err)
	}

	return m
}

// ExactTopK computes the exact top-k max-kernel results for a single
// query by brute force. Results are sorted by kernel value descending,
// ties broken by smaller reference index.
func ExactTopK(kern kernel.Kernel, refs matrix.Matrix, query matrix.Vector, k int) ([]int, []float64) {
	type scored struct {
		index int
		value float64
	}

	n := refs.Cols()
	all := make([]scored, n)

	for i := 0; i < n; i++ {
		all[i] = scored{index: i, value: kern.Evaluate(query, refs.ColView(i))}
	}

	sort.Slice(all, func(a, b int) bool {
		if all[a].value != all[b].value {
			return all[a].value > all[b].value
		}
		return all[a].index < all[b].index
	})

	if k > n {
		k = n
	}

	indices := make([]int, k)
	values := make([]float64, k)

	for i := 0; i < k; i++ {
		indices[i] = all[i].index
		values[i] = all[i].value
	}

	return indices, values
}
