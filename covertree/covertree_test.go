package covertree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func euclidean(points [][]float64) DistanceFunc {
	return func(i, j int) float64 {
		var sum float64
		for d := range points[i] {
			diff := points[i][d] - points[j][d]
			sum += diff * diff
		}
		return math.Sqrt(sum)
	}
}

func randomPoints(seed int64, n, dim int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, dim)
		for d := range points[i] {
			points[i][d] = rng.NormFloat64()
		}
	}
	return points
}

func TestNew(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		_, err := New(0, DefaultBase, nil)
		assert.ErrorIs(t, err, ErrEmptySet)
	})

	t.Run("invalid base", func(t *testing.T) {
		_, err := New(3, 1.0, func(i, j int) float64 { return 1 })
		assert.ErrorIs(t, err, ErrInvalidBase)
	})

	t.Run("single point", func(t *testing.T) {
		tree, err := New(1, DefaultBase, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, tree.NumNodes())
		assert.Equal(t, 0, tree.Root().Point())
		assert.True(t, tree.Root().IsLeaf())
		assert.Equal(t, 0.0, tree.Root().FurthestDescendant())
	})

	t.Run("first point is root", func(t *testing.T) {
		points := randomPoints(1, 50, 3)
		tree, err := New(len(points), DefaultBase, euclidean(points))
		require.NoError(t, err)

		assert.Equal(t, 0, tree.Root().Point())
	})
}

func TestEveryPointOwnsOneNode(t *testing.T) {
	points := randomPoints(2, 200, 4)
	tree, err := New(len(points), DefaultBase, euclidean(points))
	require.NoError(t, err)

	require.Equal(t, len(points), tree.NumNodes())

	seen := make(map[int]int)
	var walk func(n *Node)
	walk = func(n *Node) {
		seen[n.Point()]++
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(tree.Root())

	assert.Len(t, seen, len(points))
	for p, count := range seen {
		assert.Equalf(t, 1, count, "point %d appears %d times", p, count)
	}
}

func TestNodeIDsAreSequential(t *testing.T) {
	points := randomPoints(3, 100, 3)
	tree, err := New(len(points), DefaultBase, euclidean(points))
	require.NoError(t, err)

	for id := 0; id < tree.NumNodes(); id++ {
		assert.Equal(t, id, tree.Node(id).ID())
	}
}

func TestParentDistanceMatchesMetric(t *testing.T) {
	points := randomPoints(4, 100, 3)
	dist := euclidean(points)
	tree, err := New(len(points), DefaultBase, dist)
	require.NoError(t, err)

	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children() {
			assert.InDelta(t, dist(c.Point(), n.Point()), c.ParentDistance(), 1e-12)
			walk(c)
		}
	}
	walk(tree.Root())
}

// FurthestDescendant must bound the true distance from a node's point to
// every point in its subtree; the search bounds rely on it.
func TestFurthestDescendantDominates(t *testing.T) {
	points := randomPoints(5, 300, 5)
	dist := euclidean(points)
	tree, err := New(len(points), DefaultBase, dist)
	require.NoError(t, err)

	var collect func(n *Node, into *[]int)
	collect = func(n *Node, into *[]int) {
		*into = append(*into, n.Point())
		for _, c := range n.Children() {
			collect(c, into)
		}
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		var subtree []int
		collect(n, &subtree)

		for _, p := range subtree {
			assert.LessOrEqualf(t, dist(n.Point(), p), n.FurthestDescendant()+1e-12,
				"furthest bound violated at node %d for point %d", n.ID(), p)
		}

		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(tree.Root())
}

func TestChildScalesDecrease(t *testing.T) {
	points := randomPoints(6, 150, 3)
	tree, err := New(len(points), DefaultBase, euclidean(points))
	require.NoError(t, err)

	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children() {
			assert.Less(t, c.Scale(), n.Scale())
			walk(c)
		}
	}
	walk(tree.Root())
}

func TestSnapshotRoundTrip(t *testing.T) {
	points := randomPoints(7, 120, 4)
	tree, err := New(len(points), DefaultBase, euclidean(points))
	require.NoError(t, err)

	snap := tree.Snapshot()
	got, err := FromSnapshot(snap)
	require.NoError(t, err)

	require.Equal(t, tree.NumNodes(), got.NumNodes())
	assert.Equal(t, tree.Base(), got.Base())

	for id := 0; id < tree.NumNodes(); id++ {
		want, have := tree.Node(id), got.Node(id)
		assert.Equal(t, want.Point(), have.Point())
		assert.Equal(t, want.Scale(), have.Scale())
		assert.Equal(t, want.ParentDistance(), have.ParentDistance())
		assert.Equal(t, want.FurthestDescendant(), have.FurthestDescendant())
		assert.Equal(t, want.NumChildren(), have.NumChildren())
	}
}

func TestFromSnapshotRejectsInvalid(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := FromSnapshot(&Snapshot{Base: DefaultBase})
		assert.Error(t, err)
	})

	t.Run("bad base", func(t *testing.T) {
		_, err := FromSnapshot(&Snapshot{
			Base:        0.5,
			Points:      []int{0},
			Scales:      []int{0},
			Parents:     []int{-1},
			ParentDists: []float64{0},
			Furthest:    []float64{0},
		})
		assert.ErrorIs(t, err, ErrInvalidBase)
	})
}
