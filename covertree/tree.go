// Package covertree implements the metric search tree used by fastmks.
//
// The tree is built once over a point set through an opaque distance
// function and is immutable and safe for concurrent readers afterwards.
// It never sees kernels; fastmks composes the kernel-induced metric in at
// construction time. The first point of the set is always the root.
package covertree

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptySet is returned when the tree is built over zero points.
	ErrEmptySet = errors.New("covertree: point set is empty")

	// ErrInvalidBase is returned when the expansion base is not > 1.
	ErrInvalidBase = errors.New("covertree: base must be greater than 1")
)

// DefaultBase is the expansion constant used when none is configured.
const DefaultBase = 1.3

// DistanceFunc returns the metric distance between points i and j.
// It must satisfy the triangle inequality for the tree's bounds to hold.
type DistanceFunc func(i, j int) float64

// Tree is a cover tree over points 0..n-1. Every point owns exactly one
// node, so a traversal that visits each node once touches each point once.
type Tree struct {
	root  *Node
	base  float64
	nodes []*Node
}

// New builds a tree over n points using dist. The first point becomes the
// root; remaining points are inserted in index order. After insertion the
// furthest-descendant bound of every node is computed bottom-up, so search
// never calls dist again.
func New(n int, base float64, dist DistanceFunc) (*Tree, error) {
	if n == 0 {
		return nil, ErrEmptySet
	}
	if base <= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidBase, base)
	}

	t := &Tree{base: base}
	t.root = t.newNode(0, 0, 0)
	for i := 1; i < n; i++ {
		t.add(i, dist)
	}
	t.root.computeFurthest()
	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Base returns the expansion base the tree was built with.
func (t *Tree) Base() float64 { return t.base }

// NumNodes returns the number of nodes, which equals the number of points.
func (t *Tree) NumNodes() int { return len(t.nodes) }

// Node returns the node with the given sequential ID.
func (t *Tree) Node(id int) *Node { return t.nodes[id] }

func (t *Tree) newNode(point, scale int, parentDist float64) *Node {
	n := &Node{
		id:         len(t.nodes),
		point:      point,
		scale:      scale,
		parentDist: parentDist,
	}
	t.nodes = append(t.nodes, n)
	return n
}

func (t *Tree) coverDist(scale int) float64 {
	return math.Pow(t.base, float64(scale))
}

// add inserts point idx. If the root's cover radius cannot contain the
// point, the root's scale grows; the root point itself never changes.
func (t *Tree) add(idx int, dist DistanceFunc) {
	d := dist(idx, t.root.point)
	for d > t.coverDist(t.root.scale) {
		t.root.scale++
	}

	n := t.root
	dn := d
	for {
		var next *Node
		var dNext float64
		for _, c := range n.children {
			if dc := dist(idx, c.point); dc <= t.coverDist(c.scale) {
				next = c
				dNext = dc
				break
			}
		}
		if next == nil {
			n.children = append(n.children, t.newNode(idx, n.scale-1, dn))
			return
		}
		n = next
		dn = dNext
	}
}
