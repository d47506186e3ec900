package covertree

// Node is a single tree node. Each node holds exactly one point, which acts
// as the representative for its subtree.
type Node struct {
	id         int
	point      int
	scale      int
	parentDist float64
	furthest   float64
	children   []*Node
}

// ID returns the node's sequential ID in [0, Tree.NumNodes()).
// IDs are stable for the lifetime of the tree, so per-search traversal
// state can live in slices indexed by ID instead of on the node.
func (n *Node) ID() int { return n.id }

// Point returns the index of the node's representative point.
func (n *Node) Point() int { return n.point }

// Scale returns the node's cover-tree scale level.
func (n *Node) Scale() int { return n.scale }

// ParentDistance returns the metric distance from the parent's
// representative to this node's representative, cached at insert time.
// It is zero for the root.
func (n *Node) ParentDistance() float64 { return n.parentDist }

// FurthestDescendant returns an upper bound on the metric distance from
// the representative to any point in the subtree.
func (n *Node) FurthestDescendant() float64 { return n.furthest }

// Children returns the child nodes. The slice must be treated as read-only.
func (n *Node) Children() []*Node { return n.children }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// computeFurthest fills in the furthest-descendant bound bottom-up.
// The triangle inequality gives d(rep, x) <= d(rep, child) + d(child, x)
// for every x below a child, so the maximum over children of
// parentDist + child bound dominates the whole subtree.
func (n *Node) computeFurthest() float64 {
	n.furthest = 0
	for _, c := range n.children {
		if b := c.parentDist + c.computeFurthest(); b > n.furthest {
			n.furthest = b
		}
	}
	return n.furthest
}
