package covertree

import "fmt"

// Snapshot is a flat, gob-friendly representation of a built tree.
// Slices are indexed by node ID; Parents[0] is -1 for the root.
type Snapshot struct {
	Base        float64
	Points      []int
	Scales      []int
	Parents     []int
	ParentDists []float64
	Furthest    []float64
}

// Snapshot flattens the tree for persistence.
func (t *Tree) Snapshot() *Snapshot {
	s := &Snapshot{
		Base:        t.base,
		Points:      make([]int, len(t.nodes)),
		Scales:      make([]int, len(t.nodes)),
		Parents:     make([]int, len(t.nodes)),
		ParentDists: make([]float64, len(t.nodes)),
		Furthest:    make([]float64, len(t.nodes)),
	}
	s.Parents[t.root.id] = -1
	for _, n := range t.nodes {
		s.Points[n.id] = n.point
		s.Scales[n.id] = n.scale
		s.ParentDists[n.id] = n.parentDist
		s.Furthest[n.id] = n.furthest
		for _, c := range n.children {
			s.Parents[c.id] = n.id
		}
	}
	return s
}

// FromSnapshot rebuilds a tree from a flattened representation. No distance
// function is needed; all cached bounds are restored as persisted.
func FromSnapshot(s *Snapshot) (*Tree, error) {
	n := len(s.Points)
	if n == 0 {
		return nil, ErrEmptySet
	}
	if s.Base <= 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidBase, s.Base)
	}
	if len(s.Scales) != n || len(s.Parents) != n || len(s.ParentDists) != n || len(s.Furthest) != n {
		return nil, fmt.Errorf("covertree: inconsistent snapshot lengths")
	}

	t := &Tree{base: s.Base, nodes: make([]*Node, n)}
	for id := 0; id < n; id++ {
		t.nodes[id] = &Node{
			id:         id,
			point:      s.Points[id],
			scale:      s.Scales[id],
			parentDist: s.ParentDists[id],
			furthest:   s.Furthest[id],
		}
	}
	for id, parent := range s.Parents {
		if parent == -1 {
			t.root = t.nodes[id]
			continue
		}
		if parent < 0 || parent >= n {
			return nil, fmt.Errorf("covertree: snapshot parent %d out of range", parent)
		}
		t.nodes[parent].children = append(t.nodes[parent].children, t.nodes[id])
	}
	if t.root == nil {
		return nil, fmt.Errorf("covertree: snapshot has no root")
	}
	return t, nil
}
