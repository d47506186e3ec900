// Package candidates implements the bounded per-query result accumulator
// used by the fastmks traversals.
package candidates

import (
	"math"
	"sort"
)

// Entry is a single (reference index, kernel value) candidate.
type Entry struct {
	Index int
	Value float64
}

// better reports whether a precedes b in the result order:
// higher value first, ties broken by lower index. The order is total, so
// the retained set is independent of offer order even under ties.
func better(a, b Entry) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	return a.Index < b.Index
}

// Set is a bounded max-kernel candidate set of capacity k. Internally it is
// a binary heap whose root is the weakest retained candidate, so Offer is
// O(log k). Set is not safe for concurrent use; each query owns its own.
type Set struct {
	k       int
	entries []Entry
}

// NewSet creates a Set with capacity k. k must be >= 1.
func NewSet(k int) *Set {
	return &Set{k: k, entries: make([]Entry, 0, k)}
}

// Len returns the number of retained candidates.
func (s *Set) Len() int { return len(s.entries) }

// Full reports whether the set holds k candidates.
func (s *Set) Full() bool { return len(s.entries) == s.k }

// Min returns the weakest retained kernel value, or -Inf while the set is
// below capacity. It is the lower bound used for pruning.
func (s *Set) Min() float64 {
	if len(s.entries) < s.k {
		return math.Inf(-1)
	}
	return s.entries[0].Value
}

// Offer considers a candidate. Below capacity it is always inserted; at
// capacity it replaces the weakest entry iff it precedes it in the result
// order.
func (s *Set) Offer(index int, value float64) {
	e := Entry{Index: index, Value: value}
	if len(s.entries) < s.k {
		s.entries = append(s.entries, e)
		s.up(len(s.entries) - 1)
		return
	}
	if !better(e, s.entries[0]) {
		return
	}
	s.entries[0] = e
	s.down(0)
}

// Finalize drains the set into descending result order. The set must not
// be used afterwards.
func (s *Set) Finalize() []Entry {
	out := s.entries
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	s.entries = nil
	return out
}

// weaker is the heap order: the root is the entry every other retained
// candidate precedes.
func weaker(a, b Entry) bool { return better(b, a) }

func (s *Set) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !weaker(s.entries[i], s.entries[parent]) {
			break
		}
		s.entries[i], s.entries[parent] = s.entries[parent], s.entries[i]
		i = parent
	}
}

func (s *Set) down(i int) {
	n := len(s.entries)
	for {
		left, right := 2*i+1, 2*i+2
		min := i
		if left < n && weaker(s.entries[left], s.entries[min]) {
			min = left
		}
		if right < n && weaker(s.entries[right], s.entries[min]) {
			min = right
		}
		if min == i {
			return
		}
		s.entries[i], s.entries[min] = s.entries[min], s.entries[i]
		i = min
	}
}
