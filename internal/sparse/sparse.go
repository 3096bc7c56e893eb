// Package sparse provides a sparse set over small non-negative integers.
//
// The set keeps a dense slice in insertion order next to a sparse index
// slice, giving O(1) insert and membership with deterministic iteration.
// Automata worklists rely on the insertion-order guarantee so that printed
// debug output is stable across runs.
package sparse

// Set is a set of int32 values in the range [0, capacity). The zero value is
// unusable; use New.
type Set struct {
	sparse []int32
	dense  []int32
}

// New creates a set able to hold values below capacity.
func New(capacity int) *Set {
	return &Set{
		sparse: make([]int32, capacity),
		dense:  make([]int32, 0, capacity),
	}
}

// Grow extends the value range to [0, capacity). Existing members are kept.
func (s *Set) Grow(capacity int) {
	if capacity <= len(s.sparse) {
		return
	}
	grown := make([]int32, capacity)
	copy(grown, s.sparse)
	s.sparse = grown
}

// Insert adds v to the set. Inserting an existing member is a no-op.
// Returns true if v was newly added.
func (s *Set) Insert(v int32) bool {
	if s.Contains(v) {
		return false
	}
	s.sparse[v] = int32(len(s.dense))
	s.dense = append(s.dense, v)
	return true
}

// Contains reports whether v is in the set.
func (s *Set) Contains(v int32) bool {
	if v < 0 || int(v) >= len(s.sparse) {
		return false
	}
	idx := s.sparse[v]
	return int(idx) < len(s.dense) && s.dense[idx] == v
}

// Len returns the number of members.
func (s *Set) Len() int { return len(s.dense) }

// IsEmpty reports whether the set has no members.
func (s *Set) IsEmpty() bool { return len(s.dense) == 0 }

// Dense returns the members in insertion order. The slice aliases internal
// storage and is invalidated by Insert and Clear.
func (s *Set) Dense() []int32 { return s.dense }

// At returns the i-th member in insertion order.
func (s *Set) At(i int) int32 { return s.dense[i] }

// Clear empties the set in O(1).
func (s *Set) Clear() { s.dense = s.dense[:0] }
