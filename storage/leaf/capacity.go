package leaf

// The epsilon parameter is LEAF_EPSILON from spec.md §4.7: the slack folded into
// IsMergeable/IsUnderfull so a leaf produced by a fresh Split never reports
// itself underfull a moment later. The leaf package carries no global state
// (spec.md §5), so epsilon is threaded through as a parameter — the caller
// (storage/bplustree) supplies it from storage/config's LeafEpsilon tunable
// rather than this package hardcoding or caching a value.

// IsEmpty reports whether the leaf holds zero pairs.
func IsEmpty(data []byte) bool {
	return count(data) == 0
}

// IsFull reports whether inserting a new pair of the given key length and
// value would cause the directory to overlap the heap:
// H + (n+1)*2 + pair_size(key, value) > frontmost_offset. It does not
// account for duplicate-key replacement; Insert handles that case itself.
func IsFull(data []byte, keyLen int, value Value) bool {
	n := count(data)
	lhs := HeaderSize + (n+1)*slotSize + pairSize(keyLen, value)
	return lhs > frontmost(data)
}

// IsMergeable reports whether data and other (same block size) could be
// combined into a single leaf without overflowing it:
// H + (n+n_sib)*2 + (B-frontmost) + (B-frontmost_sib) + eps < B.
func IsMergeable(data, other []byte, epsilon int) bool {
	b := len(data)
	n := count(data)
	nSib := count(other)
	lhs := HeaderSize + (n+nSib)*slotSize + (b - frontmost(data)) + (len(other) - frontmost(other)) + epsilon
	return lhs < b
}

// IsUnderfull reports whether data is occupying less than roughly half its
// capacity, the trigger storage/bplustree uses to decide whether to attempt
// Merge or Level on a leaf:
// (H+1)/2 + n*2 + (B-frontmost) + 2*eps < B/2.
func IsUnderfull(data []byte, epsilon int) bool {
	b := len(data)
	n := count(data)
	lhs := (HeaderSize+1)/2 + n*slotSize + (b - frontmost(data)) + 2*epsilon
	return lhs < b/2
}
