package leaf

// getOffsetIndex is the lower-bound binary search over the slot directory
// named in spec.md §4.8: the first index whose key is >= key.
func getOffsetIndex(data []byte, key []byte) int {
	lo, hi := 0, count(data)
	for lo < hi {
		mid := (lo + hi) / 2
		off := pairOffset(data, mid)
		if compareKeys(keyAt(data, off), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// findIndex returns the slot index holding key, or -1 if key is absent.
func findIndex(data []byte, key []byte) int {
	idx := getOffsetIndex(data, key)
	if idx < count(data) && compareKeys(keyAt(data, pairOffset(data, idx)), key) == 0 {
		return idx
	}
	return -1
}

// insertOffset performs the single memmove that keeps the directory dense
// and sorted: shifts pair_offsets[index:n] one slot to the right and stores
// offset at index.
func insertOffset(data []byte, offset int, index int) {
	n := count(data)
	src := data[slotOffset(index):slotOffset(n)]
	dst := data[slotOffset(index+1) : slotOffset(n+1)]
	copy(dst, src)
	setPairOffset(data, index, offset)
	setCount(data, n+1)
}

// deleteOffset removes directory entry index, shifting everything after it
// one slot to the left.
func deleteOffset(data []byte, index int) {
	n := count(data)
	src := data[slotOffset(index+1):slotOffset(n)]
	dst := data[slotOffset(index):slotOffset(n-1)]
	copy(dst, src)
	setCount(data, n-1)
}

// shiftPairs is the sole mechanism by which the heap compacts or expands
// (spec.md §4.8). It moves the bytes [frontmost, cutoff) by delta (positive
// moves them toward the end of the block), advances frontmost_offset by
// delta, and adjusts every slot whose current value is < cutoff by +delta.
func shiftPairs(data []byte, cutoff int, delta int) {
	fm := frontmost(data)
	regionLen := cutoff - fm
	if regionLen > 0 {
		copy(data[fm+delta:fm+delta+regionLen], data[fm:cutoff])
	}
	setFrontmost(data, fm+delta)

	n := count(data)
	for i := 0; i < n; i++ {
		off := pairOffset(data, i)
		if off < cutoff {
			setPairOffset(data, i, off+delta)
		}
	}
}

// allocatePair carves pairSize(key, value) bytes off the front of the heap
// (decreasing frontmost_offset) and writes the new pair there. It does not
// touch the directory — callers install the returned offset themselves.
func allocatePair(data []byte, key []byte, value Value) int {
	sz := pairSize(len(key), value)
	fm := frontmost(data) - sz
	writePair(data, fm, key, value)
	setFrontmost(data, fm)
	return fm
}

// deletePair reclaims the space used by the pair at offset by shifting every
// more-recently-inserted pair (the ones at lower addresses) up to close the
// gap, then advancing frontmost_offset past where the pair used to start.
func deletePair(data []byte, offset int) {
	sz := pairSizeAt(data, offset)
	shiftPairs(data, offset, sz)
}

// usedBytes returns len(data) - frontmost_offset: the number of bytes
// currently occupied by the pair heap, the span invariant 6 requires the
// pairs to fill exactly.
func usedBytes(data []byte) int {
	return len(data) - frontmost(data)
}

// invariantCheck re-validates invariants 1-6 of spec.md §3. It is only run
// when DebugChecks is true, matching the teacher's debug-only assertion
// discipline — callers that violate it are programming errors, which is why
// this panics rather than returning an error (see spec.md §7).
func invariantCheck(data []byte) {
	if !DebugChecks {
		return
	}
	guarantee(magic(data) == Magic, "invariant 1 violated: bad magic %x", magic(data))

	fm := frontmost(data)
	guarantee(fm > 0 && fm <= len(data), "invariant 2 violated: frontmost_offset=%d out of range", fm)
	guarantee(dirEnd(data) <= fm, "invariant 3 violated: directory (end=%d) overlaps heap (frontmost=%d)", dirEnd(data), fm)

	n := count(data)
	type span struct{ start, end int }
	spans := make([]span, 0, n)
	var lastKey []byte
	for i := 0; i < n; i++ {
		off := pairOffset(data, i)
		guarantee(off >= fm && off < len(data), "invariant 4 violated: slot %d offset=%d out of heap range", i, off)
		sz := pairSizeAt(data, off)
		guarantee(off+sz <= len(data), "invariant 4 violated: pair at slot %d overruns block", i)

		key := keyAt(data, off)
		if i > 0 {
			guarantee(compareKeys(lastKey, key) < 0, "invariant 5 violated: slots not strictly increasing at index %d", i)
		}
		lastKey = key
		spans = append(spans, span{off, off + sz})
	}

	// Invariant 6: spans partition [frontmost, len(data)) exactly.
	sortedSpans := append([]span(nil), spans...)
	for i := 1; i < len(sortedSpans); i++ {
		for j := i; j > 0 && sortedSpans[j-1].start > sortedSpans[j].start; j-- {
			sortedSpans[j-1], sortedSpans[j] = sortedSpans[j], sortedSpans[j-1]
		}
	}
	cursor := fm
	for _, s := range sortedSpans {
		guarantee(s.start == cursor, "invariant 6 violated: gap or overlap in heap at offset %d", s.start)
		cursor = s.end
	}
	guarantee(cursor == len(data), "invariant 6 violated: heap does not reach end of block (cursor=%d, want %d)", cursor, len(data))
}
