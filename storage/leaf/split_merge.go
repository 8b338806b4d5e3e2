package leaf

// collectPairs deep-copies the pairs in [lo, hi) out of data, since Split,
// Merge and Level rebuild their source pages in place and must not hold
// slices that alias bytes they are about to overwrite.
func collectPairs(data []byte, lo, hi int) ([][]byte, []Value) {
	keys := make([][]byte, 0, hi-lo)
	vals := make([]Value, 0, hi-lo)
	for i := lo; i < hi; i++ {
		off := pairOffset(data, i)
		keys = append(keys, append([]byte(nil), keyAt(data, off)...))
		vals = append(vals, valueAt(data, off))
	}
	return keys, vals
}

// Split finds the smallest prefix of data's pairs whose cumulative byte size
// exceeds half of the leaf's used bytes, moves everything after that prefix
// into right, and returns the separator key to install in the parent — the
// median-key-on-left convention of spec.md §4.5: the returned key is the
// last key kept on the left page.
func Split(data []byte, right []byte) []byte {
	n := count(data)
	guarantee(n >= 2, "leaf: split requires at least 2 pairs, have %d", n)

	total := 0
	for i := 0; i < n; i++ {
		total += pairSizeAt(data, pairOffset(data, i))
	}
	half := total / 2

	cum, mid := 0, 0
	for mid < n {
		cum += pairSizeAt(data, pairOffset(data, mid))
		mid++
		if cum > half {
			break
		}
	}
	if mid == n {
		mid = n - 1 // keep at least one pair on the right
	}

	leftKeys, leftVals := collectPairs(data, 0, mid)
	rightKeys, rightVals := collectPairs(data, mid, n)
	median := append([]byte(nil), leftKeys[len(leftKeys)-1]...)

	InitFrom(data, leftKeys, leftVals)
	InitFrom(right, rightKeys, rightVals)
	return median
}

// Merge folds left's pairs into right, in place, per spec.md §4.6's
// merge-into-right-sibling convention. The caller is responsible for
// discarding left's page afterward; Merge itself only rewrites right. It
// panics via guarantee when the two pages' pairs do not fit in one block.
func Merge(left, right []byte) {
	need := HeaderSize + (count(left)+count(right))*slotSize + usedBytes(left) + usedBytes(right)
	guarantee(need <= len(right), "merge of non-mergeable siblings needs %d bytes, block has %d", need, len(right))

	leftKeys, leftVals := collectPairs(left, 0, count(left))
	rightKeys, rightVals := collectPairs(right, 0, count(right))

	keys := append(leftKeys, rightKeys...)
	vals := append(leftVals, rightVals...)
	InitFrom(right, keys, vals)
}

// Level moves the minimum number of pairs between a and b (its sibling) to
// approximately equalize their used-byte counts, per spec.md §4.6.
// Orientation is decided by comparing their first keys: if a sorts before b,
// a prefix of b moves into the tail of a; otherwise a suffix of b moves into
// the head of a. It returns false, leaving both pages untouched, when the
// adjustment works out to zero or fewer pairs to move — the caller should
// fall back to Merge. On success it returns keyToReplace (the last key the
// lower-sorting page of a and b held before the move) and replacementKey
// (that page's last key after the move, the separator to install between
// them).
func Level(a, b []byte) (keyToReplace, replacementKey []byte, ok bool) {
	na, nb := count(a), count(b)
	if na == 0 || nb == 0 {
		return nil, nil, false
	}

	usedA := len(a) - frontmost(a)
	usedB := len(b) - frontmost(b)
	adjustment := (usedB - usedA) / 2
	if adjustment <= 0 {
		return nil, nil, false
	}

	aFirst := append([]byte(nil), keyAt(a, pairOffset(a, 0))...)
	bFirst := append([]byte(nil), keyAt(b, pairOffset(b, 0))...)
	prefixCase := compareKeys(aFirst, bFirst) < 0

	remaining := adjustment
	moveCount := 0
	if prefixCase {
		for i := 0; i < nb-1 && remaining > 0; i++ {
			remaining -= pairSizeAt(b, pairOffset(b, i))
			moveCount++
		}
	} else {
		for i := nb - 1; i > 0 && remaining > 0; i-- {
			remaining -= pairSizeAt(b, pairOffset(b, i))
			moveCount++
		}
	}
	if moveCount == 0 {
		return nil, nil, false
	}

	aKeys, aVals := collectPairs(a, 0, na)
	bKeys, bVals := collectPairs(b, 0, nb)

	if prefixCase {
		oldALast := append([]byte(nil), aKeys[len(aKeys)-1]...)

		newAKeys := append(append([][]byte{}, aKeys...), bKeys[:moveCount]...)
		newAVals := append(append([]Value{}, aVals...), bVals[:moveCount]...)
		newBKeys := bKeys[moveCount:]
		newBVals := bVals[moveCount:]

		InitFrom(a, newAKeys, newAVals)
		InitFrom(b, newBKeys, newBVals)
		return oldALast, append([]byte(nil), newAKeys[len(newAKeys)-1]...), true
	}

	cut := nb - moveCount
	oldBLast := append([]byte(nil), bKeys[nb-1]...)
	newAKeys := append(append([][]byte{}, bKeys[cut:]...), aKeys...)
	newAVals := append(append([]Value{}, bVals[cut:]...), aVals...)
	newBKeys := bKeys[:cut]
	newBVals := bVals[:cut]

	InitFrom(a, newAKeys, newAVals)
	InitFrom(b, newBKeys, newBVals)
	return oldBLast, append([]byte(nil), newBKeys[cut-1]...), true
}
