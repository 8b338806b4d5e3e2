package leaf

// Init formats a freshly allocated block as an empty leaf: magic stamped,
// zero pairs, frontmost_offset at the end of the block (spec.md §4.1).
func Init(data []byte) {
	guarantee(len(data) > HeaderSize, "leaf: block of %d bytes too small for header", len(data))
	setMagic(data, Magic)
	setCount(data, 0)
	setFrontmost(data, len(data))
}

// InitFrom rebuilds data as a leaf containing exactly the given key/value
// pairs, which must already be sorted ascending and distinct. Split, Merge
// and Level use it to materialize their output pages rather than mutating
// an existing directory pair by pair.
func InitFrom(data []byte, keys [][]byte, values []Value) {
	Init(data)
	for i := range keys {
		off := allocatePair(data, keys[i], values[i])
		insertOffset(data, off, i)
	}
	invariantCheck(data)
}

// Lookup returns the value stored under key, if present.
func Lookup(data []byte, key []byte) (Value, bool) {
	invariantCheck(data)
	idx := findIndex(data, key)
	if idx < 0 {
		return Value{}, false
	}
	return valueAt(data, pairOffset(data, idx)), true
}

// Insert stores value under key, replacing any existing value for that key
// in place (spec.md §4.3). It returns false, leaving data unmodified, when
// there is not enough free space for the pair — the caller (storage/bplustree)
// is expected to Split and retry rather than treat this as an error.
func Insert(data []byte, key []byte, value Value) bool {
	guarantee(len(key) <= maxKeyLen, "leaf: key length %d exceeds %d-byte maximum", len(key), maxKeyLen)
	invariantCheck(data)

	if idx := findIndex(data, key); idx >= 0 {
		off := pairOffset(data, idx)
		keyLen := keyLenAt(data, off)
		oldMemSize := int(valueHeaderAt(data, off).PayloadLen)
		newMemSize := value.MemSize()
		delta := oldMemSize - newMemSize

		if delta < 0 {
			free := frontmost(data) - dirEnd(data)
			if -delta > free {
				return false
			}
		}

		if delta != 0 {
			cutoff := off + 1 + keyLen + ValueHeaderSize
			shiftPairs(data, cutoff, delta)
			off = pairOffset(data, idx)
		}
		writePair(data, off, key, value)
		invariantCheck(data)
		return true
	}

	if IsFull(data, len(key), value) {
		return false
	}
	idx := getOffsetIndex(data, key)
	off := allocatePair(data, key, value)
	insertOffset(data, off, idx)
	invariantCheck(data)
	return true
}

// Remove deletes key's pair, compacting the heap and the directory. It
// guarantees key is present — callers must Lookup first, matching the
// teacher's always-on contract checks for precondition violations (see
// spec.md §7, the guarantee/assert split).
func Remove(data []byte, key []byte) {
	invariantCheck(data)
	idx := findIndex(data, key)
	guarantee(idx >= 0, "leaf: remove called with absent key")

	off := pairOffset(data, idx)
	deletePair(data, off)
	deleteOffset(data, idx)
	invariantCheck(data)
}

// Count returns the number of pairs currently stored in data.
func Count(data []byte) int {
	return count(data)
}

// KeyAt returns the key of the i-th pair in sorted order, for iteration by
// callers (storage/bplustree's scans, Split's median search).
func KeyAt(data []byte, i int) []byte {
	return keyAt(data, pairOffset(data, i))
}

// ValueAt returns the value of the i-th pair in sorted order.
func ValueAt(data []byte, i int) Value {
	return valueAt(data, pairOffset(data, i))
}
