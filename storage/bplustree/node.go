package bplustree

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// internalMagic is stamped at the start of every internal node by
// encodeInternal, distinct from storage/leaf's own magic. Nothing reads it
// back: findLeaf routes a loaded page by its PageType, and decodeInternal
// does not check it.
const internalMagic uint32 = 0x494e5444 // "INTD"

const internalHeaderSize = 6 // magic(4) + numKeys(2)

// encodeInternal writes keys and children (len(children) == len(keys)+1)
// into data using a simple sequential, length-prefixed layout: unlike
// storage/leaf's slotted page, internal nodes are never mutated in place —
// every insert/remove/split here rewrites the whole node, so there is no
// need for a two-cursor free-space scheme.
func encodeInternal(data []byte, keys [][]byte, children []int64) error {
	if len(children) != len(keys)+1 {
		return fmt.Errorf("encodeInternal: %d children for %d keys, want %d", len(children), len(keys), len(keys)+1)
	}

	binary.LittleEndian.PutUint32(data[0:4], internalMagic)
	binary.LittleEndian.PutUint16(data[4:6], uint16(len(keys)))

	off := internalHeaderSize
	for _, k := range keys {
		if off+1+len(k) > len(data) {
			return fmt.Errorf("encodeInternal: node overflow at %d keys", len(keys))
		}
		data[off] = byte(len(k))
		copy(data[off+1:], k)
		off += 1 + len(k)
	}
	for _, child := range children {
		if off+8 > len(data) {
			return fmt.Errorf("encodeInternal: node overflow writing children")
		}
		binary.LittleEndian.PutUint64(data[off:off+8], uint64(child))
		off += 8
	}
	return nil
}

// decodeInternal reads back the keys and children encodeInternal wrote.
func decodeInternal(data []byte) (keys [][]byte, children []int64) {
	n := int(binary.LittleEndian.Uint16(data[4:6]))
	off := internalHeaderSize
	keys = make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		keyLen := int(data[off])
		keys = append(keys, append([]byte(nil), data[off+1:off+1+keyLen]...))
		off += 1 + keyLen
	}
	children = make([]int64, 0, n+1)
	for i := 0; i <= n; i++ {
		children = append(children, int64(binary.LittleEndian.Uint64(data[off:off+8])))
		off += 8
	}
	return keys, children
}

// childIndex returns the index of the child to descend into for key, using
// the same lower-bound convention as storage/leaf's directory search:
// equality takes the left branch, since a separator is the last key of its
// left child (leaf.Split and leaf.Level both install it that way).
func childIndex(keys [][]byte, key []byte) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// indexOfChild returns the position of childID within children, or -1.
func indexOfChild(children []int64, childID int64) int {
	for i, c := range children {
		if c == childID {
			return i
		}
	}
	return -1
}

// insertKey returns a copy of keys with k inserted at position idx.
func insertKey(keys [][]byte, idx int, k []byte) [][]byte {
	out := make([][]byte, 0, len(keys)+1)
	out = append(out, keys[:idx]...)
	out = append(out, k)
	out = append(out, keys[idx:]...)
	return out
}

// insertChild returns a copy of children with childID inserted at position idx.
func insertChild(children []int64, idx int, childID int64) []int64 {
	out := make([]int64, 0, len(children)+1)
	out = append(out, children[:idx]...)
	out = append(out, childID)
	out = append(out, children[idx:]...)
	return out
}

// removeKeyAndChild returns copies of keys/children with separator keyIdx
// and child childIdx removed, used when a merge/level collapses a child out
// of its parent.
func removeKeyAndChild(keys [][]byte, children []int64, keyIdx, childIdx int) ([][]byte, []int64) {
	newKeys := make([][]byte, 0, len(keys)-1)
	newKeys = append(newKeys, keys[:keyIdx]...)
	newKeys = append(newKeys, keys[keyIdx+1:]...)

	newChildren := make([]int64, 0, len(children)-1)
	newChildren = append(newChildren, children[:childIdx]...)
	newChildren = append(newChildren, children[childIdx+1:]...)
	return newKeys, newChildren
}

// internalNodeFull reports whether a node with numKeys separator keys has
// reached the maxKeys fanout limit storage/config supplies, in which case
// propagateSplit splits it instead of encoding it. Key lengths are not
// considered, since the sequential encoding has no notion of a full page
// the way storage/leaf does.
func internalNodeFull(numKeys, maxKeys int) bool {
	return numKeys >= maxKeys
}
