// Package leaf implements the slotted-page B-tree leaf node: a single
// fixed-size block storing a sorted set of variable-length key/value pairs,
// with a directory of slots growing up from the header and a pair heap
// growing down from the end of the block.
//
// The package is a single handler over caller-supplied page bytes — it
// allocates nothing and blocks on nothing. Every exported function assumes
// its caller holds the appropriate latch on the page (see storage/page and
// storage/bufferpool); this package itself has no locks.
package leaf

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// Magic identifies a block as a leaf page. Stamped by Init, checked by
	// the invariant pass (when DebugChecks is set) that Lookup, Insert,
	// Remove and InitFrom run.
	Magic uint32 = 0x4c454146 // "LEAF"

	// HeaderSize is H from spec.md §2: magic(4) + n(2) + frontmost_offset(2).
	HeaderSize = 8

	offMagic      = 0
	offCount      = 4
	offFrontmost  = 6
	slotSize      = 2 // each directory entry is a uint16 offset
	maxKeyLen     = 255
)

// ValueHeader is the fixed F-byte header spec.md §3 says precedes every
// value's payload, with mem_size() "derivable from the header" (§3) — so
// the header carries an explicit payload length alongside the two fields
// the tree driver and caller actually care about: Tombstone and SeqNum,
// mirroring the sequence-number/tombstone convention jeremytregunna-kevo's
// sstable block format uses for the same purpose. The leaf itself never
// interprets Tombstone or SeqNum; it only reads PayloadLen to know how many
// trailing bytes to copy.
type ValueHeader struct {
	Tombstone  bool
	SeqNum     uint64
	PayloadLen uint32
}

// ValueHeaderSize is F from spec.md §3/§6: 1 tombstone byte + 8
// sequence-number bytes + 4 payload-length bytes.
const ValueHeaderSize = 13

func (h ValueHeader) encode(dst []byte) {
	if h.Tombstone {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	binary.LittleEndian.PutUint64(dst[1:9], h.SeqNum)
	binary.LittleEndian.PutUint32(dst[9:13], h.PayloadLen)
}

func decodeValueHeader(src []byte) ValueHeader {
	return ValueHeader{
		Tombstone:  src[0] != 0,
		SeqNum:     binary.LittleEndian.Uint64(src[1:9]),
		PayloadLen: binary.LittleEndian.Uint32(src[9:13]),
	}
}

// Value is the opaque payload the leaf copies verbatim. MemSize is the
// value.mem_size() collaborator named in spec.md §6.
type Value struct {
	Header  ValueHeader
	Payload []byte
}

// NewValue builds a Value with its header's PayloadLen kept in sync with
// payload — the only supported way to construct one, so MemSize() is never
// out of sync with what gets written to the heap.
func NewValue(payload []byte, tombstone bool, seqNum uint64) Value {
	return Value{
		Header: ValueHeader{
			Tombstone:  tombstone,
			SeqNum:     seqNum,
			PayloadLen: uint32(len(payload)),
		},
		Payload: payload,
	}
}

// MemSize returns the number of payload bytes following the value header, as
// recorded in the header itself rather than measured from Payload, so a
// Value decoded straight off the page (valueAt) reports the same size a
// freshly constructed one would.
func (v Value) MemSize() int {
	return int(v.Header.PayloadLen)
}

// pairSize returns key_prefix(1) + key.len + F + value.mem_size, spec.md §3.
func pairSize(keyLen int, value Value) int {
	return 1 + keyLen + ValueHeaderSize + value.MemSize()
}

// compareKeys is sized_strcmp from spec.md §6: unsigned-byte lexicographic
// comparison where a shorter key that shares the longer key's prefix sorts
// first. bytes.Compare already implements exactly this ordering in Go.
func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}

// DebugChecks gates the invariant re-validation pass that runs after every
// mutating call, the two-tier assertion discipline described in spec.md §9
// ("Assertion vs guarantee vocabulary"). Caller-contract violations always
// panic via guarantee regardless of this flag.
var DebugChecks = true

func guarantee(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("leaf: "+format, args...))
	}
}
