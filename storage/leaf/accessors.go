package leaf

import "encoding/binary"

// The accessors below are the only place this package reinterprets page
// bytes as structured fields, per the Raw byte-offset layout design note in
// spec.md §9: every other function goes through these.

func magic(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data[offMagic:])
}

func setMagic(data []byte, v uint32) {
	binary.LittleEndian.PutUint32(data[offMagic:], v)
}

// count returns n, the number of pairs currently stored.
func count(data []byte) int {
	return int(binary.LittleEndian.Uint16(data[offCount:]))
}

func setCount(data []byte, n int) {
	binary.LittleEndian.PutUint16(data[offCount:], uint16(n))
}

// frontmost returns frontmost_offset: the lowest byte address currently
// occupied by the pair heap, or len(data) when the leaf is empty.
func frontmost(data []byte) int {
	return int(binary.LittleEndian.Uint16(data[offFrontmost:]))
}

func setFrontmost(data []byte, v int) {
	binary.LittleEndian.PutUint16(data[offFrontmost:], uint16(v))
}

// slotOffset returns the byte offset within data of directory entry i.
func slotOffset(i int) int {
	return HeaderSize + i*slotSize
}

// pairOffset returns pair_offsets[i]: the byte offset of the i-th pair in
// the heap, in key-sorted order.
func pairOffset(data []byte, i int) int {
	return int(binary.LittleEndian.Uint16(data[slotOffset(i):]))
}

func setPairOffset(data []byte, i int, offset int) {
	binary.LittleEndian.PutUint16(data[slotOffset(i):], uint16(offset))
}

// dirEnd is the first byte past the slot directory: H + n*2.
func dirEnd(data []byte) int {
	return HeaderSize + count(data)*slotSize
}

// keyLenAt returns the length of the key stored at the given heap offset.
func keyLenAt(data []byte, offset int) int {
	return int(data[offset])
}

// keyAt returns the key bytes of the pair at the given heap offset.
func keyAt(data []byte, offset int) []byte {
	keyLen := keyLenAt(data, offset)
	return data[offset+1 : offset+1+keyLen]
}

// valueHeaderAt returns the decoded value header of the pair at offset.
func valueHeaderAt(data []byte, offset int) ValueHeader {
	hdrStart := offset + 1 + keyLenAt(data, offset)
	return decodeValueHeader(data[hdrStart : hdrStart+ValueHeaderSize])
}

// pairSizeAt returns the total on-disk size of the pair at offset: spec.md
// §3's pair_size = 1 + key.len + F + value.mem_size, read entirely from the
// pair's own bytes (no scan of neighboring pairs required).
func pairSizeAt(data []byte, offset int) int {
	keyLen := keyLenAt(data, offset)
	hdr := valueHeaderAt(data, offset)
	return pairSize(keyLen, Value{Header: hdr})
}

// valueAt returns a copy of the decoded value (header + payload) of the pair
// at the given heap offset.
func valueAt(data []byte, offset int) Value {
	keyLen := keyLenAt(data, offset)
	hdrStart := offset + 1 + keyLen
	hdr := decodeValueHeader(data[hdrStart : hdrStart+ValueHeaderSize])
	payloadStart := hdrStart + ValueHeaderSize
	payload := make([]byte, hdr.PayloadLen)
	copy(payload, data[payloadStart:payloadStart+int(hdr.PayloadLen)])
	return Value{Header: hdr, Payload: payload}
}

// writePair encodes key and value starting at offset, in the on-disk pair
// layout of spec.md §6.
func writePair(data []byte, offset int, key []byte, value Value) {
	data[offset] = byte(len(key))
	copy(data[offset+1:], key)
	hdrStart := offset + 1 + len(key)
	value.Header.encode(data[hdrStart : hdrStart+ValueHeaderSize])
	copy(data[hdrStart+ValueHeaderSize:], value.Payload)
}
