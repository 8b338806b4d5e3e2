// Package bplustree is the tree-traversal driver that spec.md treats as an
// external collaborator of the leaf node: it decides which leaf to mutate,
// walks internal nodes to get there, and rebalances (split/merge/level)
// once storage/leaf reports a leaf is full or underfull.
//
// Structure:
//
//	Tree
//	 +-- internal node (keys + child page IDs)
//	 |     +-- child internal nodes ...
//	 |           +-- leaf nodes (storage/leaf slotted pages)
//
// Internal nodes use their own dense, sequentially-grown encoding (see
// node.go) rather than the leaf's two-cursor slotted layout — spec.md §1
// explicitly scopes the internal-node layout out, so this package is free to
// keep it simple.
package bplustree

import (
	"sync"

	"github.com/shubhnegi/pagedkv/storage/bufferpool"
	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/log"
)

const (
	// defaultMaxInternalKeys is the separator-key limit at which an internal
	// node splits when Open is given a limit below 3; otherwise the caller's
	// value (storage/config's MaxInternalFanout) is used.
	defaultMaxInternalKeys = 64
)

// BPlusTree is the on-disk B+ tree index: internal nodes addressed by
// global page ID, leaves formatted per storage/leaf.
type BPlusTree struct {
	fileID         uint32
	root           int64
	bufferPool     *bufferpool.BufferPool
	diskManager    *diskmanager.DiskManager
	maxInternalKey int
	leafEpsilon    int
	logger         log.Logger
	mu             sync.RWMutex
}
