package bplustree

import (
	"bytes"
	"fmt"

	"github.com/shubhnegi/pagedkv/storage/bufferpool"
	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/leaf"
	"github.com/shubhnegi/pagedkv/storage/log"
	"github.com/shubhnegi/pagedkv/types"
)

// Open attaches a B+ tree driver to an already-open keyspace file, reading
// its persisted root page ID. If the file has no root yet (a fresh
// keyspace), Open allocates an empty leaf and installs it as the root.
func Open(fileID uint32, bp *bufferpool.BufferPool, dm *diskmanager.DiskManager, maxInternalKeys, leafEpsilon int, logger log.Logger) (*BPlusTree, error) {
	if logger == nil {
		logger = log.Noop
	}
	if maxInternalKeys < 3 {
		maxInternalKeys = defaultMaxInternalKeys
	}

	t := &BPlusTree{
		fileID:         fileID,
		bufferPool:     bp,
		diskManager:    dm,
		maxInternalKey: maxInternalKeys,
		leafEpsilon:    leafEpsilon,
		logger:         logger,
	}

	rootID, err := dm.ReadRootID(fileID)
	if err == nil && rootID != 0 {
		t.root = rootID
		return t, nil
	}

	pg, err := bp.NewPage(fileID, types.PageTypeBTreeLeaf)
	if err != nil {
		return nil, fmt.Errorf("bplustree.Open: failed to allocate root leaf: %w", err)
	}
	leaf.Init(pg.Data)
	t.root = pg.ID
	if err := bp.UnpinPage(pg.ID, true); err != nil {
		return nil, fmt.Errorf("bplustree.Open: failed to unpin new root: %w", err)
	}
	if err := dm.WriteRootID(fileID, t.root); err != nil {
		return nil, fmt.Errorf("bplustree.Open: failed to persist root ID: %w", err)
	}
	logger.Info("opened keyspace fileID=%d with fresh root page=%d", fileID, t.root)
	return t, nil
}

// Close flushes every page touched by this tree's buffer pool back to disk.
// The tree owns no resources beyond the buffer pool and disk manager handed
// to it at Open, so Close is a flush, not a teardown.
func (t *BPlusTree) Close() error {
	return t.bufferPool.FlushAllPages()
}

// Get looks up key, returning its value and whether it was found.
func (t *BPlusTree) Get(key []byte) (leaf.Value, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	path, err := t.findLeaf(key)
	if err != nil {
		return leaf.Value{}, false, err
	}
	defer t.unpinPath(path, false)

	leafPage := path[len(path)-1]
	v, ok := leaf.Lookup(leafPage.Data, key)
	return v, ok, nil
}

// Put inserts or replaces key with value, splitting leaves and internal
// nodes up the path as needed.
func (t *BPlusTree) Put(key []byte, value leaf.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.findLeaf(key)
	if err != nil {
		return err
	}

	leafPage := path[len(path)-1]
	if leaf.Insert(leafPage.Data, key, value) {
		t.markDirtyAndUnpin(path)
		return nil
	}

	// Leaf is full: split it, then propagate the new separator upward.
	rightPg, err := t.bufferPool.NewPage(t.fileID, types.PageTypeBTreeLeaf)
	if err != nil {
		t.unpinPath(path, false)
		return fmt.Errorf("bplustree.Put: failed to allocate split sibling: %w", err)
	}
	median := leaf.Split(leafPage.Data, rightPg.Data)

	// The separator is the left half's last key: key belongs on the left
	// when it sorts at or before it, on the right otherwise.
	target := rightPg.Data
	if bytes.Compare(key, median) <= 0 {
		target = leafPage.Data
	}
	if ok := leaf.Insert(target, key, value); !ok {
		t.unpinPath(path, false)
		t.bufferPool.UnpinPage(rightPg.ID, true)
		return fmt.Errorf("bplustree.Put: key does not fit in its half after split")
	}

	if err := t.bufferPool.UnpinPage(rightPg.ID, true); err != nil {
		return err
	}

	ancestors := path[:len(path)-1]
	if err := t.propagateSplit(ancestors, median, leafPage.ID, rightPg.ID); err != nil {
		t.bufferPool.UnpinPage(leafPage.ID, true)
		return err
	}
	return t.bufferPool.UnpinPage(leafPage.ID, true)
}

// Delete removes key, rebalancing the leaf with a sibling when it falls
// underfull. Internal nodes are not merged or redistributed; the only
// internal-level change is collapsing a root left with a single child.
// Deleting an absent key is a no-op, matching
// storage/leaf's own guarantee-on-absence behavior pushed up a level: the
// driver checks presence first so callers never trip the leaf's panic.
func (t *BPlusTree) Delete(key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	path, err := t.findLeaf(key)
	if err != nil {
		return err
	}

	leafPage := path[len(path)-1]
	if _, ok := leaf.Lookup(leafPage.Data, key); !ok {
		t.unpinPath(path, false)
		return nil
	}
	leaf.Remove(leafPage.Data, key)
	leafPage.IsDirty = true

	if len(path) == 1 {
		// Root is itself a leaf; an empty root is left in place rather than
		// freed, per spec.md's treatment of an empty tree as a valid state.
		t.markDirtyAndUnpin(path)
		return nil
	}

	if !leaf.IsUnderfull(leafPage.Data, t.leafEpsilon) {
		t.markDirtyAndUnpin(path)
		return nil
	}

	if err := t.rebalanceLeaf(path); err != nil {
		return err
	}
	return nil
}
