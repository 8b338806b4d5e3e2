package bplustree

import (
	"fmt"

	"github.com/shubhnegi/pagedkv/storage/page"
	"github.com/shubhnegi/pagedkv/types"
)

// propagateSplit installs a new separator key for a just-split child into
// its parent (the last entry of ancestors), splitting the parent in turn
// if it overflows, and so on up to the root. ancestors is consumed: every
// page in it is unpinned by the time propagateSplit returns, one way or
// another.
func (t *BPlusTree) propagateSplit(ancestors []*page.Page, sepKey []byte, leftID, rightID int64) error {
	if len(ancestors) == 0 {
		return t.createNewRoot(sepKey, leftID, rightID)
	}

	parent := ancestors[len(ancestors)-1]
	rest := ancestors[:len(ancestors)-1]

	keys, children := decodeInternal(parent.Data)
	idx := indexOfChild(children, leftID)
	if idx < 0 {
		t.unpinPath(ancestors, false)
		return fmt.Errorf("bplustree: split child %d not found in parent %d", leftID, parent.ID)
	}

	newKeys := insertKey(keys, idx, sepKey)
	newChildren := insertChild(children, idx+1, rightID)

	if !internalNodeFull(len(newKeys), t.maxInternalKey) {
		if err := encodeInternal(parent.Data, newKeys, newChildren); err != nil {
			t.unpinPath(ancestors, false)
			return fmt.Errorf("bplustree: failed to encode parent %d: %w", parent.ID, err)
		}
		t.bufferPool.UnpinPage(parent.ID, true)
		t.unpinPath(rest, false)
		return nil
	}

	mid := len(newKeys) / 2
	leftKeys, leftChildren := newKeys[:mid], newChildren[:mid+1]
	promoted := newKeys[mid]
	rightKeys, rightChildren := newKeys[mid+1:], newChildren[mid+1:]

	if err := encodeInternal(parent.Data, leftKeys, leftChildren); err != nil {
		t.unpinPath(ancestors, false)
		return fmt.Errorf("bplustree: failed to encode split-left internal %d: %w", parent.ID, err)
	}

	rightPg, err := t.bufferPool.NewPage(t.fileID, types.PageTypeBTreeInternal)
	if err != nil {
		t.unpinPath(ancestors, false)
		return fmt.Errorf("bplustree: failed to allocate internal split sibling: %w", err)
	}
	if err := encodeInternal(rightPg.Data, rightKeys, rightChildren); err != nil {
		t.bufferPool.UnpinPage(rightPg.ID, true)
		t.unpinPath(ancestors, false)
		return fmt.Errorf("bplustree: failed to encode split-right internal %d: %w", rightPg.ID, err)
	}
	if err := t.bufferPool.UnpinPage(rightPg.ID, true); err != nil {
		t.unpinPath(rest, false)
		return err
	}

	t.bufferPool.UnpinPage(parent.ID, true)
	return t.propagateSplit(rest, append([]byte(nil), promoted...), parent.ID, rightPg.ID)
}

// createNewRoot builds a fresh internal node holding the two halves of a
// split root and installs it as the tree's new root, growing the tree by
// one level.
func (t *BPlusTree) createNewRoot(sepKey []byte, leftID, rightID int64) error {
	rootPg, err := t.bufferPool.NewPage(t.fileID, types.PageTypeBTreeInternal)
	if err != nil {
		return fmt.Errorf("bplustree: failed to allocate new root: %w", err)
	}
	if err := encodeInternal(rootPg.Data, [][]byte{sepKey}, []int64{leftID, rightID}); err != nil {
		t.bufferPool.UnpinPage(rootPg.ID, true)
		return fmt.Errorf("bplustree: failed to encode new root: %w", err)
	}
	if err := t.bufferPool.UnpinPage(rootPg.ID, true); err != nil {
		return err
	}

	t.root = rootPg.ID
	if err := t.diskManager.WriteRootID(t.fileID, t.root); err != nil {
		return fmt.Errorf("bplustree: failed to persist new root ID: %w", err)
	}
	t.logger.Debug("grew tree to new root page=%d sep=%q", t.root, sepKey)
	return nil
}
