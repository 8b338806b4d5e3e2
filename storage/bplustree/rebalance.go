package bplustree

import (
	"fmt"

	"github.com/shubhnegi/pagedkv/storage/leaf"
	"github.com/shubhnegi/pagedkv/storage/page"
)

// rebalanceLeaf is called once Delete has left the path's leaf underfull.
// It first tries leaf.Merge (fold the left page of the pair into the right
// one and drop the separator from the parent) when leaf.IsMergeable allows
// it, and otherwise falls back to leaf.Level (redistribute pairs with the
// sibling, updating the parent's separator); if Level moves nothing, the
// leaf is left underfull. path is fully consumed: every page on it is
// unpinned by the time this returns.
func (t *BPlusTree) rebalanceLeaf(path []*page.Page) error {
	n := len(path)
	leafPage := path[n-1]
	parent := path[n-2]
	grandAncestors := path[:n-2]

	keys, children := decodeInternal(parent.Data)
	idx := indexOfChild(children, leafPage.ID)
	if idx < 0 {
		t.bufferPool.UnpinPage(leafPage.ID, true)
		t.unpinPath(path[:n-1], false)
		return fmt.Errorf("bplustree: leaf %d not found in parent %d", leafPage.ID, parent.ID)
	}

	var siblingID int64
	useRight := idx+1 < len(children)
	if useRight {
		siblingID = children[idx+1]
	} else {
		siblingID = children[idx-1]
	}

	sibPg, err := t.bufferPool.FetchPage(siblingID)
	if err != nil {
		t.bufferPool.UnpinPage(leafPage.ID, true)
		t.unpinPath(path[:n-1], false)
		return fmt.Errorf("bplustree: failed to fetch sibling %d: %w", siblingID, err)
	}

	var leftPg, rightPg *page.Page
	var sepIdx, leftChildIdx int
	if useRight {
		leftPg, rightPg, sepIdx, leftChildIdx = leafPage, sibPg, idx, idx
	} else {
		leftPg, rightPg, sepIdx, leftChildIdx = sibPg, leafPage, idx-1, idx-1
	}

	if leaf.IsMergeable(leftPg.Data, rightPg.Data, t.leafEpsilon) {
		leaf.Merge(leftPg.Data, rightPg.Data)

		newKeys, newChildren := removeKeyAndChild(keys, children, sepIdx, leftChildIdx)
		t.bufferPool.UnpinPage(leftPg.ID, false)
		t.bufferPool.DeletePage(leftPg.ID) // disk space for the folded page is not reclaimed, see DESIGN.md

		if len(grandAncestors) == 0 && len(newKeys) == 0 {
			// Parent was the root and has just lost its last separator:
			// collapse the tree by one level.
			t.root = newChildren[0]
			if err := t.diskManager.WriteRootID(t.fileID, t.root); err != nil {
				t.bufferPool.UnpinPage(rightPg.ID, true)
				t.bufferPool.UnpinPage(parent.ID, false)
				t.bufferPool.DeletePage(parent.ID)
				return fmt.Errorf("bplustree: failed to persist collapsed root: %w", err)
			}
			t.bufferPool.UnpinPage(parent.ID, false)
			t.bufferPool.DeletePage(parent.ID)
			t.bufferPool.UnpinPage(rightPg.ID, true)
			t.logger.Debug("collapsed root, new root page=%d", t.root)
			return nil
		}

		if err := encodeInternal(parent.Data, newKeys, newChildren); err != nil {
			t.bufferPool.UnpinPage(rightPg.ID, true)
			t.unpinPath(grandAncestors, false)
			t.bufferPool.UnpinPage(parent.ID, true)
			return fmt.Errorf("bplustree: failed to encode parent %d after merge: %w", parent.ID, err)
		}
		t.bufferPool.UnpinPage(rightPg.ID, true)
		t.bufferPool.UnpinPage(parent.ID, true)
		t.unpinPath(grandAncestors, false)
		return nil
	}

	// Merge isn't possible (combined size still wouldn't fit one page);
	// try to redistribute instead. leaf.Level always receives the
	// underfull side first.
	_, replacement, ok := leaf.Level(leafPage.Data, sibPg.Data)
	if !ok {
		t.bufferPool.UnpinPage(sibPg.ID, false)
		t.unpinPath(path[:n-1], false)
		t.bufferPool.UnpinPage(leafPage.ID, true)
		return nil
	}

	newKeys := make([][]byte, len(keys))
	copy(newKeys, keys)
	newKeys[sepIdx] = append([]byte(nil), replacement...)
	if err := encodeInternal(parent.Data, newKeys, children); err != nil {
		t.bufferPool.UnpinPage(sibPg.ID, true)
		t.bufferPool.UnpinPage(leafPage.ID, true)
		t.unpinPath(grandAncestors, false)
		return fmt.Errorf("bplustree: failed to encode parent %d after level: %w", parent.ID, err)
	}

	t.bufferPool.UnpinPage(sibPg.ID, true)
	t.bufferPool.UnpinPage(leafPage.ID, true)
	t.bufferPool.UnpinPage(parent.ID, true)
	t.unpinPath(grandAncestors, false)
	return nil
}
