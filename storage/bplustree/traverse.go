package bplustree

import (
	"fmt"

	"github.com/shubhnegi/pagedkv/storage/page"
	"github.com/shubhnegi/pagedkv/types"
)

// findLeaf walks from the root to the leaf that owns key, pinning every
// page along the way. The caller is responsible for unpinning the
// returned path (unpinPath) once it is done reading or mutating it.
func (t *BPlusTree) findLeaf(key []byte) ([]*page.Page, error) {
	path := make([]*page.Page, 0, 4)

	pg, err := t.bufferPool.FetchPage(t.root)
	if err != nil {
		return nil, fmt.Errorf("bplustree: failed to fetch root %d: %w", t.root, err)
	}
	path = append(path, pg)

	for pg.PageType == types.PageTypeBTreeInternal {
		keys, children := decodeInternal(pg.Data)
		idx := childIndex(keys, key)
		child, err := t.bufferPool.FetchPage(children[idx])
		if err != nil {
			t.unpinPath(path, false)
			return nil, fmt.Errorf("bplustree: failed to fetch child %d: %w", children[idx], err)
		}
		path = append(path, child)
		pg = child
	}
	return path, nil
}

// unpinPath releases every page on path in reverse order (leaf first),
// optionally marking each dirty.
func (t *BPlusTree) unpinPath(path []*page.Page, dirty bool) {
	for i := len(path) - 1; i >= 0; i-- {
		t.bufferPool.UnpinPage(path[i].ID, dirty)
	}
}

// markDirtyAndUnpin releases path, marking only the leaf (the last entry)
// dirty; used by the no-split Put fast path where ancestors were read but
// never modified.
func (t *BPlusTree) markDirtyAndUnpin(path []*page.Page) {
	last := len(path) - 1
	t.bufferPool.UnpinPage(path[last].ID, true)
	for i := last - 1; i >= 0; i-- {
		t.bufferPool.UnpinPage(path[i].ID, false)
	}
}
