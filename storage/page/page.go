// Package page defines the fixed-size buffer that every other storage
// package (diskmanager, bufferpool, leaf, bplustree) treats as the unit of
// I/O and latching.
package page

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/shubhnegi/pagedkv/types"
)

const (
	// Size is the fixed on-disk block size for every page in the engine.
	Size = types.PageSize
)

/*
Page is the in-memory handle a cache-aware caller (bufferpool, leaf, bplustree)
gets back for a loaded block. The actual byte layout inside Data is owned by
whichever package interprets it (storage/leaf for B-tree leaves, bplustree's
internal-node codec for internal nodes) — this package only owns the buffer,
its dirty/pin bookkeeping, and the per-page latch.

A single exclusive latch holder may mutate Data; lookups only need the shared
(read) latch. The buffer pool takes the latch only around pin-count and dirty
bookkeeping; storage/bplustree takes no page latches and instead serializes
its operations, merge and level included, with a per-tree RWMutex.
*/
type Page struct {
	ID       int64
	FileID   uint32
	Data     []byte
	IsDirty  bool
	PinCount int32
	PageType types.PageType
	mu       sync.RWMutex
}

func New(id int64, fileID uint32, pageType types.PageType) *Page {
	return &Page{
		ID:       id,
		FileID:   fileID,
		Data:     make([]byte, Size),
		PageType: pageType,
	}
}

func (p *Page) Lock() {
	p.mu.Lock()
}

func (p *Page) Unlock() {
	p.mu.Unlock()
}

func (p *Page) RLock() {
	p.mu.RLock()
}

func (p *Page) RUnlock() {
	p.mu.RUnlock()
}

// Checksum returns an xxhash64 digest of the page's current bytes. The disk
// manager stamps this at the tail of every write and verifies it on read, the
// same integrity convention jeremytregunna-kevo's sstable block reader uses
// for its block footer.
func (p *Page) Checksum() uint64 {
	return xxhash.Sum64(p.Data)
}
