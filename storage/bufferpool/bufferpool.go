// Package bufferpool caches loaded pages in memory between the tree driver
// (storage/bplustree) and the disk manager. A ristretto TinyLFU cache
// (policy) is told about every page added, hit and removed, and supplies the
// hit ratio in GetStats; it decides neither admission nor eviction. Every
// page is admitted, and the pin-aware LRU walk in evictOne alone chooses
// which page to remove, since ristretto has no concept of a pinned page.
package bufferpool

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/log"
	"github.com/shubhnegi/pagedkv/storage/page"
	"github.com/shubhnegi/pagedkv/types"
)

// NewBufferPool creates a buffer pool backed by diskManager with room for
// capacity pages.
func NewBufferPool(capacity int, diskManager *diskmanager.DiskManager) (*BufferPool, error) {
	policy, err := ristretto.NewCache(&ristretto.Config[int64, int64]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("NewBufferPool: failed to build admission policy: %w", err)
	}

	return &BufferPool{
		pages:       make(map[int64]*page.Page, capacity),
		capacity:    capacity,
		diskManager: diskManager,
		policy:      policy,
		accessOrder: make([]int64, 0, capacity),
		logger:      log.Noop,
	}, nil
}

// SetLogger installs a structured logger; the zero value logs nowhere.
func (bp *BufferPool) SetLogger(l log.Logger) {
	bp.logger = l
}

// FetchPage retrieves a page from the buffer pool, loading from disk if
// necessary, and returns it pinned.
func (bp *BufferPool) FetchPage(pageID int64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if pg, exists := bp.pages[pageID]; exists {
		bp.policy.Get(pageID) // records a hit against the admission policy
		bp.updateAccessOrder(pageID)
		pg.Lock()
		pg.PinCount++
		pg.Unlock()
		return pg, nil
	}

	if bp.diskManager == nil {
		return nil, fmt.Errorf("FetchPage: disk manager not set")
	}

	bp.logger.Debug("page fault: loading page %d from disk", pageID)
	pg, err := bp.diskManager.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("FetchPage: failed to read page %d from disk: %w", pageID, err)
	}

	if err := bp.addPage(pg); err != nil {
		return nil, fmt.Errorf("FetchPage: failed to add page to buffer pool: %w", err)
	}

	pg.Lock()
	pg.PinCount++
	pg.Unlock()
	return pg, nil
}

// NewPage asks the disk manager for the next available page ID in fileID,
// constructs a blank page in memory, marks it dirty, and pins it.
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return nil, fmt.Errorf("NewPage: disk manager not set")
	}

	pageID, err := bp.diskManager.AllocatePage(fileID, pageType)
	if err != nil {
		return nil, fmt.Errorf("NewPage: failed to allocate page: %w", err)
	}

	pg := diskmanager.NewPage(pageID, fileID, pageType)
	pg.IsDirty = true

	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	if err := bp.addPage(pg); err != nil {
		pg.Lock()
		pg.PinCount--
		pg.Unlock()
		return nil, fmt.Errorf("NewPage: failed to add new page to buffer pool: %w", err)
	}

	return pg, nil
}

// UnpinPage decrements the pin count for a page, optionally marking it dirty.
func (bp *BufferPool) UnpinPage(pageID int64, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("UnpinPage: page %d not in buffer pool", pageID)
	}

	pg.Lock()
	defer pg.Unlock()
	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if isDirty {
		pg.IsDirty = true
	}
	return nil
}

// FlushPage writes a specific page to disk if it is dirty.
func (bp *BufferPool) FlushPage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("FlushPage: page %d not in buffer pool", pageID)
	}

	pg.Lock()
	defer pg.Unlock()
	if !pg.IsDirty {
		return nil
	}
	if err := bp.diskManager.WritePage(pg); err != nil {
		return fmt.Errorf("FlushPage: failed to flush page %d: %w", pageID, err)
	}
	pg.IsDirty = false
	return nil
}

// FlushAllPages writes every dirty page in the pool to disk.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.diskManager == nil {
		return fmt.Errorf("FlushAllPages: disk manager not set")
	}

	for pageID, pg := range bp.pages {
		pg.Lock()
		if pg.IsDirty {
			if err := bp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("FlushAllPages: failed to flush page %d: %w", pageID, err)
			}
			pg.IsDirty = false
		}
		pg.Unlock()
	}
	return nil
}

// addPage installs page into the pool, evicting an unpinned victim first if
// the pool is already at capacity. Assumes bp.mu is held.
func (bp *BufferPool) addPage(pg *page.Page) error {
	if _, exists := bp.pages[pg.ID]; exists {
		bp.updateAccessOrder(pg.ID)
		return nil
	}

	if len(bp.pages) >= bp.capacity {
		if err := bp.evictOne(); err != nil {
			return fmt.Errorf("failed to evict page: %w", err)
		}
	}

	bp.pages[pg.ID] = pg
	bp.policy.Set(pg.ID, pg.ID, 1)
	bp.updateAccessOrder(pg.ID)
	return nil
}

// evictOne evicts the least-recently-used unpinned page, flushing it first
// if dirty. Assumes bp.mu is held.
func (bp *BufferPool) evictOne() error {
	for i := 0; i < len(bp.accessOrder); i++ {
		pageID := bp.accessOrder[i]
		pg, exists := bp.pages[pageID]
		if !exists {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			i--
			continue
		}

		pg.Lock()
		pinCount := pg.PinCount
		isDirty := pg.IsDirty
		if pinCount > 0 {
			pg.Unlock()
			continue
		}

		if isDirty && bp.diskManager != nil {
			if err := bp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("failed to write page %d during eviction: %w", pageID, err)
			}
			pg.IsDirty = false
		}
		pg.Unlock()

		delete(bp.pages, pageID)
		bp.policy.Del(pageID)
		bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
		bp.logger.Debug("evicted page %d dirty=%t", pageID, isDirty)
		return nil
	}
	return fmt.Errorf("all pages are pinned, cannot evict")
}

// updateAccessOrder moves pageID to the most-recently-used end of the LRU
// list. Assumes bp.mu is held.
func (bp *BufferPool) updateAccessOrder(pageID int64) {
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	bp.accessOrder = append(bp.accessOrder, pageID)
}

// DeletePage removes an unpinned page from the pool, e.g. after the driver
// frees a page following a merge.
func (bp *BufferPool) DeletePage(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return nil
	}

	pg.Lock()
	if pg.PinCount > 0 {
		pg.Unlock()
		return fmt.Errorf("DeletePage: cannot delete pinned page %d", pageID)
	}
	pg.Unlock()

	delete(bp.pages, pageID)
	bp.policy.Del(pageID)
	for i, id := range bp.accessOrder {
		if id == pageID {
			bp.accessOrder = append(bp.accessOrder[:i], bp.accessOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Close releases the admission policy's background goroutines. Call once
// the pool is no longer needed.
func (bp *BufferPool) Close() {
	bp.policy.Close()
}
