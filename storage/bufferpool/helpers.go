package bufferpool

import (
	"fmt"

	"github.com/shubhnegi/pagedkv/storage/page"
)

// GetStats returns current buffer pool statistics, including ristretto's
// observed hit ratio since the pool was created.
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	stats := BufferPoolStats{
		TotalPages: len(bp.pages),
		Capacity:   bp.capacity,
	}

	for _, pg := range bp.pages {
		pg.RLock()
		if pg.PinCount > 0 {
			stats.PinnedPages++
		}
		if pg.IsDirty {
			stats.DirtyPages++
		}
		pg.RUnlock()
	}

	if m := bp.policy.Metrics; m != nil {
		stats.HitRate = m.Ratio()
	}
	return stats
}

// Reset flushes every dirty page and clears the pool.
func (bp *BufferPool) Reset() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, pg := range bp.pages {
		pg.Lock()
		if pg.IsDirty && bp.diskManager != nil {
			if err := bp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("Reset: failed to flush page during reset: %w", err)
			}
		}
		pg.Unlock()
	}

	for id := range bp.pages {
		bp.policy.Del(id)
	}
	bp.pages = make(map[int64]*page.Page, bp.capacity)
	bp.accessOrder = bp.accessOrder[:0]
	return nil
}

// Size returns the current number of pages held in the pool.
func (bp *BufferPool) Size() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pages)
}

// Capacity returns the pool's maximum page count.
func (bp *BufferPool) Capacity() int {
	return bp.capacity
}

// GetPage returns a page already resident in the pool without touching
// disk, or nil if it isn't cached.
func (bp *BufferPool) GetPage(pageID int64) *page.Page {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.pages[pageID]
}

// MarkDirty flags a resident page as modified.
func (bp *BufferPool) MarkDirty(pageID int64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pg, exists := bp.pages[pageID]
	if !exists {
		return fmt.Errorf("MarkDirty: page %d not in buffer pool", pageID)
	}

	pg.Lock()
	pg.IsDirty = true
	pg.Unlock()
	return nil
}
