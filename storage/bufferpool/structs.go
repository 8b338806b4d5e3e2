package bufferpool

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/log"
	"github.com/shubhnegi/pagedkv/storage/page"
)

// BufferPool manages cached pages in memory. Hit-rate scoring is delegated
// to a ristretto TinyLFU cache (policy), whose admission result is not
// consulted; the authoritative page table and the pin-aware eviction walk
// remain this struct's own, since ristretto has no notion of a pinned page.
type BufferPool struct {
	pages       map[int64]*page.Page // pageID -> Page
	capacity    int
	diskManager *diskmanager.DiskManager
	policy      *ristretto.Cache[int64, int64]
	accessOrder []int64 // LRU tracking for the deterministic eviction walk
	logger      log.Logger
	mu          sync.Mutex
}

// BufferPoolStats reports current occupancy plus ristretto's observed hit
// ratio across the pool's lifetime.
type BufferPoolStats struct {
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
	HitRate     float64
}
