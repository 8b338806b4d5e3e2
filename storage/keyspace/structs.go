// Package keyspace manages the set of named B+ tree files a running engine
// has open, the same per-name caching role storage_engine's index file
// manager played for per-table primary indexes, generalized here from
// SQL tables to arbitrary named keyspaces.
package keyspace

import (
	"sync"

	"github.com/shubhnegi/pagedkv/storage/bplustree"
	"github.com/shubhnegi/pagedkv/storage/bufferpool"
	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/log"
)

// Manager opens and caches B+ trees backing named keyspaces, each its own
// file under baseDir.
type Manager struct {
	baseDir           string
	trees             map[string]*bplustree.BPlusTree
	bufferPool        *bufferpool.BufferPool
	diskManager       *diskmanager.DiskManager
	maxInternalFanout int
	leafEpsilon       int
	logger            log.Logger
	mu                sync.RWMutex
}
