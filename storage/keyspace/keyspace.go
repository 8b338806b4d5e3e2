package keyspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shubhnegi/pagedkv/storage/bplustree"
	"github.com/shubhnegi/pagedkv/storage/bufferpool"
	"github.com/shubhnegi/pagedkv/storage/diskmanager"
	"github.com/shubhnegi/pagedkv/storage/log"
)

// NewManager creates a keyspace manager rooted at baseDir, creating the
// directory if it doesn't already exist.
func NewManager(baseDir string, dm *diskmanager.DiskManager, bp *bufferpool.BufferPool, maxInternalFanout, leafEpsilon int, logger log.Logger) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("keyspace: failed to create %s: %w", baseDir, err)
	}
	if logger == nil {
		logger = log.Noop
	}

	return &Manager{
		baseDir:           baseDir,
		trees:             make(map[string]*bplustree.BPlusTree),
		bufferPool:        bp,
		diskManager:       dm,
		maxInternalFanout: maxInternalFanout,
		leafEpsilon:       leafEpsilon,
		logger:            logger,
	}, nil
}

func (m *Manager) pathFor(name string) string {
	return filepath.Join(m.baseDir, name+".idx")
}

// GetOrCreate returns the B+ tree for a named keyspace, opening or creating
// its backing file the first time the name is seen and caching the result
// for subsequent calls.
func (m *Manager) GetOrCreate(name string) (*bplustree.BPlusTree, error) {
	m.mu.RLock()
	tree, exists := m.trees[name]
	m.mu.RUnlock()
	if exists {
		return tree, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if tree, exists := m.trees[name]; exists {
		return tree, nil
	}

	path := m.pathFor(name)
	fileID, err := m.diskManager.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyspace: failed to open %q: %w", name, err)
	}

	tree, err = bplustree.Open(fileID, m.bufferPool, m.diskManager, m.maxInternalFanout, m.leafEpsilon, m.logger)
	if err != nil {
		return nil, fmt.Errorf("keyspace: failed to open B+ tree for %q: %w", name, err)
	}

	m.trees[name] = tree
	m.logger.Info("opened keyspace name=%s fileID=%d", name, fileID)
	return tree, nil
}

// Close flushes and evicts the named keyspace's tree from the cache.
func (m *Manager) Close(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tree, exists := m.trees[name]
	if !exists {
		return nil
	}
	if err := tree.Close(); err != nil {
		return fmt.Errorf("keyspace: failed to close %q: %w", name, err)
	}
	delete(m.trees, name)
	return nil
}

// CloseAll flushes and evicts every cached keyspace, e.g. on shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for name, tree := range m.trees {
		if err := tree.Close(); err != nil {
			lastErr = fmt.Errorf("keyspace: failed to close %q: %w", name, err)
		}
		delete(m.trees, name)
	}
	return lastErr
}

// Load opens an existing keyspace file without creating it if missing, for
// preloading known keyspaces at startup.
func (m *Manager) Load(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.trees[name]; exists {
		return nil
	}

	path := m.pathFor(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("keyspace: %q not found at %s", name, path)
	}

	fileID, err := m.diskManager.OpenFile(path)
	if err != nil {
		return fmt.Errorf("keyspace: failed to open %q: %w", name, err)
	}

	tree, err := bplustree.Open(fileID, m.bufferPool, m.diskManager, m.maxInternalFanout, m.leafEpsilon, m.logger)
	if err != nil {
		return fmt.Errorf("keyspace: failed to load %q: %w", name, err)
	}

	m.trees[name] = tree
	return nil
}

// Names returns the keyspace names currently cached in memory.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.trees))
	for name := range m.trees {
		names = append(names, name)
	}
	return names
}
