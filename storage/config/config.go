// Package config resolves the engine's tunables (page size, buffer pool
// capacity, the leaf's anti-oscillation epsilon, internal-node fan-out) from
// a TOML file, following the teacher repo's flat-struct-plus-defaults
// pattern (storage_engine had no file-backed config of its own; this
// generalizes the style of pkg/config in jeremytregunna-kevo to a TOML
// loader, which is what the wider retrieval pack reaches for).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable the storage engine needs at startup. Zero
// value is intentionally invalid — callers must go through Default() or
// Load() so every field is explicitly resolved.
type Config struct {
	// DataDir is the directory holding keyspace (.idx) files.
	DataDir string `toml:"data_dir"`

	// PageSize is read and validated but not used by the storage packages:
	// every page is the compile-time types.PageSize (4096 bytes), whatever
	// this field holds.
	PageSize int `toml:"page_size"`

	// BufferPoolCapacity is the maximum number of pages held in memory at
	// once before the buffer pool's LRU walk starts evicting unpinned pages.
	BufferPoolCapacity int `toml:"buffer_pool_capacity"`

	// LeafEpsilon is LEAF_EPSILON from spec.md §4.7 — the slack built into
	// is_mergable/is_underfull so a leaf produced by split is never
	// immediately classified underfull. storage/leaf takes it as the epsilon
	// parameter of IsMergeable and IsUnderfull.
	LeafEpsilon int `toml:"leaf_epsilon"`

	// MaxInternalFanout bounds the number of children an internal node may
	// hold before storage/bplustree splits it (internal nodes are an
	// out-of-scope collaborator for the leaf spec, but the driver still
	// needs a fan-out limit to decide when to split one).
	MaxInternalFanout int `toml:"max_internal_fanout"`

	LogLevel string `toml:"log_level"`
}

// Default returns the engine's recommended configuration for dbPath.
func Default(dbPath string) *Config {
	return &Config{
		DataDir:            dbPath,
		PageSize:           4096,
		BufferPoolCapacity: 256,
		LeafEpsilon:        24,
		MaxInternalFanout:  64,
		LogLevel:           "info",
	}
}

// Load reads a TOML config file, starting from Default(dbPath) so any field
// the file omits still gets a sane value.
func Load(path string, dbPath string) (*Config, error) {
	cfg := Default(dbPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PageSize < 512 {
		return fmt.Errorf("config: page_size must be >= 512, got %d", c.PageSize)
	}
	if c.BufferPoolCapacity < 1 {
		return fmt.Errorf("config: buffer_pool_capacity must be >= 1, got %d", c.BufferPoolCapacity)
	}
	if c.LeafEpsilon < 0 {
		return fmt.Errorf("config: leaf_epsilon must be >= 0, got %d", c.LeafEpsilon)
	}
	if c.MaxInternalFanout < 3 {
		return fmt.Errorf("config: max_internal_fanout must be >= 3, got %d", c.MaxInternalFanout)
	}
	return nil
}
