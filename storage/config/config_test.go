package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default("/tmp/db")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), "/tmp/db")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PageSize != 4096 {
		t.Fatalf("expected default page size, got %d", cfg.PageSize)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := "page_size = 8192\nbuffer_pool_capacity = 4\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PageSize != 8192 {
		t.Fatalf("expected overridden page size 8192, got %d", cfg.PageSize)
	}
	if cfg.BufferPoolCapacity != 4 {
		t.Fatalf("expected overridden buffer pool capacity 4, got %d", cfg.BufferPoolCapacity)
	}
	if cfg.LeafEpsilon != 24 {
		t.Fatalf("expected default leaf epsilon to survive partial override, got %d", cfg.LeafEpsilon)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default("/tmp/db")
	cfg.PageSize = 10
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for tiny page size")
	}
}
