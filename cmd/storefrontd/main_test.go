package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Storage.Accounts.Driver != "file" || cfg.Browse.PageSize != 6 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigUsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("browse:\n  page_size: 9\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STOREFRONT_CONFIG", path)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Browse.PageSize != 9 {
		t.Fatalf("expected page size 9, got %d", cfg.Browse.PageSize)
	}
}

func TestLoadConfigMissingEnvPathFails(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for a missing explicit config")
	}
}
