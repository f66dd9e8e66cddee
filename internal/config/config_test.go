package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults for a missing config file, got %+v", cfg)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"listen_addr":":9090","lock_seconds":60}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.LockDuration() != 60*time.Second {
		t.Fatalf("LockDuration = %v", cfg.LockDuration())
	}
}

func TestLockDurationFallsBackWhenUnset(t *testing.T) {
	cfg := Config{}
	if cfg.LockDuration() != 300*time.Second {
		t.Fatalf("expected a 300s fallback, got %v", cfg.LockDuration())
	}
}

func TestNewWatcherLoadsCurrentConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"listen_addr":":7070"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if w.Current().ListenAddr != ":7070" {
		t.Fatalf("Current().ListenAddr = %q", w.Current().ListenAddr)
	}
}
