// Package config loads config.json and watches it for changes with
// fsnotify, the same watcher shape the teacher's own file watcher used for
// live-editing content files, repurposed here to reparse operational
// settings on change. cmd/server applies a reloaded lock TTL to the Lock
// Registry; the HTTP listen address is only read once, at startup.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config is the live, hot-reloadable operational configuration.
type Config struct {
	ListenAddr  string `json:"listen_addr"`
	DBPath      string `json:"db_path"`
	MirrorDir   string `json:"mirror_dir"`
	LockSeconds int    `json:"lock_seconds"`
}

// Default returns the configuration used when no config.json is present.
func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		DBPath:      "noteforge.db",
		MirrorDir:   "./storage",
		LockSeconds: 300,
	}
}

// LockDuration converts LockSeconds to a time.Duration, falling back to
// lock.DefaultDuration's value (300s) if unset or non-positive.
func (c Config) LockDuration() time.Duration {
	if c.LockSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.LockSeconds) * time.Second
}

// Load reads and parses path, falling back to Default if the file does not
// exist.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Watcher holds the live Config behind a mutex and applies fsnotify events
// on the file that backs it.
type Watcher struct {
	mu   sync.RWMutex
	cur  Config
	path string

	onReload func(Config)
}

// NewWatcher loads path (or the defaults, if absent) and returns a Watcher
// ready to Run. onReload, if non-nil, is invoked with the new Config every
// time the file is successfully reparsed.
func NewWatcher(path string, onReload func(Config)) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{cur: cfg, path: path, onReload: onReload}, nil
}

// Current returns the most recently loaded Config.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Run watches the directory containing the config file (fsnotify requires
// watching a directory to observe file recreation, the same way the
// teacher's watchFiles walked and watched directories rather than files
// directly) and reparses on every write/create event, logging but
// otherwise ignoring parse errors so a momentarily malformed file never
// takes the process down. Run blocks until stop is closed.
func (w *Watcher) Run(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if strings.HasSuffix(event.Name, "~") {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				log.Printf("warn msg=\"config reload failed\" path=%q err=%v", w.path, err)
				continue
			}
			w.mu.Lock()
			w.cur = cfg
			w.mu.Unlock()
			log.Printf("info msg=\"config reloaded\" path=%q", w.path)
			if w.onReload != nil {
				w.onReload(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("warn msg=\"config watcher error\" err=%v", err)
		}
	}
}
