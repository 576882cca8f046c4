package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the configuration directory and hot reloads on change.
// Watching is only armed in development; in other environments the watcher
// is inert and GetConfig simply returns the initial configuration.
type Watcher struct {
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// NewWatcher creates a configuration watcher around the initial config.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		config:    initial,
		callbacks: make([]func(*Config), 0),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}

	if !initial.IsDevelopment() {
		logger.Info("configuration hot reload disabled",
			zap.String("environment", string(initial.Environment)))
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fsWatcher

	if err := w.watchConfigFiles(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config files: %w", err)
	}
	go w.watchLoop()

	logger.Info("configuration hot reload enabled",
		zap.String("environment", string(initial.Environment)))
	return w, nil
}

func (w *Watcher) watchConfigFiles() error {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	err := filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() || isConfigFile(path) {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch path",
					zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk config directory: %w", err)
	}
	return nil
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	// Debounce so one editor save does not trigger several reloads.
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isConfigFile(event.Name) {
				w.logger.Info("configuration file changed",
					zap.String("file", event.Name),
					zap.String("operation", event.Op.String()))
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	newConfig, err := Load()
	if err != nil {
		w.logger.Error("invalid configuration after reload", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.config
	w.config = newConfig
	w.mu.Unlock()

	w.logChanges(old, newConfig)
	w.notify(newConfig)
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, callback)
	w.mu.Unlock()
}

// GetConfig returns the current configuration.
func (w *Watcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

func (w *Watcher) notify(newConfig *Config) {
	w.mu.RLock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		func(cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked", zap.Any("panic", r))
				}
			}()
			cb(newConfig)
		}(callback)
	}
}

func (w *Watcher) logChanges(old, updated *Config) {
	changes := make([]string, 0)
	if old.Server.Port != updated.Server.Port {
		changes = append(changes, fmt.Sprintf("server.port: %d -> %d", old.Server.Port, updated.Server.Port))
	}
	if old.Cache.DefaultTTL != updated.Cache.DefaultTTL {
		changes = append(changes, fmt.Sprintf("cache.default_ttl: %s -> %s", old.Cache.DefaultTTL, updated.Cache.DefaultTTL))
	}
	if old.Monitor.MaxItems != updated.Monitor.MaxItems {
		changes = append(changes, fmt.Sprintf("monitor.max_items: %d -> %d", old.Monitor.MaxItems, updated.Monitor.MaxItems))
	}
	if old.Monitor.MinHitRatio != updated.Monitor.MinHitRatio {
		changes = append(changes, fmt.Sprintf("monitor.min_hit_ratio: %g -> %g", old.Monitor.MinHitRatio, updated.Monitor.MinHitRatio))
	}
	if old.Chunking.ChunkSize != updated.Chunking.ChunkSize {
		changes = append(changes, fmt.Sprintf("chunking.chunk_size: %d -> %d", old.Chunking.ChunkSize, updated.Chunking.ChunkSize))
	}
	if len(changes) > 0 {
		w.logger.Info("configuration changes detected", zap.Strings("changes", changes))
	}
}

func isConfigFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
