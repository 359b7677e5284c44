// Package config provides configuration watching and hot-reload functionality
package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches configuration files for changes and provides hot-reload functionality
type Watcher struct {
	// Configuration file path
	configFile string

	// Configuration loader
	loader *Loader

	// Current configuration
	config   *Config
	configMu sync.RWMutex

	// File system watcher
	fsWatcher *fsnotify.Watcher

	// Event callbacks
	callbacks   []ChangeCallback
	callbacksMu sync.RWMutex

	logger *zap.Logger

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Wait group for goroutines
	wg sync.WaitGroup
}

// ChangeCallback is called when configuration changes
type ChangeCallback func(oldConfig, newConfig *Config)

// NewWatcher creates a new configuration watcher. A nil logger
// disables watcher logging.
func NewWatcher(configFile string, loader *Loader, logger *zap.Logger) (*Watcher, error) {
	if _, err := formatFromExt(configFile); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file system watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	watcher := &Watcher{
		configFile: configFile,
		loader:     loader,
		fsWatcher:  fsWatcher,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	// Load initial configuration
	config, err := loader.LoadFromFile(configFile)
	if err != nil {
		fsWatcher.Close()
		cancel()
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}
	watcher.config = config

	return watcher, nil
}

// Start starts watching the configuration file
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.configFile); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	w.wg.Add(1)
	go w.watchLoop()

	return nil
}

// Stop stops watching the configuration file
func (w *Watcher) Stop() error {
	w.cancel()

	err := w.fsWatcher.Close()

	w.wg.Wait()

	return err
}

// GetConfig returns the current configuration
func (w *Watcher) GetConfig() *Config {
	w.configMu.RLock()
	defer w.configMu.RUnlock()
	return w.config
}

// OnChange registers a callback for configuration changes
func (w *Watcher) OnChange(callback ChangeCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Reload manually reloads the configuration
func (w *Watcher) Reload() error {
	return w.reloadConfig()
}

// watchLoop watches for file system events
func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case <-w.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Name != w.configFile {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {

				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := w.reloadConfig(); err != nil {
						w.logger.Warn("failed to reload config", zap.Error(err))
					}
				})

			} else if event.Op&fsnotify.Remove == fsnotify.Remove ||
				event.Op&fsnotify.Rename == fsnotify.Rename {

				w.logger.Warn("config file removed or renamed",
					zap.String("file", w.configFile))
				// Try to re-add the file in case it was recreated
				time.AfterFunc(1*time.Second, func() {
					w.fsWatcher.Add(w.configFile)
				})
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// reloadConfig reloads the configuration from file
func (w *Watcher) reloadConfig() error {
	newConfig, err := w.loader.LoadFromFile(w.configFile)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	w.configMu.Lock()
	oldConfig := w.config
	w.config = newConfig
	w.configMu.Unlock()

	w.notifyCallbacks(oldConfig, newConfig)

	w.logger.Info("configuration reloaded", zap.String("file", w.configFile))
	return nil
}

// notifyCallbacks notifies all registered callbacks of configuration changes
func (w *Watcher) notifyCallbacks(oldConfig, newConfig *Config) {
	w.callbacksMu.RLock()
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		// Call callback in a separate goroutine to avoid blocking
		go func(cb ChangeCallback) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked",
						zap.Any("panic", r))
				}
			}()
			cb(oldConfig, newConfig)
		}(callback)
	}
}
