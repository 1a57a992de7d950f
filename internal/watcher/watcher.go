// Package watcher monitors a directory for new survey exports.
package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig contains watcher settings.
type WatchConfig struct {
	DebounceSeconds   int      `json:"debounceSeconds"`   // Delay before processing (default: 2)
	StableThresholdMs int      `json:"stableThresholdMs"` // File size stability threshold in milliseconds (default: 1000)
	IgnorePatterns    []string `json:"ignorePatterns"`    // Glob patterns to ignore (e.g., "*.tmp", "*.part")
}

// DefaultWatchConfig returns a WatchConfig with sensible defaults.
func DefaultWatchConfig() *WatchConfig {
	return &WatchConfig{
		DebounceSeconds:   2,
		StableThresholdMs: 1000,
		IgnorePatterns:    DefaultIgnorePatterns(),
	}
}

// WatchSummary contains stats from the watch session.
type WatchSummary struct {
	FilesRewritten int
	FilesFailed    int
	FilesSkipped   int
	Duration       time.Duration
}

// FileHandler processes one settled file. It returns rewritten=false with a
// nil error when it chose to leave the file alone.
type FileHandler func(path string) (rewritten bool, err error)

// ErrorHandler receives failures that happen while watching.
// path is empty for errors reported by the file system watcher itself.
type ErrorHandler func(path string, err error)

// Option customizes a Watcher.
type Option func(*Watcher)

// WithExclude skips paths for which exclude returns true, before debouncing.
func WithExclude(exclude func(path string) bool) Option {
	return func(w *Watcher) { w.exclude = exclude }
}

// WithErrorHandler registers a callback for watch and processing errors.
func WithErrorHandler(onError ErrorHandler) Option {
	return func(w *Watcher) { w.onError = onError }
}

// Watcher monitors directories for file changes.
type Watcher struct {
	config      *WatchConfig
	fileHandler FileHandler
	exclude     func(path string) bool
	onError     ErrorHandler
	fsWatcher   *fsnotify.Watcher
	fileFilter  *FileFilter
	debouncer   *Debouncer
	stability   *StabilityChecker
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	wg          sync.WaitGroup
	inflight    sync.WaitGroup
	startTime   time.Time

	mu             sync.Mutex
	stopped        bool
	filesRewritten int
	filesFailed    int
	filesSkipped   int
}

// New creates a new Watcher with the given configuration.
// If config is nil, default configuration is used.
func New(config *WatchConfig, fileHandler FileHandler, opts ...Option) *Watcher {
	if config == nil {
		config = DefaultWatchConfig()
	}
	w := &Watcher{
		config:      config,
		fileHandler: fileHandler,
		fileFilter:  NewFileFilter(config.IgnorePatterns),
		stability:   NewStabilityChecker(time.Duration(config.StableThresholdMs) * time.Millisecond),
		done:        make(chan struct{}),
	}
	w.debouncer = NewDebouncer(time.Duration(config.DebounceSeconds)*time.Second, w.processSettled)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching the specified directories for file changes.
// The watcher runs until Stop() is called.
func (w *Watcher) Start(dirs []string) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			w.fsWatcher.Close()
			return err
		}
		if err := w.fsWatcher.Add(absDir); err != nil {
			w.fsWatcher.Close()
			return err
		}
	}

	w.startTime = time.Now()
	w.done = make(chan struct{})
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop shuts down the watcher, waits for in-flight files, and returns a
// summary of the session. Files still waiting out their debounce are dropped.
func (w *Watcher) Stop() *WatchSummary {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()

	w.debouncer.CancelAll()
	if w.cancel != nil {
		w.cancel()
	}
	w.inflight.Wait()

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return &WatchSummary{
		FilesRewritten: w.filesRewritten,
		FilesFailed:    w.filesFailed,
		FilesSkipped:   w.filesSkipped,
		Duration:       time.Since(w.startTime),
	}
}

// processEvents handles file system events from fsnotify.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.handleFileEvent(event.Name, event.Has(fsnotify.Create))
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError("", err)
		}
	}
}

// handleFileEvent filters a path and schedules it for processing.
// Ignored files are counted once, on creation.
func (w *Watcher) handleFileEvent(path string, created bool) {
	if w.shouldIgnore(path) {
		if created {
			w.mu.Lock()
			w.filesSkipped++
			w.mu.Unlock()
		}
		return
	}
	w.debouncer.Add(path)
}

// processSettled runs once a path has been quiet for the debounce delay.
func (w *Watcher) processSettled(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if err := w.stability.WaitForStableWithContext(w.ctx, path); err != nil {
		if errors.Is(err, ErrFileNotFound) || errors.Is(err, context.Canceled) {
			w.count(false, nil)
			return
		}
		w.reportError(path, err)
		w.count(false, err)
		return
	}

	if w.fileHandler == nil {
		w.count(false, nil)
		return
	}

	rewritten, err := w.fileHandler(path)
	if err != nil {
		w.reportError(path, err)
	}
	w.count(rewritten, err)
}

func (w *Watcher) count(rewritten bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case err != nil:
		w.filesFailed++
	case rewritten:
		w.filesRewritten++
	default:
		w.filesSkipped++
	}
}

func (w *Watcher) reportError(path string, err error) {
	if w.onError != nil {
		w.onError(path, err)
	}
}

// shouldIgnore checks the ignore patterns and the exclude hook.
func (w *Watcher) shouldIgnore(path string) bool {
	if w.fileFilter.ShouldIgnore(path) {
		return true
	}
	return w.exclude != nil && w.exclude(path)
}

// GetConfig returns the current watcher configuration.
func (w *Watcher) GetConfig() *WatchConfig {
	return w.config
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	select {
	case <-w.done:
		return false
	default:
		return w.fsWatcher != nil
	}
}
