package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cohortkit/validator/cohort"
)

// DefaultDebounce is how long a file must stay quiet before it is
// reloaded. Editors often fire several write events per save.
const DefaultDebounce = 250 * time.Millisecond

// FileOption configures a File provider.
type FileOption func(*File)

// WithFileLogger sets the logger. A nil logger is ignored.
func WithFileLogger(logger *zap.Logger) FileOption {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithDebounce overrides the reload debounce window.
func WithDebounce(d time.Duration) FileOption {
	return func(f *File) {
		if d > 0 {
			f.debounce = d
		}
	}
}

// File watches a cohort document on disk and republishes it whenever
// the file changes. The parent directory is watched rather than the
// file itself so save-via-rename (the common editor pattern) is still
// observed.
type File struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	static *Static

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewFile creates a provider for the cohort document at path and loads
// it once. The initial load must succeed; later reload failures keep
// the previous cohort and are logged.
func NewFile(path string, opts ...FileOption) (*File, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	f := &File{
		path:     path,
		watcher:  watcher,
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
		static:   NewStatic(nil),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	c, err := loadCohort(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	f.static.Publish(c)

	return f, nil
}

// Path returns the watched file path.
func (f *File) Path() string {
	return f.path
}

// Cohort returns the most recently loaded cohort.
func (f *File) Cohort() *cohort.Cohort {
	return f.static.Cohort()
}

// Subscribe registers fn to be called on every successful reload. The
// returned function cancels the subscription.
func (f *File) Subscribe(fn func()) func() {
	return f.static.Subscribe(fn)
}

// Start begins watching the file's directory. It is non-blocking.
func (f *File) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.mu.Unlock()

	if err := f.watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}
	f.logger.Info("watching cohort file", zap.String("path", f.path))

	go f.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (f *File) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	f.mu.Unlock()

	close(f.stopCh)
	<-f.doneCh

	if err := f.watcher.Close(); err != nil {
		f.logger.Error("close watcher", zap.Error(err))
	}
}

func (f *File) run(ctx context.Context) {
	defer close(f.doneCh)

	var pending *time.Timer
	var pendingCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-f.stopCh:
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if !f.relevant(event) {
				continue
			}
			// Reset the debounce window on every burst of events.
			if pending == nil {
				pending = time.NewTimer(f.debounce)
				pendingCh = pending.C
			} else {
				if !pending.Stop() {
					<-pending.C
				}
				pending.Reset(f.debounce)
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Error("watch error", zap.Error(err))

		case <-pendingCh:
			pending = nil
			pendingCh = nil
			f.reload()
		}
	}
}

func (f *File) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(f.path) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (f *File) reload() {
	c, err := loadCohort(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Debug("cohort file removed, keeping last snapshot", zap.String("path", f.path))
			return
		}
		f.logger.Warn("cohort reload failed, keeping last snapshot",
			zap.String("path", f.path), zap.Error(err))
		return
	}

	f.logger.Info("cohort file reloaded",
		zap.String("path", f.path),
		zap.Int("phenotypes", c.PhenotypeCount()))
	f.static.Publish(c)
}

func loadCohort(path string) (*cohort.Cohort, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	c, err := cohort.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}
