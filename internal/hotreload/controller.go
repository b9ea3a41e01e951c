// Package hotreload implements HotReloadController: a per-project
// filesystem watcher that debounces events, classifies them with
// changedetect.Detector, and hands the resulting delta to
// coordinator.Coordinator's incremental indexing pathway.
package hotreload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kkkqkx123/codeforge-index/internal/changedetect"
	"github.com/kkkqkx123/codeforge-index/internal/coordinator"
	"github.com/kkkqkx123/codeforge-index/internal/ignore"
)

// Indexer is the slice of coordinator.Coordinator the controller depends
// on, narrowed so tests can supply a fake.
type Indexer interface {
	IndexProject(ctx context.Context, files []coordinator.FileTask, priorHashes map[string]string) (*coordinator.Result, error)
}

// StatusSink receives state updates as the controller's watch runs. It
// mirrors the {enabled, changesDetected, errorsCount, lastEnabled,
// lastDisabled} fields spec'd for hot reload, letting a caller persist them
// into projectstate.Store without this package importing it directly.
type StatusSink interface {
	OnToggle(enabled bool, at time.Time)
	OnChangesDetected(n int)
	OnError(err error)
}

// Options configures a Controller.
type Options struct {
	DebounceInterval time.Duration
	MaxFileSize      int64
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.DebounceInterval <= 0 {
		o.DebounceInterval = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Controller watches a single project root and feeds detected changes to
// Indexer. One Controller instance exists per project; Toggle is the
// idempotent enable/disable surface external callers use.
type Controller struct {
	projectRoot string
	indexer     Indexer
	sink        StatusSink
	opts        Options
	ignoreEng   *ignore.Engine
	detector    *changedetect.Detector

	priorHashes func() map[string]string

	mu      sync.Mutex
	enabled bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds a Controller. priorHashes is called at the start of every
// flush cycle to obtain the current relativePath->contentHash snapshot
// (typically projectstate.Store.PriorHashes), since that snapshot advances
// as each cycle completes.
func New(projectRoot string, indexer Indexer, sink StatusSink, priorHashes func() map[string]string, opts Options) (*Controller, error) {
	opts = opts.withDefaults()

	eng := ignore.NewEngine()
	if err := eng.LoadRoot(projectRoot); err != nil {
		return nil, fmt.Errorf("load root ignore rules: %w", err)
	}
	if err := eng.LoadIndexIgnore(projectRoot); err != nil {
		return nil, fmt.Errorf("load .indexignore: %w", err)
	}

	return &Controller{
		projectRoot: projectRoot,
		indexer:     indexer,
		sink:        sink,
		opts:        opts,
		ignoreEng:   eng,
		detector:    changedetect.New(opts.MaxFileSize, opts.DebounceInterval),
		priorHashes: priorHashes,
	}, nil
}

// Enabled reports whether the watch loop is currently running.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Toggle idempotently starts or stops the watch loop. Calling it with the
// same desired state twice is a no-op.
func (c *Controller) Toggle(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enabled == c.enabled {
		return nil
	}

	if enabled {
		watchCtx, cancel := context.WithCancel(ctx)
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create fs watcher: %w", err)
		}
		if err := c.registerDirs(watcher, c.projectRoot); err != nil {
			watcher.Close()
			cancel()
			return fmt.Errorf("register watch dirs: %w", err)
		}

		c.cancel = cancel
		c.done = make(chan struct{})
		c.enabled = true
		go c.run(watchCtx, watcher)
	} else {
		if c.cancel != nil {
			c.cancel()
		}
		c.enabled = false
	}

	c.sink.OnToggle(enabled, time.Now())
	return nil
}

func (c *Controller) registerDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if rel != "." && c.ignoreEng.Excluded(rel, true) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// run is the watch loop's body. A fatal watcher error (the Errors channel
// closing) disables the controller and records the error without
// propagating a panic or crashing the process, per spec.
func (c *Controller) run(ctx context.Context, w *fsnotify.Watcher) {
	defer close(c.done)
	defer w.Close()

	ticker := time.NewTicker(c.opts.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				c.disableOnFatal(errors.New("fs watcher events channel closed"))
				return
			}
			c.handleEvent(w, event)

		case err, ok := <-w.Errors:
			if !ok {
				c.disableOnFatal(errors.New("fs watcher errors channel closed"))
				return
			}
			c.opts.Logger.Error("fs watcher reported an error", "error", err)
			c.sink.OnError(err)

		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

func (c *Controller) handleEvent(w *fsnotify.Watcher, event fsnotify.Event) {
	rel, err := filepath.Rel(c.projectRoot, event.Name)
	if err != nil {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !c.ignoreEng.Excluded(rel, true) {
				_ = w.Add(event.Name)
			}
			return
		}
	}

	if c.ignoreEng.Excluded(rel, false) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		c.detector.ObserveRemoval(rel)
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		hash, err := changedetect.HashFile(event.Name)
		if err != nil {
			// file may have been removed again between the event and the
			// stat/hash above; treat as a removal rather than an error.
			c.detector.ObserveRemoval(rel)
			return
		}
		c.detector.Observe(rel, hash)
	}
}

func (c *Controller) flush(ctx context.Context) {
	priors := c.priorHashes()
	priorState := make(map[string]changedetect.PriorState, len(priors))
	for path, hash := range priors {
		priorState[path] = changedetect.PriorState{ContentHash: hash}
	}

	changes := c.detector.Flush(priorState)
	if len(changes) == 0 {
		return
	}

	tasks := make([]coordinator.FileTask, 0, len(changes))
	for _, ch := range changes {
		if ch.Kind == changedetect.Removed {
			continue
		}
		tasks = append(tasks, coordinator.FileTask{
			RelativePath: ch.RelativePath,
			AbsolutePath: filepath.Join(c.projectRoot, ch.RelativePath),
		})
	}

	c.sink.OnChangesDetected(len(changes))

	if len(tasks) == 0 {
		return
	}
	if _, err := c.indexer.IndexProject(ctx, tasks, priors); err != nil {
		c.opts.Logger.Error("hot reload incremental index failed", "error", err)
		c.sink.OnError(err)
	}
}

func (c *Controller) disableOnFatal(err error) {
	c.opts.Logger.Error("fs watcher failed fatally, disabling hot reload", "error", err)
	c.sink.OnError(err)

	c.mu.Lock()
	c.enabled = false
	c.mu.Unlock()
	c.sink.OnToggle(false, time.Now())
}
