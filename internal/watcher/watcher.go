package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	dexerrors "github.com/notedex/notedex/internal/errors"
	"github.com/notedex/notedex/internal/ingest"
)

// Op is the kind of change observed on a path.
type Op int

const (
	// OpCreate indicates a new file or directory appeared.
	OpCreate Op = iota
	// OpModify indicates an existing file was written.
	OpModify
	// OpDelete indicates a file or directory was removed.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
	// OpConfigChange indicates the project config file was modified.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change, path relative to the watch root.
type FileEvent struct {
	Path  string
	Op    Op
	IsDir bool
	At    time.Time
}

// Options configures the watcher.
type Options struct {
	// DebounceWindow is how long to wait after the last event before
	// emitting a batch. Default: 500ms, matching the config default.
	DebounceWindow time.Duration

	// BatchBuffer is the capacity of the batch channel. When the
	// consumer falls behind, batches keep coalescing instead of being
	// dropped. Default: 16.
	BatchBuffer int

	// Dirs are the directories to watch, resolved against the root
	// when relative. Missing directories are skipped. Defaults to the
	// root itself.
	Dirs []string

	// Exclude lists glob patterns to skip, using the same rules as
	// ingest. Dot-directories are always skipped.
	Exclude []string
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 500 * time.Millisecond,
		BatchBuffer:    16,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.BatchBuffer == 0 {
		o.BatchBuffer = defaults.BatchBuffer
	}
	return o
}

// Watcher observes note directories with fsnotify and emits debounced
// batches of file events. Events for paths the ingester would skip are
// filtered out, so every batch represents a corpus change.
type Watcher struct {
	fsw    *fsnotify.Watcher
	deb    *debouncer
	excl   *ingest.Excluder
	errs   chan error
	stopCh chan struct{}
	root   string
	opts   Options

	mu      sync.Mutex
	stopped bool
}

// New creates a watcher. Call Start to begin observing.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, dexerrors.InternalError("failed to initialize file watcher", err)
	}

	return &Watcher{
		fsw:    fsw,
		deb:    newDebouncer(opts.DebounceWindow, opts.BatchBuffer),
		excl:   ingest.NewExcluder(opts.Exclude),
		errs:   make(chan error, 8),
		stopCh: make(chan struct{}),
		opts:   opts,
	}, nil
}

// Start watches the configured directories under root and blocks until
// the context is canceled or Stop is called. The root directory itself
// is always watched so config file edits are seen.
func (w *Watcher) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return dexerrors.Wrap(dexerrors.ErrCodeInvalidPath, err)
	}
	w.root = absRoot

	dirs := w.opts.Dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	watched := 0
	for _, dir := range dirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(absRoot, dir)
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			slog.Debug("watch_dir_missing", slog.String("dir", dir))
			continue
		}
		if err := w.addTree(dir); err != nil {
			return err
		}
		watched++
	}
	if err := w.fsw.Add(absRoot); err != nil {
		return dexerrors.IOError("failed to watch root directory", err)
	}

	slog.Info("watch_started",
		slog.String("root", absRoot),
		slog.Int("dirs", watched),
		slog.Duration("debounce", w.opts.DebounceWindow))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// Events returns the channel of debounced event batches. Batches are
// sorted by path. The channel is closed when the watcher stops.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.deb.batches()
}

// Errors returns the channel of non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Stop stops the watcher and closes its channels. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	close(w.stopCh)
	w.deb.close()
	err := w.fsw.Close()
	close(w.errs)
	return err
}

// handle converts one fsnotify event, filters it, and feeds the
// debouncer.
func (w *Watcher) handle(event fsnotify.Event) {
	rel := w.rel(event.Name)

	base := filepath.Base(event.Name)
	if base == ".notedex.yaml" || base == ".notedex.yml" {
		if filepath.Dir(event.Name) == w.root {
			w.deb.add(FileEvent{Path: rel, Op: OpConfigChange, At: time.Now()})
		}
		return
	}

	// Deleted or renamed-away paths cannot be stat'ed; treat them as
	// files and let the exclude rules decide.
	exists := false
	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		exists = true
		isDir = info.IsDir()
	}

	if w.skip(rel, event.Name, exists, isDir) {
		return
	}

	var op Op
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			// Extend the watch to new subtrees; a moved-in directory
			// arrives as a single create for its top.
			if err := w.addTree(event.Name); err != nil {
				w.emitError(err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// Chmod and anything else we do not care about.
		return
	}

	w.deb.add(FileEvent{Path: rel, Op: op, IsDir: isDir, At: time.Now()})
}

// skip reports whether an event for this path is irrelevant to the
// corpus. Dot-paths are always skipped; files that no longer exist are
// kept unless excluded, since a vanished directory is indistinguishable
// from a vanished file.
func (w *Watcher) skip(rel, abs string, exists, isDir bool) bool {
	if rel == "." || rel == "" {
		return true
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	if isDir {
		return w.excl.Dir(rel)
	}
	if exists && !ingest.IndexableFile(abs) {
		return true
	}
	return w.excl.File(rel)
}

// addTree adds dir and every non-excluded subdirectory to the fsnotify
// watch set.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip entries we cannot access
		}
		if !d.IsDir() {
			return nil
		}

		rel := w.rel(p)
		if p != dir && rel != "." {
			if strings.HasPrefix(d.Name(), ".") || w.excl.Dir(rel) {
				return filepath.SkipDir
			}
		}

		if err := w.fsw.Add(p); err != nil {
			return dexerrors.IOError("failed to watch directory "+p, err)
		}
		return nil
	})
}

// rel returns the root-relative slash path, or the absolute path for
// watched directories outside the root.
func (w *Watcher) rel(abs string) string {
	if rel, err := filepath.Rel(w.root, abs); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(abs)
}

// emitError sends a non-fatal error, dropping it when nobody listens.
// The send happens under the lock so Stop cannot close the channel
// between the stopped check and the send.
func (w *Watcher) emitError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	select {
	case w.errs <- err:
	default:
	}
}
