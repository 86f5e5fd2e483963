package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/notedex/notedex/internal/engine"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Logger for watch events. Defaults to slog.Default().
	Logger *slog.Logger

	// CapsulePath, when set, makes the runner rewrite the capsule
	// after every successful rebuild so the on-disk index tracks the
	// note tree.
	CapsulePath string
}

// Runner drives the engine from watcher batches. Every batch triggers
// a full rebuild; the corpus is small enough that rebuilding beats
// bookkeeping for incremental updates.
type Runner struct {
	watcher     *Watcher
	engine      *engine.Engine
	logger      *slog.Logger
	capsulePath string
}

// NewRunner creates a runner over an existing watcher and engine.
func NewRunner(w *Watcher, eng *engine.Engine, opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		watcher:     w,
		engine:      eng,
		logger:      logger,
		capsulePath: opts.CapsulePath,
	}
}

// Run starts the watcher on root and rebuilds on every batch until the
// context is canceled. Returns nil on clean shutdown.
func (r *Runner) Run(ctx context.Context, root string) error {
	startErr := make(chan error, 1)
	go func() {
		startErr <- r.watcher.Start(ctx, root)
	}()

	events := r.watcher.Events()
	errs := r.watcher.Errors()

	for {
		select {
		case err := <-startErr:
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.handleBatch(ctx, batch)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

// handleBatch logs the changes, rebuilds, and re-exports the capsule
// when configured.
func (r *Runner) handleBatch(ctx context.Context, batch []FileEvent) {
	if len(batch) == 0 {
		return
	}

	for _, ev := range batch {
		if ev.Op == OpConfigChange {
			r.logger.Info("watch_config_changed",
				slog.String("path", ev.Path),
				slog.String("note", "restart to apply server settings"))
		}
	}

	r.logger.Info("watch_changes_detected",
		slog.Int("count", len(batch)),
		slog.String("first", batch[0].Path),
		slog.String("op", batch[0].Op.String()))

	start := time.Now()
	stats, err := r.engine.Rebuild(ctx)
	if err != nil {
		r.logger.Error("watch_rebuild_failed",
			slog.String("error", err.Error()))
		return
	}

	r.logger.Info("watch_rebuild_complete",
		slog.Int("docs", stats.Docs),
		slog.Int("chunks", stats.Chunks),
		slog.Duration("duration", time.Since(start)))

	if r.capsulePath == "" {
		return
	}
	size, err := r.engine.SaveCapsule(ctx, r.capsulePath)
	if err != nil {
		r.logger.Error("watch_capsule_export_failed",
			slog.String("path", r.capsulePath),
			slog.String("error", err.Error()))
		return
	}
	r.logger.Debug("watch_capsule_exported",
		slog.String("path", r.capsulePath),
		slog.Int("bytes", size))
}
