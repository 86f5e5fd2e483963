// Package watcher rebuilds the index when note files change.
//
// A Watcher observes the configured note directories with fsnotify,
// filters events down to paths the ingester would index, and debounces
// them into batches: the window restarts on every event, so a burst of
// editor writes becomes one batch. Events for the same path within a
// window are coalesced (a create followed by a delete cancels out).
//
// A Runner consumes the batches and drives the engine: every batch
// triggers a full rebuild, optionally followed by a capsule re-export.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{
//	    DebounceWindow: cfg.DebounceDuration(),
//	    Dirs:           cfg.NoteDirs(root),
//	    Exclude:        cfg.Paths.Exclude,
//	})
//	if err != nil {
//	    return err
//	}
//	runner := watcher.NewRunner(w, eng, watcher.RunnerOptions{Logger: logger})
//	return runner.Run(ctx, root)
package watcher
