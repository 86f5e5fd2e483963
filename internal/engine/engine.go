// Package engine coordinates the moving parts of notedex: it rebuilds
// the index from note files and stored notes, swaps it in atomically,
// serves cached searches, and moves capsules to and from disk.
package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/notedex/notedex/internal/capsule"
	"github.com/notedex/notedex/internal/config"
	dexerrors "github.com/notedex/notedex/internal/errors"
	"github.com/notedex/notedex/internal/index"
	"github.com/notedex/notedex/internal/ingest"
	"github.com/notedex/notedex/internal/store"
	"github.com/notedex/notedex/internal/telemetry"
)

// BuildStats summarizes one rebuild.
type BuildStats struct {
	BuildID  string        `json:"build_id"`
	BuiltAt  time.Time     `json:"built_at"`
	Docs     int           `json:"docs"`
	Notes    int           `json:"notes"`
	Chunks   int           `json:"chunks"`
	Terms    int           `json:"terms"`
	Duration time.Duration `json:"duration"`
}

// Status is the engine's current view: index shape, last build, capsule
// location, and query metrics. A zero BuiltAt means nothing has been
// built or loaded yet.
type Status struct {
	Docs        int                 `json:"docs"`
	Chunks      int                 `json:"chunks"`
	Terms       int                 `json:"terms"`
	BuiltAt     time.Time           `json:"built_at"`
	BuildID     string              `json:"build_id,omitempty"`
	CapsulePath string              `json:"capsule_path"`
	Metrics     *telemetry.Snapshot `json:"metrics"`
}

// Engine holds the live index and orchestrates rebuilds, searches, and
// capsule persistence. Searches are lock-free against an atomically
// swapped index; rebuilds and capsule moves serialize on a mutex.
type Engine struct {
	cfg      *config.Config
	root     string
	logger   *slog.Logger
	store    store.Store
	clock    func() time.Time
	metrics  *telemetry.Metrics
	ingester *ingest.Ingester

	cacheSize int
	cache     *lru.Cache[string, []index.Result]
	current   atomic.Pointer[index.Index]

	mu      sync.Mutex   // serializes rebuilds and capsule moves
	stateMu sync.RWMutex // guards buildID
	buildID string
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore attaches the note store. When set, stored notes join the
// corpus on every rebuild and build rows are recorded.
func WithStore(st store.Store) Option {
	return func(e *Engine) {
		e.store = st
	}
}

// WithCache overrides the query cache size from the configuration.
// A size of zero or less disables result caching.
func WithCache(size int) Option {
	return func(e *Engine) {
		e.cacheSize = size
	}
}

// WithClock sets the time source used for build timestamps. Defaults
// to time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates an Engine rooted at the given project directory.
func New(cfg *config.Config, root string, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, dexerrors.ValidationError("engine requires a configuration", nil)
	}

	e := &Engine{
		cfg:       cfg,
		root:      root,
		logger:    slog.Default(),
		clock:     time.Now,
		metrics:   telemetry.New(),
		cacheSize: cfg.Search.CacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.cacheSize > 0 {
		cache, err := lru.New[string, []index.Result](e.cacheSize)
		if err != nil {
			return nil, dexerrors.InternalError("failed to create query cache", err)
		}
		e.cache = cache
	}

	e.ingester = ingest.New(ingest.Options{
		Root:    root,
		Dirs:    cfg.NoteDirs(root),
		Exclude: cfg.Paths.Exclude,
		Workers: cfg.Index.Workers,
	})

	return e, nil
}

// Current returns the active index, or nil before the first build.
func (e *Engine) Current() *index.Index {
	return e.current.Load()
}

// Rebuild loads the corpus (note files plus stored notes), builds a
// fresh index, swaps it in, and records the build.
func (e *Engine) Rebuild(ctx context.Context) (*BuildStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	builtAt := e.clock()

	docs, noteCount, err := e.loadCorpus(ctx)
	if err != nil {
		return nil, err
	}

	idx := index.Build(docs,
		index.WithChunkLimits(e.cfg.Index.MinChunkLen, e.cfg.Index.MaxChunkLen),
		index.WithVectorTerms(e.cfg.Index.VectorTerms),
		index.WithSnippetLen(e.cfg.Index.SnippetLen),
	)
	idx.BuiltAt = builtAt

	buildID := uuid.NewString()
	e.swap(idx, buildID)

	stats := &BuildStats{
		BuildID:  buildID,
		BuiltAt:  builtAt,
		Docs:     idx.DocCount(),
		Notes:    noteCount,
		Chunks:   len(idx.Chunks),
		Terms:    idx.TermCount(),
		Duration: time.Since(start),
	}

	if e.store != nil {
		rec := &store.BuildRecord{
			ID:      buildID,
			BuiltAt: builtAt,
			Docs:    stats.Docs,
			Chunks:  stats.Chunks,
			Terms:   stats.Terms,
		}
		if err := e.store.RecordBuild(ctx, rec); err != nil {
			e.logger.Warn("build_record_failed",
				slog.String("build_id", buildID),
				slog.String("error", err.Error()))
		}
	}

	e.logger.Info("index_rebuilt",
		slog.String("build_id", buildID),
		slog.Int("docs", stats.Docs),
		slog.Int("notes", stats.Notes),
		slog.Int("chunks", stats.Chunks),
		slog.Int("terms", stats.Terms),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// loadCorpus gathers note files from disk and, when a store is
// attached, stored notes converted to documents.
func (e *Engine) loadCorpus(ctx context.Context) ([]index.Doc, int, error) {
	docs, err := e.ingester.Load(ctx)
	if err != nil {
		return nil, 0, err
	}
	if e.store == nil {
		return docs, 0, nil
	}

	notes, err := e.store.ListNotes(ctx)
	if err != nil {
		return nil, 0, err
	}
	for _, n := range notes {
		docs = append(docs, noteDoc(n))
	}
	return docs, len(notes), nil
}

// noteDoc converts a stored note into an index document. Note docs are
// namespaced under "note:" so they never collide with file paths.
func noteDoc(n *store.Note) index.Doc {
	return index.Doc{
		ID:    "note:" + n.Key,
		Title: ingest.Titleize(n.Key),
		Href:  "/notes/" + n.Key,
		Date:  n.UpdatedAt.Format("2006-01-02"),
		Tags:  append([]string{"note"}, n.Tags...),
		Body:  n.Body,
	}
}

// Search runs a query against the current index, consulting the result
// cache first. A nil index or blank query yields empty results.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]index.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []index.Result{}, nil
	}
	if k <= 0 {
		k = e.cfg.Search.TopK
	}

	idx := e.current.Load()
	if idx == nil {
		return []index.Result{}, nil
	}

	start := time.Now()
	key := cacheKey(query, k)

	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			e.metrics.Record(telemetry.QueryEvent{
				Query:       query,
				ResultCount: len(cached),
				Latency:     time.Since(start),
				CacheHit:    true,
			})
			return cached, nil
		}
	}

	results := index.Search(idx, query, k)
	if e.cache != nil {
		e.cache.Add(key, results)
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		ResultCount: len(results),
		Latency:     time.Since(start),
	})

	return results, nil
}

func cacheKey(query string, k int) string {
	return query + "\x00" + strconv.Itoa(k)
}

// SaveCapsule writes the current index as a capsule and returns the
// bytes written. An empty path uses the configured capsule location.
// The write is guarded by a file lock next to the capsule so concurrent
// processes cannot interleave.
func (e *Engine) SaveCapsule(ctx context.Context, path string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.current.Load()
	if idx == nil {
		return 0, dexerrors.ValidationError("no index to save; rebuild first", nil)
	}
	if path == "" {
		path = e.cfg.ResolveCapsulePath(e.root)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, dexerrors.Wrap(dexerrors.ErrCodeFilePermission, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, dexerrors.Wrap(dexerrors.ErrCodeStoreBusy, err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := capsule.WriteFile(path, idx); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, dexerrors.Wrap(dexerrors.ErrCodeFileNotFound, err)
	}
	size := int(info.Size())

	e.stateMu.RLock()
	buildID := e.buildID
	e.stateMu.RUnlock()

	// Re-record the build row with the capsule size filled in.
	if e.store != nil && buildID != "" {
		rec := &store.BuildRecord{
			ID:           buildID,
			BuiltAt:      idx.BuiltAt,
			Docs:         idx.DocCount(),
			Chunks:       len(idx.Chunks),
			Terms:        idx.TermCount(),
			CapsuleBytes: size,
		}
		if err := e.store.RecordBuild(ctx, rec); err != nil {
			e.logger.Warn("build_record_failed",
				slog.String("build_id", buildID),
				slog.String("error", err.Error()))
		}
	}

	e.logger.Info("capsule_saved",
		slog.String("path", path),
		slog.Int("bytes", size))

	return size, nil
}

// LoadCapsule reads a capsule from disk, validates it, and swaps it in
// as the current index. An empty path uses the configured capsule
// location.
func (e *Engine) LoadCapsule(ctx context.Context, path string) (*index.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if path == "" {
		path = e.cfg.ResolveCapsulePath(e.root)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return nil, dexerrors.Wrap(dexerrors.ErrCodeStoreBusy, err)
	}
	defer func() { _ = lock.Unlock() }()

	idx, err := capsule.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := idx.Validate(); err != nil {
		return nil, dexerrors.CapsuleError(dexerrors.ErrCodeCapsuleCorrupt, err.Error(), err)
	}

	e.swap(idx, "")

	e.logger.Info("capsule_loaded",
		slog.String("path", path),
		slog.Int("chunks", len(idx.Chunks)))

	return idx, nil
}

// Status reports the current index shape and metrics snapshot.
func (e *Engine) Status() *Status {
	st := &Status{
		CapsulePath: e.cfg.ResolveCapsulePath(e.root),
		Metrics:     e.metrics.Snapshot(),
	}

	if idx := e.current.Load(); idx != nil {
		st.Docs = idx.DocCount()
		st.Chunks = len(idx.Chunks)
		st.Terms = idx.TermCount()
		st.BuiltAt = idx.BuiltAt
	}

	e.stateMu.RLock()
	st.BuildID = e.buildID
	e.stateMu.RUnlock()

	return st
}

// swap installs a new index, records its build ID, and purges the
// query cache.
func (e *Engine) swap(idx *index.Index, buildID string) {
	e.current.Store(idx)

	e.stateMu.Lock()
	e.buildID = buildID
	e.stateMu.Unlock()

	if e.cache != nil {
		e.cache.Purge()
	}
}
