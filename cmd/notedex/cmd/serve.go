package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/config"
	"github.com/notedex/notedex/internal/engine"
	"github.com/notedex/notedex/internal/logging"
	mcpserver "github.com/notedex/notedex/internal/mcp"
	"github.com/notedex/notedex/internal/server"
	"github.com/notedex/notedex/internal/store"
	"github.com/notedex/notedex/internal/watcher"
)

type serveOptions struct {
	addr  string
	mcp   bool
	watch bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over HTTP or MCP",
		Long: `Serve the vault index.

By default an HTTP API listens on the configured address. With --mcp
the server speaks the Model Context Protocol over stdio instead, for
editor and assistant integrations. --watch rebuilds the index and
rewrites the capsule whenever note files change.

Examples:
  notedex serve
  notedex serve --addr 127.0.0.1:9000 --watch
  notedex serve --mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (default from config)")
	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Speak MCP over stdio instead of HTTP")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Rebuild when note files change")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	cfg := appCfg
	root := appRoot

	if opts.mcp {
		// Stdout carries JSON-RPC frames; logs must stay in the file.
		if cleanup, err := logging.SetupMCPMode(); err == nil {
			defer cleanup()
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.ResolveStorePath(root))
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	eng, err := buildEngine(cfg, root, st)
	if err != nil {
		return err
	}

	// Prefer the shipped capsule; fall back to a fresh build.
	if _, err := eng.LoadCapsule(ctx, ""); err != nil {
		slog.Info("serve_building_index", slog.String("reason", err.Error()))
		if _, err := eng.Rebuild(ctx); err != nil {
			return err
		}
	}

	if opts.watch || cfg.Watch.Enabled {
		if err := startWatcher(ctx, cfg, eng, root); err != nil {
			return err
		}
	}

	if opts.mcp {
		return runServeMCP(ctx, eng, st, root)
	}

	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return runServeHTTP(ctx, cfg, eng, st, addr)
}

// startWatcher wires a filesystem watcher to in-place rebuilds. A
// watcher that later dies only logs; serving continues on the last
// good index.
func startWatcher(ctx context.Context, cfg *config.Config, eng *engine.Engine, root string) error {
	w, err := watcher.New(watcher.Options{
		DebounceWindow: cfg.DebounceDuration(),
		Dirs:           cfg.NoteDirs(root),
		Exclude:        cfg.Paths.Exclude,
	})
	if err != nil {
		return err
	}

	runner := watcher.NewRunner(w, eng, watcher.RunnerOptions{
		CapsulePath: cfg.ResolveCapsulePath(root),
	})

	go func() {
		if err := runner.Run(ctx, root); err != nil {
			slog.Error("watch_stopped", slog.String("error", err.Error()))
		}
	}()

	return nil
}

func runServeMCP(ctx context.Context, eng *engine.Engine, st store.Store, root string) error {
	srv, err := mcpserver.NewServer(eng, st, root)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	if err := srv.RegisterNoteResources(ctx); err != nil {
		slog.Warn("mcp_resources_failed", slog.String("error", err.Error()))
	}

	slog.Info("serve_mcp_started", slog.String("root", root))
	return srv.Serve(ctx)
}

func runServeHTTP(ctx context.Context, cfg *config.Config, eng *engine.Engine, st store.Store, addr string) error {
	handler := server.NewRouter(&server.Deps{
		Engine: eng,
		Store:  st,
		Config: cfg,
		Logger: slog.Default(),
	})
	srv := server.New(addr, handler, slog.Default())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
