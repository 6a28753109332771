package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/javabuild/internal/build"
	"git.home.luguber.info/inful/javabuild/internal/config"
	derrors "git.home.luguber.info/inful/javabuild/internal/errors"
	"git.home.luguber.info/inful/javabuild/internal/logfields"
	"git.home.luguber.info/inful/javabuild/internal/metrics"
	"git.home.luguber.info/inful/javabuild/internal/util/sets"
	"git.home.luguber.info/inful/javabuild/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Files    []string      `arg:"" optional:"" type:"path" help:"Source files or directories (default: project.sources)"`
	Bulk     bool          `help:"Compile all sources as a single unit"`
	Debounce time.Duration `help:"Quiet interval before rebuilding (default: watch.debounce)"`
	Metrics  bool          `help:"Serve Prometheus metrics even if metrics.enabled is off"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return w.run(ctx, g, root)
}

func (w *WatchCmd) run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()
	if g != nil && g.Logger != nil {
		logger = g.Logger
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled || w.Metrics {
		reg := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		stop := serveMetrics(cfg.Metrics.Listen, reg, logger)
		defer stop()
	}

	svc, _, err := root.openService(g, rec)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	adapter := derrors.NewCLIErrorAdapter(root.Verbose, logger)
	req := build.Request{Files: w.Files, Bulk: w.Bulk}
	rebuild := func(ctx context.Context) {
		res, err := svc.Run(ctx, req)
		printSummary(root.out(), res)
		if err != nil && ctx.Err() == nil {
			_, _ = fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		}
	}

	rebuild(ctx)
	if ctx.Err() != nil {
		return nil
	}

	roots := watchRoots(cfg, w.Files)
	debounce := cfg.Watch.Debounce
	if w.Debounce > 0 {
		debounce = w.Debounce
	}
	watcher, err := watch.New(roots,
		func(ctx context.Context, changed []string) {
			logger.Info("Sources changed", logfields.Count(len(changed)))
			rebuild(ctx)
		},
		watch.WithDebounce(debounce),
		watch.WithFilter(relevantChange(cfg.Project.TargetDir)),
		watch.WithLogger(logger),
	)
	if err != nil {
		return derrors.InternalError("failed to start watcher", err)
	}
	return watcher.Run(ctx)
}

// watchRoots returns the existing source roots, source path entries and
// class path entries.
func watchRoots(cfg *config.Config, files []string) []string {
	candidates := files
	if len(candidates) == 0 {
		candidates = cfg.Project.Sources
	}
	candidates = append(append(append([]string{}, candidates...), cfg.Project.SourcePath...), cfg.Project.ClassPath...)

	seen := sets.New[string]()
	var roots []string
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil || !seen.Add(abs) {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		roots = append(roots, abs)
	}
	return roots
}

// relevantChange accepts sources, class files and archives outside the
// target directory, whose changes are the build's own.
func relevantChange(targetDir string) func(string) bool {
	target, err := filepath.Abs(targetDir)
	if err != nil {
		target = targetDir
	}
	return func(path string) bool {
		if rel, err := filepath.Rel(target, path); err == nil && !strings.HasPrefix(rel, "..") {
			return false
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".java", ".class", ".jar", ".zip":
			return true
		}
		return false
	}
}

// serveMetrics exposes reg on listen until the returned stop is called.
func serveMetrics(listen string, reg *prom.Registry, logger *slog.Logger) func() {
	srv := metrics.NewServer(listen, reg)
	go func() {
		logger.Info("Serving metrics", slog.String("listen", listen), slog.String("path", metrics.MetricsPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
