package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mirage/internal/build"
	"git.home.luguber.info/inful/mirage/internal/config"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
	"git.home.luguber.info/inful/mirage/internal/metrics"
	"git.home.luguber.info/inful/mirage/internal/preview"
	"git.home.luguber.info/inful/mirage/internal/watch"
)

// WatchCmd compiles, serves the output and rebuilds on change.
type WatchCmd struct {
	Root            string        `short:"r" help:"Project root (overrides config root)"`
	Port            int           `short:"p" help:"Preview server port (overrides config port)"`
	RebuildInterval time.Duration `name:"rebuild-interval" help:"Additional periodic rebuild interval (overrides config)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if w.Root != "" {
		cfg.Root = w.Root
	}
	if w.Port != 0 {
		cfg.Port = w.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunWatch(ctx, cfg, w.RebuildInterval)
}

// RunWatch serves cfg's output tree and rebuilds it on change until ctx is
// cancelled. A non-zero interval overrides watch.rebuild-interval.
func RunWatch(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	journal := openJournal(cfg)
	defer closeJournal(journal)

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		var err error
		if metricsSrv, err = startMetricsServer(cfg.Metrics.Port, reg); err != nil {
			return err
		}
	}

	svc := build.NewService().WithRecorder(recorder)
	if journal != nil {
		svc = svc.WithJournal(journal)
	}

	srv := preview.New(cfg.Paths().Output, cfg.Port)
	if err := srv.Start(); err != nil {
		shutdownHTTP(metricsSrv)
		return err
	}

	loop := watch.NewLoop(svc, cfg).WithRecorder(recorder)
	if interval > 0 {
		loop = loop.WithInterval(interval)
	}
	loopErr := loop.Run(ctx)

	slog.Info("Shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Preview server shutdown error", logfields.Error(err))
	}
	shutdownHTTP(metricsSrv)
	return loopErr
}

func startMetricsServer(port int, reg *prom.Registry) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryServer, "failed to bind metrics server").
			WithContext("port", port).
			Fatal().
			Build()
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", logfields.Error(err))
		}
	}()
	slog.Info("Metrics server listening", logfields.Port(port))
	return srv, nil
}

func shutdownHTTP(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(err))
	}
}
