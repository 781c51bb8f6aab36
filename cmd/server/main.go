package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"lucy/internal/platform/config"
	"lucy/internal/platform/httpserver"
	"lucy/internal/platform/logger"
	"lucy/internal/platform/metrics"
	"lucy/internal/platform/tracing"
	"lucy/pkg/platform/middleware/requestmeta"
)

// main loads config, builds the role selected by LUCY_MODE and serves it
// until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := tracing.New("lucy-"+string(cfg.Mode), log)
	defer tracing.Shutdown(context.Background(), tp, log)

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTP(reg)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestmeta.Middleware)
	r.Use(requestmeta.AccessLog(log))
	r.Use(httpMetrics.Middleware)
	r.Handle("/metrics", metrics.Handler(reg))

	var app *role
	var err error
	switch cfg.Mode {
	case config.ModeEvaluator:
		app = evaluatorRole(log)
	case config.ModeAssistant:
		app, err = assistantRole(ctx, cfg, reg, log)
	default:
		app, err = orchestratorRole(ctx, cfg, reg, log)
	}
	if err != nil {
		return err
	}
	defer app.close()
	for _, h := range app.handlers {
		h.Register(r)
	}

	srv := httpserver.New(cfg.Addr, r, cfg.Responder.CallTimeout+cfg.Responder.EvaluatorTimeout)

	g, gctx := errgroup.WithContext(ctx)
	for _, bg := range app.background {
		g.Go(func() error { return bg(gctx) })
	}
	g.Go(func() error {
		log.Info("starting lucy", "mode", cfg.Mode, "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
