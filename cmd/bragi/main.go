// Command bragi serves the geocoding query API: autocomplete, reverse
// geocoding, feature lookup by id, and a status endpoint reporting which
// concrete index backs each published dataset.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mimirsbrunn/internal/backend"
	"github.com/mimirsbrunn/internal/config"
	"github.com/mimirsbrunn/internal/httpapi"
	"github.com/mimirsbrunn/internal/indexmgr"
	"github.com/mimirsbrunn/internal/metrics"
	"github.com/mimirsbrunn/internal/pkg/logger"
	"github.com/mimirsbrunn/internal/query"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("bragi: load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("bragi: logger: %w", err)
	}
	defer log.Sync()

	log.Info("bragi: starting",
		zap.String("host", cfg.Server.Host), zap.Int("port", cfg.Server.Port))

	be, err := backend.New(cfg.Backend, log)
	if err != nil {
		return fmt.Errorf("bragi: connect backend: %w", err)
	}

	planner := query.New(be, cfg.Backend.RootAlias, cfg.Query)
	mgr := indexmgr.New(be, cfg.Backend.RootAlias, log)

	reg := prometheus.NewRegistry()
	queryMetrics := metrics.NewQuery(reg)

	api := httpapi.New(planner, log, cfg.Server.RequestTimeout, mgr).WithMetrics(queryMetrics)

	mux := http.NewServeMux()
	mux.Handle("/", api)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("bragi: listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("bragi: shutting down", zap.String("signal", sig.String()))
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("bragi: serve: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("bragi: shutdown error", zap.Error(err))
		return err
	}

	log.Info("bragi: stopped")
	return nil
}
