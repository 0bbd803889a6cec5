// Command metcatalog is an interactive console over the museum collection
// API, backed by an in-memory TTL cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"metcatalog/internal/cache"
	"metcatalog/internal/config"
	"metcatalog/internal/logging"
	"metcatalog/internal/metapi"
	"metcatalog/internal/nationality"
	"metcatalog/internal/service"
)

func main() {
	// Signal-aware context is the root of ownership for long-lived background work.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(stdout, err.Error())
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 2
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
	}
	opts.apply(&cfg)

	logger := logging.New(cfg.LoggingOptions(stderr))

	store := cache.New(cfg.CacheConfig(), cache.WithLogger(logger))
	defer func() {
		// Close is idempotent; safe to call in defer.
		if err := store.Close(); err != nil {
			logger.Error("cache close", "error", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(store.Collector())
		srv, err := startMetrics(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
		defer srv.stop()
	}

	nats, err := nationality.Load(cfg.NationalitiesFile)
	if err != nil {
		// Nationality search still works, unvalidated.
		logger.Warn("nationality list unavailable", "path", cfg.NationalitiesFile, "error", err)
		nats = nil
	}

	client := metapi.New(cfg.APIConfig(), nil, logger)
	works := service.NewWorks(client, store, logger)
	search := service.NewSearch(client, store, works, nats, logger)

	logger.Info("metcatalog starting",
		"api", cfg.API.BaseURL,
		"cleanup_interval", cfg.Cache.CleanupInterval.Std(),
		"metrics", cfg.Metrics.Addr)

	c := newConsole(stdin, stdout, store, works, search, nats, logger)
	if err := c.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}
