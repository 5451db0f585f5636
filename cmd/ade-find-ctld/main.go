package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xADE/ade-find/internal/config"
	"github.com/0xADE/ade-find/internal/indexer"
	"github.com/0xADE/ade-find/internal/logging"
	"github.com/0xADE/ade-find/internal/metrics"
	"github.com/0xADE/ade-find/internal/search"
	"github.com/0xADE/ade-find/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ade-find-ctld: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	cfg.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index := indexer.NewIndex()
	idx := indexer.NewIndexer(index, indexer.Options{
		Roots:     cfg.Roots,
		Workers:   cfg.Workers(),
		FileDepth: cfg.FileDepth(),
		Logger:    logger,
	})

	engine, err := search.NewEngine(index, search.Options{
		ResultLimit: cfg.ResultLimit(),
		DebugLimit:  cfg.DebugLimit(),
		CacheSize:   cfg.CacheSize(),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	// A changed root list takes effect with a fresh build
	cfg.OnChange(func() { idx.Start(ctx) })
	if err := cfg.Run(ctx); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}

	if addr := cfg.MetricsAddr(); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, logger); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	srv, err := server.NewServer(cfg.UnixSocket(), idx, engine, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Queries are served from the empty snapshot until the first build lands
	idx.Start(ctx)

	logger.Info("ade-find-ctld started", "socket", cfg.UnixSocket(), "rc", cfg.RCPath())
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	srv.Wait()
	idx.Wait()
	_ = os.Remove(cfg.UnixSocket())
	logger.Info("ade-find-ctld stopped")
	return nil
}
