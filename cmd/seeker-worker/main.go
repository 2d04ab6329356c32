package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"seeker/internal/config"
	"seeker/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	backendURL := flag.String("backend-url", "", "override coordinator URL")
	poolSize := flag.Int("pool-size", 0, "override worker pool size")
	flag.Parse()

	cfg := config.Load(*configPath)
	if *backendURL != "" {
		cfg.Worker.BackendURL = *backendURL
	}
	if *poolSize > 0 {
		cfg.Worker.PoolSize = *poolSize
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := worker.New(cfg, logger)
	logger.Info("worker starting", "backend", cfg.Worker.BackendURL, "pool", cfg.Worker.PoolSize)

	if err := w.Run(ctx); err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
}
