package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"seeker/internal/config"
	server "seeker/internal/http"
	"seeker/internal/ingest"
	"seeker/internal/migrate"
	"seeker/internal/search"
	"seeker/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	databaseURL := flag.String("database-url", "", "override database DSN")
	meilisearchURL := flag.String("meilisearch-url", "", "override Meilisearch URL")
	hostAddress := flag.String("host-address", "", "override listen host")
	port := flag.Int("port", 0, "override listen port")
	flag.Parse()

	cfg := config.Load(*configPath)
	if *databaseURL != "" {
		cfg.Database.DSN = *databaseURL
	}
	if *meilisearchURL != "" {
		cfg.Meilisearch.URL = *meilisearchURL
	}
	if *hostAddress != "" {
		cfg.Server.Host = *hostAddress
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Run migrations on a short-lived connection
	if err := migrate.Run(cfg.Database.DSN, migrate.DefaultDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Create a shared *sql.DB with pooling for the Store
	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open db failed: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	st := store.New(db, time.Duration(cfg.Queue.LeaseMinutes)*time.Minute)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	idx := search.New(cfg.Meilisearch.URL, cfg.Meilisearch.APIKey, cfg.Search.HitsPerPage)
	if err := idx.Health(); err != nil {
		logger.Warn("search index unreachable at startup", "error", err)
	}

	ing := ingest.New(st, idx, logger)

	// Catch the index up with commits whose upsert was lost to a crash.
	if cfg.Reindex.Enabled {
		window := time.Duration(cfg.Reindex.WindowHours) * time.Hour
		if err := ing.Reindex(context.Background(), window); err != nil {
			logger.Warn("reindex sweep failed", "error", err)
		}
	}

	s := server.NewServer(cfg, st, idx, ing, logger)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
