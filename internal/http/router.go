package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/redis/go-redis/v9"

	"seeker/internal/config"
	"seeker/internal/metrics"
	"seeker/internal/store"
)

// Index is the full search-client surface the server depends on.
type Index interface {
	Searcher
	Health() error
}

type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	logger *slog.Logger
}

func NewServer(cfg *config.Config, st *store.Store, idx Index, ing Ingestor, logger *slog.Logger) *Server {
	app := fiber.New()

	app.Use(compress.New())

	// Inject shared dependencies into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		c.Locals("search", idx)
		c.Locals("ingestor", ing)
		c.Locals("logger", logger)
		return c.Next()
	})

	app.Use(requestMiddleware(logger))

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.DB.PingContext(ctx); err != nil {
			dbStatus = "error"
		}

		indexStatus := "ok"
		if idx == nil {
			indexStatus = "disabled"
		} else if err := idx.Health(); err != nil {
			indexStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		status := "ok"
		if dbStatus != "ok" || indexStatus == "error" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"db":     dbStatus,
			"index":  indexStatus,
			"redis":  redisStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	v1 := app.Group("/v1")

	crawler := v1.Group("/crawler")
	crawler.Post("/get-job", getJobHandler)
	crawler.Post("/return-job", returnJobHandler)
	crawler.Post("/keep-alive", keepAliveHandler)

	rateMw := rateLimitMiddleware(cfg, rdb)
	searchGroup := v1.Group("/search", rateMw)
	searchGroup.Post("/web", searchWebHandler)
	searchGroup.Post("/image", searchImageHandler)
	searchGroup.Post("/complete", completeSearchHandler)

	admin := app.Group("/admin")
	admin.Post("/queue", enqueueHandler)
	admin.Get("/queue", listQueueHandler)

	return &Server{
		app:    app,
		config: cfg,
		store:  st,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
