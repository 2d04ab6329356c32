package http

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"seeker/internal/config"
	"seeker/internal/metrics"
)

// requestMiddleware tags each request with an id and records latency
// and status for the metrics endpoint.
func requestMiddleware(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		metrics.RecordRequest(c.Method(), c.Path(), status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	}
}

// rateLimitMiddleware enforces a per-minute fixed-window limit per
// client IP using Redis. Applied to the search routes only; workers
// poll the crawler routes as fast as the frontier allows.
func rateLimitMiddleware(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || cfg.RateLimit.PerMinute <= 0 {
			return c.Next()
		}

		window := time.Now().UTC().Format("200601021504")
		key := fmt.Sprintf("seeker:rl:%s:%s", c.IP(), window)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Rate limiting is advisory; a Redis outage must not take
			// search down with it.
			return c.Next()
		}
		if count == 1 {
			_ = rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(cfg.RateLimit.PerMinute) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Code:    CodeRateLimited,
				Error:   "Rate limit exceeded, try again later",
			})
		}

		return c.Next()
	}
}
