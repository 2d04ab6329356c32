package http

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"seeker/internal/metrics"
	"seeker/internal/store"
)

// enqueueHandler seeds the frontier with a URL. Duplicates are
// rejected so operators notice re-seeds; worker-side discovery goes
// through the silent if-absent path instead.
func enqueueHandler(c *fiber.Ctx) error {
	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Bad request, malformed JSON",
		})
	}

	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Missing required field 'url'",
		})
	}
	if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   fmt.Sprintf("not an absolute URL: %q", raw),
		})
	}

	st := c.Locals("store").(*store.Store)
	job, err := st.Enqueue(c.Context(), raw)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateURL) {
			metrics.RecordEnqueue("duplicate")
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    CodeInvalidArgument,
				Error:   "URL is already queued",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("enqueue: %v", err),
		})
	}

	metrics.RecordEnqueue("inserted")
	return c.JSON(GetJobResponse{ID: job.ID, URL: job.URL})
}

// listQueueHandler returns every URL that is not yet complete.
func listQueueHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	jobs, err := st.ListIncomplete(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("list queue: %v", err),
		})
	}

	urls := make([]string, 0, len(jobs))
	for _, job := range jobs {
		urls = append(urls, job.URL)
	}
	return c.JSON(QueueResponse{URLs: urls})
}
