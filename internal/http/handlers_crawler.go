package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"seeker/internal/ingest"
	"seeker/internal/metrics"
	"seeker/internal/model"
	"seeker/internal/store"
)

// Ingestor is the slice of the ingest package the return-job handler
// needs.
type Ingestor interface {
	Ingest(ctx context.Context, id int32, url string, result *model.CrawlResult) error
}

// getJobHandler leases the next claimable frontier job to the calling
// worker. An empty frontier is reported as RESOURCE_EXHAUSTED so
// workers back off instead of spinning.
func getJobHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	job, err := st.ClaimNext(c.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoJob) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Success: false,
				Code:    CodeResourceExhausted,
				Error:   "no jobs available",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("claim job: %v", err),
		})
	}

	metrics.RecordJobClaimed()
	return c.JSON(GetJobResponse{ID: job.ID, URL: job.URL})
}

// returnJobHandler records the outcome of a leased job. A successful
// result is ingested transactionally; an error result requeues the job
// and is acknowledged without complaint, as is a missing result.
func returnJobHandler(c *fiber.Ctx) error {
	var req ReturnJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Bad request, malformed JSON",
		})
	}

	logger := c.Locals("logger").(*slog.Logger)

	if req.Result == nil || req.Result.OK == nil {
		// The worker gave up on the job. The row is left untouched so a
		// stale return cannot clobber a lease someone else holds; the
		// job becomes claimable again when its own lease expires.
		metrics.RecordJobErrored()
		logger.Info("job returned with error", "job_id", req.ID, "url", req.URL)
		return c.JSON(AckResponse{Success: true})
	}

	ing := c.Locals("ingestor").(Ingestor)
	if err := ing.Ingest(c.Context(), req.ID, req.URL, req.Result.OK); err != nil {
		switch {
		case errors.Is(err, ingest.ErrInvalidURL):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    CodeInvalidArgument,
				Error:   err.Error(),
			})
		case errors.Is(err, store.ErrPrecondition):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    CodeInvalidArgument,
				Error:   "job is not executing under a live lease",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    CodeInternal,
				Error:   fmt.Sprintf("ingest job: %v", err),
			})
		}
	}

	return c.JSON(AckResponse{Success: true})
}

// keepAliveHandler refreshes the lease on a job the worker is still
// processing.
func keepAliveHandler(c *fiber.Ctx) error {
	var req KeepAliveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Bad request, malformed JSON",
		})
	}

	st := c.Locals("store").(*store.Store)
	if err := st.ExtendLease(c.Context(), req.ID, req.URL); err != nil {
		if errors.Is(err, store.ErrPrecondition) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Success: false,
				Code:    CodeInvalidArgument,
				Error:   "job is not executing",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("extend lease: %v", err),
		})
	}

	return c.JSON(AckResponse{Success: true})
}
