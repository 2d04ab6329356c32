package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"seeker/internal/config"
	"seeker/internal/extract"
	api "seeker/internal/http"
	"seeker/internal/model"
)

// maxBodyBytes caps how much of a response the worker reads.
const maxBodyBytes = 16 << 20

// Worker polls the coordinator for jobs, fetches the URL, runs
// extraction, and returns the outcome. One Worker runs PoolSize
// concurrent loops over a shared HTTP client and selector set.
type Worker struct {
	cfg       *config.Config
	client    *Client
	extractor *extract.Extractor
	fetch     *http.Client
	logger    *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Worker {
	fetch := &http.Client{Timeout: time.Duration(cfg.Worker.FetchTimeoutMs) * time.Millisecond}
	return &Worker{
		cfg:       cfg,
		client:    NewClient(cfg.Worker.BackendURL, time.Duration(cfg.Worker.FetchTimeoutMs)*time.Millisecond),
		extractor: extract.New(extract.NewSelectorSet(), fetch),
		fetch:     fetch,
		logger:    logger,
	}
}

// Run starts the worker loops and blocks until the context is canceled
// or every loop has given up on an unreachable queue.
func (w *Worker) Run(ctx context.Context) error {
	pool := w.cfg.Worker.PoolSize
	if pool <= 0 {
		pool = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < pool; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.loop(ctx, n)
		}(i)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return errors.New("all worker loops stopped")
}

func (w *Worker) loop(ctx context.Context, n int) {
	logger := w.logger.With("loop", n)

	for {
		job, err := w.nextJob(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("job queue unavailable", "error", err)
			}
			return
		}

		logger.Info("processing job", "job_id", job.ID, "url", job.URL)
		w.process(ctx, job)
	}
}

// nextJob polls get-job under exponential backoff. An empty frontier
// is retried; any other failure is permanent for this attempt. The
// schedule runs out after BackoffMaxRetries polls and the loop exits.
func (w *Worker) nextJob(ctx context.Context) (api.GetJobResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(w.cfg.Worker.BackoffInitialMs) * time.Millisecond
	b.MaxInterval = time.Duration(w.cfg.Worker.BackoffMaxMs) * time.Millisecond
	b.MaxElapsedTime = 0

	var schedule backoff.BackOff = b
	if w.cfg.Worker.BackoffMaxRetries > 0 {
		// WithMaxRetries counts retries after the first call, so the
		// configured value is the total number of polls.
		schedule = backoff.WithMaxRetries(b, uint64(w.cfg.Worker.BackoffMaxRetries-1))
	}
	schedule = backoff.WithContext(schedule, ctx)

	var job api.GetJobResponse
	err := backoff.Retry(func() error {
		got, err := w.client.GetJob(ctx)
		if err != nil {
			if errors.Is(err, ErrNoJob) {
				return err
			}
			return backoff.Permanent(err)
		}
		job = got
		return nil
	}, schedule)
	if err != nil {
		return api.GetJobResponse{}, err
	}
	return job, nil
}

// process fetches and extracts one job, keeping the lease alive while
// it works, and returns the outcome to the coordinator. Any failure on
// the way reports an error result; the coordinator requeues the job.
func (w *Worker) process(ctx context.Context, job api.GetJobResponse) {
	keepCtx, stopKeepAlive := context.WithCancel(ctx)
	defer stopKeepAlive()
	go w.keepAlive(keepCtx, job)

	result, err := w.crawl(ctx, job.URL)
	stopKeepAlive()

	if err != nil {
		w.logger.Warn("crawl failed", "job_id", job.ID, "url", job.URL, "error", err)
		result = nil
	}

	if err := w.client.ReturnJob(ctx, job.ID, job.URL, result); err != nil {
		// The lease expires on its own and the job is retried; nothing
		// more this worker can do.
		w.logger.Warn("return job failed", "job_id", job.ID, "error", err)
	}
}

// keepAlive extends the job lease on an interval until canceled.
func (w *Worker) keepAlive(ctx context.Context, job api.GetJobResponse) {
	interval := time.Duration(w.cfg.Worker.KeepAliveIntervalMs) * time.Millisecond
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.client.KeepAlive(ctx, job.ID, job.URL); err != nil {
				w.logger.Warn("keep-alive failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

// crawl fetches the job URL and runs extraction on the response.
func (w *Worker) crawl(ctx context.Context, rawURL string) (*model.CrawlResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", w.cfg.Worker.UserAgent)

	resp, err := w.fetch.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// Redirects may have moved us; resolve links against the final URL.
	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return w.extractor.Extract(ctx, extract.Input{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		URL:         finalURL,
	})
}
