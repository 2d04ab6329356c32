package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	api "seeker/internal/http"
	"seeker/internal/model"
)

// ErrNoJob means the coordinator has no claimable job right now; the
// caller backs off and retries.
var ErrNoJob = errors.New("no job available")

// ErrRejected means the coordinator refused the request outright;
// retrying the same call cannot succeed.
var ErrRejected = errors.New("request rejected by coordinator")

// Client talks to the coordinator's crawler API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrNoJob
	case resp.StatusCode == http.StatusBadRequest:
		var er api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		return fmt.Errorf("%w: %s", ErrRejected, er.Error)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetJob claims the next frontier job.
func (c *Client) GetJob(ctx context.Context) (api.GetJobResponse, error) {
	var job api.GetJobResponse
	if err := c.post(ctx, "/v1/crawler/get-job", nil, &job); err != nil {
		return api.GetJobResponse{}, err
	}
	return job, nil
}

// ReturnJob reports the outcome of a job. A nil result reports a crawl
// error and requeues the job.
func (c *Client) ReturnJob(ctx context.Context, id int32, url string, result *model.CrawlResult) error {
	req := api.ReturnJobRequest{ID: id, URL: url}
	if result != nil {
		req.Result = &api.ReturnJobResult{OK: result}
	} else {
		req.Result = &api.ReturnJobResult{Err: &struct{}{}}
	}
	return c.post(ctx, "/v1/crawler/return-job", req, nil)
}

// KeepAlive extends the lease on a job still being processed.
func (c *Client) KeepAlive(ctx context.Context, id int32, url string) error {
	return c.post(ctx, "/v1/crawler/keep-alive", api.KeepAliveRequest{ID: id, URL: url}, nil)
}
