package http

import "seeker/internal/model"

// ErrorResponse is the error envelope returned by every failing
// endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// Error codes used across the API.
const (
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_ERROR"
)

// GetJobResponse is the lease handed to a worker.
type GetJobResponse struct {
	ID  int32  `json:"id"`
	URL string `json:"url"`
}

// ReturnJobResult is the worker's outcome for a job: exactly one of OK
// or Err is set. A request with neither is treated like Err.
type ReturnJobResult struct {
	OK  *model.CrawlResult `json:"ok,omitempty"`
	Err *struct{}          `json:"err,omitempty"`
}

// ReturnJobRequest reports the outcome of a leased job.
type ReturnJobRequest struct {
	ID     int32            `json:"id"`
	URL    string           `json:"url"`
	Result *ReturnJobResult `json:"result,omitempty"`
}

// KeepAliveRequest extends the lease on a job still being processed.
type KeepAliveRequest struct {
	ID  int32  `json:"id"`
	URL string `json:"url"`
}

// AckResponse is the empty success envelope for fire-and-forget calls.
type AckResponse struct {
	Success bool `json:"success"`
}

// EnqueueRequest seeds the frontier with a URL.
type EnqueueRequest struct {
	URL string `json:"url"`
}

// QueueResponse lists the URLs still in the frontier.
type QueueResponse struct {
	URLs []string `json:"urls"`
}

// SearchRequest is a paged free-text query.
type SearchRequest struct {
	Query string `json:"query"`
	Page  uint32 `json:"page"`
}

// WebResult is one website hit joined back to the canonical store.
type WebResult struct {
	ID          int32    `json:"id"`
	URL         string   `json:"url"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	IconURL     *string  `json:"iconUrl,omitempty"`
	SiteName    *string  `json:"siteName,omitempty"`
	Sections    []string `json:"sections"`
	Keywords    []string `json:"keywords"`
}

// WebSearchResponse carries website hits in relevance order.
type WebSearchResponse struct {
	Results []WebResult `json:"results"`
}

// ImageResult is one image hit joined back to the canonical store.
type ImageResult struct {
	ID      int32   `json:"id"`
	URL     string  `json:"url"`
	Source  int32   `json:"source"`
	Width   *int32  `json:"width,omitempty"`
	Height  *int32  `json:"height,omitempty"`
	AltText *string `json:"altText,omitempty"`
}

// ImageSearchResponse carries image hits in relevance order.
type ImageSearchResponse struct {
	Results []ImageResult `json:"results"`
}

// CompleteRequest asks for completions of a partial query.
type CompleteRequest struct {
	Current string `json:"current"`
}

// CompleteResponse lists past queries matching the partial input.
type CompleteResponse struct {
	Possibilities []string `json:"possibilities"`
}
