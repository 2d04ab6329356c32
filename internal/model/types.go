package model

import "time"

// Status represents the lifecycle state of a crawl job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusExecuting Status = "executing"
	StatusComplete  Status = "complete"
)

// Job is a row in the frontier queue. A job in executing state holds a
// lease that expires at Expiry; an expired lease makes the row
// claimable again.
type Job struct {
	ID          int32
	URL         string
	Status      Status
	Attempts    int32
	Expiry      *time.Time
	LastUpdated time.Time
	CreatedAt   time.Time
}

// Document is the canonical record of a successfully crawled HTML page.
type Document struct {
	ID              int32
	URL             string
	Title           *string
	Description     *string
	IconURL         *string
	TextFields      []string
	Sections        []string
	Keywords        []string
	SiteName        *string
	SiteShortName   *string
	SiteDescription *string
	SiteCategories  []string
	CreatedAt       time.Time
}

// Image is a child row of a Document for an <img> found on the page.
type Image struct {
	ID        int32
	URL       string
	Source    int32
	Width     *int32
	Height    *int32
	AltText   *string
	CreatedAt time.Time
}

// SearchHistory records past search queries; Count grows on repeats.
type SearchHistory struct {
	ID            int32
	Text          string
	Count         int32
	LastUpdatedAt time.Time
	CreatedAt     time.Time
}

// Size holds pixel dimensions of a decoded image.
type Size struct {
	Width  int32 `json:"width"`
	Height int32 `json:"height"`
}

// Length holds a media duration.
type Length struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// ImageRef is one <img> entry extracted from an HTML page. Size is nil
// when the image could not be fetched or decoded.
type ImageRef struct {
	ImageURL string  `json:"imageUrl"`
	Size     *Size   `json:"size,omitempty"`
	AltText  *string `json:"altText,omitempty"`
}

// ManifestBody is a decoded web app manifest.
type ManifestBody struct {
	Name        *string  `json:"name,omitempty"`
	ShortName   *string  `json:"short_name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`
}

// HTMLBody carries the structured content of a parsed HTML page.
type HTMLBody struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	IconURL     *string       `json:"iconUrl,omitempty"`
	TextFields  []string      `json:"textFields"`
	Sections    []string      `json:"sections"`
	Keywords    []string      `json:"keywords"`
	Manifest    *ManifestBody `json:"manifest,omitempty"`
	Images      []ImageRef    `json:"images"`
}

// ImageBody is the result of crawling a raw image resource.
type ImageBody struct {
	Size *Size `json:"size,omitempty"`
}

// VideoBody is the result of crawling a raw video resource.
type VideoBody struct {
	Size   *Size   `json:"size,omitempty"`
	Length *Length `json:"length,omitempty"`
}

// AudioBody is the result of crawling a raw audio resource.
type AudioBody struct {
	Length *Length `json:"length,omitempty"`
}

// CrawlBody is the oneof payload of a crawl result. At most one field
// is set; all nil means the resource was opaque.
type CrawlBody struct {
	HTML     *HTMLBody     `json:"html,omitempty"`
	Image    *ImageBody    `json:"image,omitempty"`
	Video    *VideoBody    `json:"video,omitempty"`
	Audio    *AudioBody    `json:"audio,omitempty"`
	Manifest *ManifestBody `json:"manifest,omitempty"`
}

// CrawlResult is what a worker hands back for a successfully fetched
// job: the classified body plus every outbound URL discovered on the
// page, already normalized against the page URL.
type CrawlResult struct {
	Status     int32      `json:"status"`
	MimeType   string     `json:"mimeType"`
	LinkedURLs []string   `json:"linkedUrls"`
	Body       *CrawlBody `json:"body,omitempty"`
}
