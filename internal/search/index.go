package search

import (
	"encoding/json"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"seeker/internal/model"
)

// Index names in Meilisearch.
const (
	IndexWebsites      = "websites"
	IndexImages        = "images"
	IndexSearchHistory = "search_history"
)

// WebsiteDoc is the searchable projection of a Document. The primary
// key matches the documents table so index hits can be joined back to
// the canonical store.
type WebsiteDoc struct {
	ID          int32    `json:"id"`
	URL         string   `json:"url"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	TextFields  []string `json:"text_fields"`
	Sections    []string `json:"sections"`
	Keywords    []string `json:"keywords"`
}

// ImageDoc is the searchable projection of an Image row.
type ImageDoc struct {
	ID      int32   `json:"id"`
	URL     string  `json:"url"`
	Source  int32   `json:"source"`
	AltText *string `json:"alt_text,omitempty"`
}

// HistoryDoc is the searchable projection of a SearchHistory row,
// queried by CompleteSearch for suggestions.
type HistoryDoc struct {
	ID    int32  `json:"id"`
	Text  string `json:"text"`
	Count int32  `json:"count"`
}

// Client wraps the Meilisearch SDK. It is the only place that touches
// the SDK types.
type Client struct {
	ms          *meilisearch.Client
	hitsPerPage int64
}

// New connects to the Meilisearch instance at url. apiKey may be empty
// for unprotected instances.
func New(url, apiKey string, hitsPerPage int) *Client {
	if hitsPerPage <= 0 {
		hitsPerPage = 20
	}
	return &Client{
		ms: meilisearch.NewClient(meilisearch.ClientConfig{
			Host:   url,
			APIKey: apiKey,
		}),
		hitsPerPage: int64(hitsPerPage),
	}
}

// Health pings the Meilisearch instance.
func (c *Client) Health() error {
	if _, err := c.ms.Health(); err != nil {
		return fmt.Errorf("meilisearch health: %w", err)
	}
	return nil
}

// WebsiteDocFromDocument projects a canonical document for indexing.
func WebsiteDocFromDocument(doc model.Document) WebsiteDoc {
	return WebsiteDoc{
		ID:          doc.ID,
		URL:         doc.URL,
		Title:       doc.Title,
		Description: doc.Description,
		TextFields:  doc.TextFields,
		Sections:    doc.Sections,
		Keywords:    doc.Keywords,
	}
}

// ImageDocFromImage projects an image row for indexing.
func ImageDocFromImage(img model.Image) ImageDoc {
	return ImageDoc{
		ID:      img.ID,
		URL:     img.URL,
		Source:  img.Source,
		AltText: img.AltText,
	}
}

// UpsertWebsites adds or replaces documents in the websites index.
// Upserts are idempotent on the primary key, so retries after a crash
// cannot create duplicates.
func (c *Client) UpsertWebsites(docs []WebsiteDoc) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := c.ms.Index(IndexWebsites).AddDocuments(&docs, "id"); err != nil {
		return fmt.Errorf("upsert websites: %w", err)
	}
	return nil
}

// UpsertImages adds or replaces documents in the images index.
func (c *Client) UpsertImages(docs []ImageDoc) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := c.ms.Index(IndexImages).AddDocuments(&docs, "id"); err != nil {
		return fmt.Errorf("upsert images: %w", err)
	}
	return nil
}

// UpsertSearchHistory adds or replaces an entry in the search_history
// index.
func (c *Client) UpsertSearchHistory(h model.SearchHistory) error {
	docs := []HistoryDoc{{ID: h.ID, Text: h.Text, Count: h.Count}}
	if _, err := c.ms.Index(IndexSearchHistory).AddDocuments(&docs, "id"); err != nil {
		return fmt.Errorf("upsert search history: %w", err)
	}
	return nil
}

// SearchWebsites runs a paged free-text query against the websites
// index and returns the matching projections in relevance order.
func (c *Client) SearchWebsites(query string, page uint32) ([]WebsiteDoc, error) {
	res, err := c.ms.Index(IndexWebsites).Search(query, &meilisearch.SearchRequest{
		Page:        int64(page),
		HitsPerPage: c.hitsPerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("search websites: %w", err)
	}
	return decodeHits[WebsiteDoc](res.Hits)
}

// SearchImages runs a paged free-text query against the images index.
func (c *Client) SearchImages(query string, page uint32) ([]ImageDoc, error) {
	res, err := c.ms.Index(IndexImages).Search(query, &meilisearch.SearchRequest{
		Page:        int64(page),
		HitsPerPage: c.hitsPerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	return decodeHits[ImageDoc](res.Hits)
}

// CompleteSearch returns past query texts matching the given prefix.
func (c *Client) CompleteSearch(current string) ([]string, error) {
	res, err := c.ms.Index(IndexSearchHistory).Search(current, &meilisearch.SearchRequest{
		HitsPerPage: c.hitsPerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("complete search: %w", err)
	}

	hits, err := decodeHits[HistoryDoc](res.Hits)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
	}
	return texts, nil
}

// decodeHits round-trips the SDK's loosely typed hits through JSON into
// the concrete projection type.
func decodeHits[T any](hits []interface{}) ([]T, error) {
	out := make([]T, 0, len(hits))
	for _, hit := range hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		out = append(out, doc)
	}
	return out, nil
}
