package http

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"seeker/internal/metrics"
	"seeker/internal/model"
	"seeker/internal/search"
	"seeker/internal/store"
)

// Searcher is the slice of the search client the query handlers need.
type Searcher interface {
	SearchWebsites(query string, page uint32) ([]search.WebsiteDoc, error)
	SearchImages(query string, page uint32) ([]search.ImageDoc, error)
	CompleteSearch(current string) ([]string, error)
	UpsertSearchHistory(h model.SearchHistory) error
}

// logQuery records the query in search history, both in the canonical
// store and in the index that serves completions. History failures
// never fail the search itself.
func logQuery(c *fiber.Ctx, query string) {
	st := c.Locals("store").(*store.Store)
	idx := c.Locals("search").(Searcher)
	logger := c.Locals("logger").(*slog.Logger)

	h, err := st.LogSearch(c.Context(), query)
	if err != nil {
		logger.Warn("search history write failed", "query", query, "error", err)
		return
	}
	if h.ID == 0 {
		return
	}
	if err := idx.UpsertSearchHistory(h); err != nil {
		metrics.RecordIndexUpsert(search.IndexSearchHistory, false)
		logger.Warn("search history index upsert failed", "query", query, "error", err)
	}
}

// searchWebHandler serves free-text website search. Hits come from the
// index in relevance order and are joined back to the canonical store;
// a hit without a canonical row means the two stores diverged and is
// reported as an internal error.
func searchWebHandler(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Bad request, malformed JSON",
		})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Missing required field 'query'",
		})
	}

	logQuery(c, req.Query)

	idx := c.Locals("search").(Searcher)
	hits, err := idx.SearchWebsites(req.Query, req.Page)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("search websites: %v", err),
		})
	}

	metrics.RecordSearch("web")

	st := c.Locals("store").(*store.Store)
	ids := make([]int32, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}

	docs, err := st.GetDocumentsByIDs(c.Context(), ids)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("load documents: %v", err),
		})
	}

	results := make([]WebResult, 0, len(hits))
	for _, hit := range hits {
		doc, ok := docs[hit.ID]
		if !ok {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    CodeInternal,
				Error:   "desync between postgres and meilisearch",
			})
		}
		results = append(results, WebResult{
			ID:          doc.ID,
			URL:         doc.URL,
			Title:       doc.Title,
			Description: doc.Description,
			IconURL:     doc.IconURL,
			SiteName:    doc.SiteName,
			Sections:    doc.Sections,
			Keywords:    doc.Keywords,
		})
	}

	return c.JSON(WebSearchResponse{Results: results})
}

// searchImageHandler serves free-text image search with the same
// index-then-join shape as website search.
func searchImageHandler(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Bad request, malformed JSON",
		})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Missing required field 'query'",
		})
	}

	logQuery(c, req.Query)

	idx := c.Locals("search").(Searcher)
	hits, err := idx.SearchImages(req.Query, req.Page)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("search images: %v", err),
		})
	}

	metrics.RecordSearch("image")

	st := c.Locals("store").(*store.Store)
	ids := make([]int32, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}

	images, err := st.GetImagesByIDs(c.Context(), ids)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("load images: %v", err),
		})
	}

	results := make([]ImageResult, 0, len(hits))
	for _, hit := range hits {
		img, ok := images[hit.ID]
		if !ok {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    CodeInternal,
				Error:   "desync between postgres and meilisearch",
			})
		}
		results = append(results, ImageResult{
			ID:      img.ID,
			URL:     img.URL,
			Source:  img.Source,
			Width:   img.Width,
			Height:  img.Height,
			AltText: img.AltText,
		})
	}

	return c.JSON(ImageSearchResponse{Results: results})
}

// completeSearchHandler suggests past queries matching a partial input.
func completeSearchHandler(c *fiber.Ctx) error {
	var req CompleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInvalidArgument,
			Error:   "Bad request, malformed JSON",
		})
	}

	idx := c.Locals("search").(Searcher)
	suggestions, err := idx.CompleteSearch(req.Current)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    CodeInternal,
			Error:   fmt.Sprintf("complete search: %v", err),
		})
	}

	metrics.RecordSearch("complete")
	return c.JSON(CompleteResponse{Possibilities: suggestions})
}
