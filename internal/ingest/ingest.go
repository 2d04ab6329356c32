package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"seeker/internal/metrics"
	"seeker/internal/model"
	"seeker/internal/search"
	"seeker/internal/store"
	"seeker/internal/urlnorm"
)

// ErrInvalidURL means the returned job URL is not syntactically valid.
var ErrInvalidURL = errors.New("malformed job url")

// Indexer is the slice of the search client the ingestor needs.
type Indexer interface {
	UpsertWebsites(docs []search.WebsiteDoc) error
	UpsertImages(docs []search.ImageDoc) error
}

// Ingestor is the only writer of canonical state. It records the
// outcome of a successful crawl: completes the job, grows the frontier
// with discovered URLs, persists the document and its images, and
// feeds the search index.
type Ingestor struct {
	store  *store.Store
	index  Indexer
	logger *slog.Logger
}

func New(st *store.Store, index Indexer, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: st, index: index, logger: logger}
}

// Ingest processes a worker's successful return for job id/rawURL.
//
// All database effects happen in one transaction, with the job's
// complete transition as part of the same durable commit: a stale
// worker whose lease was reclaimed fails the conditional update and
// none of its side effects land. The index upsert runs after commit;
// it is idempotent on document id, and the startup reindex sweep
// re-upserts recent documents, so a crash between commit and upsert
// converges without duplicates.
func (i *Ingestor) Ingest(ctx context.Context, id int32, rawURL string, result *model.CrawlResult) error {
	base, err := url.Parse(rawURL)
	if err != nil || base.Scheme == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	var websiteDocs []search.WebsiteDoc
	var imageDocs []search.ImageDoc

	err = i.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := i.store.CompleteJobTx(ctx, tx, id, rawURL); err != nil {
			return err
		}

		for _, link := range result.LinkedURLs {
			normalized, err := urlnorm.Normalize(link, base)
			if err != nil {
				continue
			}
			if err := i.store.EnqueueIfAbsentTx(ctx, tx, normalized.String()); err != nil {
				return err
			}
		}

		if result.Body == nil || result.Body.HTML == nil {
			return nil
		}

		doc := documentFromPayload(rawURL, result.Body.HTML)
		docID, err := i.store.InsertDocumentTx(ctx, tx, doc)
		if err != nil {
			return err
		}
		doc.ID = docID
		websiteDocs = append(websiteDocs, search.WebsiteDocFromDocument(doc))

		for _, ref := range result.Body.HTML.Images {
			img := model.Image{URL: ref.ImageURL, Source: docID, AltText: ref.AltText}
			if ref.Size != nil {
				w, h := ref.Size.Width, ref.Size.Height
				img.Width = &w
				img.Height = &h
			}
			imgID, err := i.store.InsertImageTx(ctx, tx, img)
			if err != nil {
				return err
			}
			img.ID = imgID
			imageDocs = append(imageDocs, search.ImageDocFromImage(img))
		}

		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordJobCompleted()

	// The canonical state is committed at this point; an index failure
	// is repaired by the reindex sweep rather than surfaced to the
	// worker, whose job is already complete.
	if err := i.index.UpsertWebsites(websiteDocs); err != nil {
		metrics.RecordIndexUpsert(search.IndexWebsites, false)
		i.logger.Warn("website index upsert failed", "job_id", id, "error", err)
	} else if len(websiteDocs) > 0 {
		metrics.RecordIndexUpsert(search.IndexWebsites, true)
	}

	if err := i.index.UpsertImages(imageDocs); err != nil {
		metrics.RecordIndexUpsert(search.IndexImages, false)
		i.logger.Warn("image index upsert failed", "job_id", id, "error", err)
	} else if len(imageDocs) > 0 {
		metrics.RecordIndexUpsert(search.IndexImages, true)
	}

	return nil
}

// Reindex re-upserts every document created within the window, plus
// their images. Run at startup so the index catches up with commits
// whose upsert was lost to a crash.
func (i *Ingestor) Reindex(ctx context.Context, window time.Duration) error {
	cutoff := time.Now().UTC().Add(-window)

	docs, err := i.store.ListDocumentsCreatedSince(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	websiteDocs := make([]search.WebsiteDoc, 0, len(docs))
	sources := make([]int32, 0, len(docs))
	for _, doc := range docs {
		websiteDocs = append(websiteDocs, search.WebsiteDocFromDocument(doc))
		sources = append(sources, doc.ID)
	}

	images, err := i.store.ListImagesBySources(ctx, sources)
	if err != nil {
		return err
	}
	imageDocs := make([]search.ImageDoc, 0, len(images))
	for _, img := range images {
		imageDocs = append(imageDocs, search.ImageDocFromImage(img))
	}

	if err := i.index.UpsertWebsites(websiteDocs); err != nil {
		return err
	}
	if err := i.index.UpsertImages(imageDocs); err != nil {
		return err
	}

	i.logger.Info("reindex sweep finished", "documents", len(websiteDocs), "images", len(imageDocs))
	return nil
}

func documentFromPayload(pageURL string, html *model.HTMLBody) model.Document {
	doc := model.Document{
		URL:         pageURL,
		Title:       html.Title,
		Description: html.Description,
		IconURL:     html.IconURL,
		TextFields:  html.TextFields,
		Sections:    html.Sections,
		Keywords:    html.Keywords,
	}
	if html.Manifest != nil {
		doc.SiteName = html.Manifest.Name
		doc.SiteShortName = html.Manifest.ShortName
		doc.SiteDescription = html.Manifest.Description
		doc.SiteCategories = html.Manifest.Categories
	}
	return doc
}
