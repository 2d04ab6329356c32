package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"seeker/internal/model"
)

const documentColumns = "id, url, title, description, icon_url, text_fields, sections, keywords, site_name, site_short_name, site_description, site_categories, created_at"

func scanDocument(row interface{ Scan(...any) error }) (model.Document, error) {
	var doc model.Document
	err := row.Scan(
		&doc.ID, &doc.URL, &doc.Title, &doc.Description, &doc.IconURL,
		pq.Array(&doc.TextFields), pq.Array(&doc.Sections), pq.Array(&doc.Keywords),
		&doc.SiteName, &doc.SiteShortName, &doc.SiteDescription,
		pq.Array(&doc.SiteCategories), &doc.CreatedAt,
	)
	return doc, err
}

// InsertDocumentTx stores a canonical document row inside the
// ingestion transaction and returns the assigned id.
func (s *Store) InsertDocumentTx(ctx context.Context, tx *sql.Tx, doc model.Document) (int32, error) {
	var id int32
	err := tx.QueryRowContext(ctx,
		"INSERT INTO documents (url, title, description, icon_url, text_fields, sections, keywords, site_name, site_short_name, site_description, site_categories) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id",
		doc.URL, doc.Title, doc.Description, doc.IconURL,
		pq.Array(doc.TextFields), pq.Array(doc.Sections), pq.Array(doc.Keywords),
		doc.SiteName, doc.SiteShortName, doc.SiteDescription, pq.Array(doc.SiteCategories),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// InsertImageTx stores an image row referencing its parent document.
func (s *Store) InsertImageTx(ctx context.Context, tx *sql.Tx, img model.Image) (int32, error) {
	var id int32
	err := tx.QueryRowContext(ctx,
		"INSERT INTO images (url, source, width, height, alt_text) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		img.URL, img.Source, img.Width, img.Height, img.AltText,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert image: %w", err)
	}
	return id, nil
}

// GetDocumentsByIDs fetches documents for the given ids, keyed by id so
// callers can preserve search-hit order.
func (s *Store) GetDocumentsByIDs(ctx context.Context, ids []int32) (map[int32]model.Document, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer rows.Close()

	docs := make(map[int32]model.Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("get documents: scan: %w", err)
		}
		docs[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	return docs, nil
}

// GetImagesByIDs fetches image rows for the given ids, keyed by id.
func (s *Store) GetImagesByIDs(ctx context.Context, ids []int32) (map[int32]model.Image, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, url, source, width, height, alt_text, created_at FROM images WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get images: %w", err)
	}
	defer rows.Close()

	images := make(map[int32]model.Image, len(ids))
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.URL, &img.Source, &img.Width, &img.Height, &img.AltText, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("get images: scan: %w", err)
		}
		images[img.ID] = img
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get images: %w", err)
	}
	return images, nil
}

// ListDocumentsCreatedSince returns documents created at or after
// cutoff. Used by the startup reindex sweep.
func (s *Store) ListDocumentsCreatedSince(ctx context.Context, cutoff time.Time) ([]model.Document, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE created_at >= $1 ORDER BY id", cutoff)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents: scan: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// ListImagesBySources returns image rows whose parent document id is in
// sources. Used by the startup reindex sweep.
func (s *Store) ListImagesBySources(ctx context.Context, sources []int32) ([]model.Image, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, url, source, width, height, alt_text, created_at FROM images WHERE source = ANY($1) ORDER BY id", pq.Array(sources))
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.URL, &img.Source, &img.Width, &img.Height, &img.AltText, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("list images: scan: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

// LogSearch upserts a search-history row for text, incrementing its
// count on repeats. Empty queries are skipped.
func (s *Store) LogSearch(ctx context.Context, text string) (model.SearchHistory, error) {
	if text == "" {
		return model.SearchHistory{}, nil
	}

	var h model.SearchHistory
	err := s.DB.QueryRowContext(ctx,
		"INSERT INTO search_history (text) VALUES ($1) ON CONFLICT (text) DO UPDATE SET count = search_history.count + 1, last_updated_at = now() RETURNING id, text, count, last_updated_at, created_at",
		text,
	).Scan(&h.ID, &h.Text, &h.Count, &h.LastUpdatedAt, &h.CreatedAt)
	if err != nil {
		return model.SearchHistory{}, fmt.Errorf("log search: %w", err)
	}
	return h, nil
}
