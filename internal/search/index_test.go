package search

import (
	"testing"

	"seeker/internal/model"
)

func TestDecodeHits(t *testing.T) {
	hits := []interface{}{
		map[string]interface{}{"id": float64(1), "url": "https://example.com/", "title": "Example"},
		map[string]interface{}{"id": float64(2), "url": "https://example.org/"},
	}

	docs, err := decodeHits[WebsiteDoc](hits)
	if err != nil {
		t.Fatalf("decodeHits: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != 1 || docs[0].Title == nil || *docs[0].Title != "Example" {
		t.Fatalf("unexpected first doc: %+v", docs[0])
	}
	if docs[1].ID != 2 || docs[1].Title != nil {
		t.Fatalf("unexpected second doc: %+v", docs[1])
	}
}

func TestWebsiteDocFromDocument(t *testing.T) {
	title := "T"
	doc := WebsiteDocFromDocument(model.Document{
		ID:         9,
		URL:        "https://example.com/",
		Title:      &title,
		TextFields: []string{"a"},
		Sections:   []string{"b"},
		Keywords:   []string{"c"},
	})
	if doc.ID != 9 || doc.URL != "https://example.com/" {
		t.Fatalf("unexpected projection: %+v", doc)
	}
	if len(doc.TextFields) != 1 || len(doc.Sections) != 1 || len(doc.Keywords) != 1 {
		t.Fatalf("field slices not carried: %+v", doc)
	}
}

func TestImageDocFromImage(t *testing.T) {
	alt := "logo"
	doc := ImageDocFromImage(model.Image{ID: 3, URL: "https://example.com/l.png", Source: 9, AltText: &alt})
	if doc.ID != 3 || doc.Source != 9 || doc.AltText == nil || *doc.AltText != "logo" {
		t.Fatalf("unexpected projection: %+v", doc)
	}
}
