package extract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func newTestExtractor() *Extractor {
	return New(NewSelectorSet(), &http.Client{})
}

func TestExtractClassifiesImage(t *testing.T) {
	e := newTestExtractor()

	res, err := e.Extract(context.Background(), Input{
		Body:        testPNG(t, 32, 16),
		ContentType: "image/png",
		StatusCode:  200,
		URL:         mustURL(t, "https://example.com/pic.png"),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Body == nil || res.Body.Image == nil {
		t.Fatalf("expected image body, got %+v", res.Body)
	}
	if res.Body.Image.Size == nil || res.Body.Image.Size.Width != 32 || res.Body.Image.Size.Height != 16 {
		t.Fatalf("unexpected size: %+v", res.Body.Image.Size)
	}
	if res.Status != 200 || res.MimeType != "image/png" {
		t.Fatalf("unexpected status/mime: %d %q", res.Status, res.MimeType)
	}
}

func TestExtractClassifiesMedia(t *testing.T) {
	e := newTestExtractor()
	base := mustURL(t, "https://example.com/a")

	res, err := e.Extract(context.Background(), Input{ContentType: "video/mp4", StatusCode: 200, URL: base})
	if err != nil {
		t.Fatalf("Extract video: %v", err)
	}
	if res.Body == nil || res.Body.Video == nil {
		t.Fatalf("expected video body, got %+v", res.Body)
	}

	res, err = e.Extract(context.Background(), Input{ContentType: "audio/mpeg", StatusCode: 200, URL: base})
	if err != nil {
		t.Fatalf("Extract audio: %v", err)
	}
	if res.Body == nil || res.Body.Audio == nil {
		t.Fatalf("expected audio body, got %+v", res.Body)
	}
}

func TestExtractClassifiesManifest(t *testing.T) {
	e := newTestExtractor()
	base := mustURL(t, "https://example.com/manifest.json")

	res, err := e.Extract(context.Background(), Input{
		Body:        []byte(`{"name":"Example","short_name":"Ex","categories":["news"]}`),
		ContentType: "application/manifest+json; charset=utf-8",
		StatusCode:  200,
		URL:         base,
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	m := res.Body.Manifest
	if m == nil || m.Name == nil || *m.Name != "Example" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	if m.ShortName == nil || *m.ShortName != "Ex" || len(m.Categories) != 1 {
		t.Fatalf("unexpected manifest fields: %+v", m)
	}

	if _, err := e.Extract(context.Background(), Input{
		Body:        []byte("not json"),
		ContentType: "application/manifest+json",
		StatusCode:  200,
		URL:         base,
	}); err == nil {
		t.Fatal("expected error for malformed manifest")
	}
}

func TestExtractOpaque(t *testing.T) {
	e := newTestExtractor()

	res, err := e.Extract(context.Background(), Input{
		Body:        []byte("%PDF-1.7"),
		ContentType: "application/pdf",
		StatusCode:  200,
		URL:         mustURL(t, "https://example.com/doc.pdf"),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Body != nil {
		t.Fatalf("expected no body, got %+v", res.Body)
	}
	if len(res.LinkedURLs) != 0 {
		t.Fatalf("expected no links, got %v", res.LinkedURLs)
	}
}

func TestExtractHTMLPage(t *testing.T) {
	png16 := testPNG(t, 16, 8)
	mux := http.NewServeMux()
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(png16)
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/site.webmanifest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/manifest+json")
		w.Write([]byte(`{"name":"Example Site","short_name":"Example"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page := `<!doctype html><html><head>
		<title>Hello World</title>
		<meta name="description" content="a test page">
		<meta name="keywords" content="alpha, beta , ,gamma">
		<link rel="icon" href="/favicon.ico">
		<link rel="manifest" href="/site.webmanifest">
	</head><body>
		<h1>Top</h1><h2>Sub</h2>
		<p>first paragraph</p>
		<p> second paragraph </p>
		<a href="/about">about</a>
		<img src="/img.png" alt="small">
		<img src="/missing.png">
	</body></html>`

	e := New(NewSelectorSet(), srv.Client())
	res, err := e.Extract(context.Background(), Input{
		Body:        []byte(page),
		ContentType: "text/html; charset=utf-8",
		StatusCode:  200,
		URL:         mustURL(t, srv.URL+"/"),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	html := res.Body.HTML
	if html == nil {
		t.Fatal("expected html body")
	}
	if html.Title == nil || *html.Title != "Hello World" {
		t.Fatalf("unexpected title: %v", html.Title)
	}
	if html.Description == nil || *html.Description != "a test page" {
		t.Fatalf("unexpected description: %v", html.Description)
	}
	wantKeywords := []string{"alpha", "beta", "gamma"}
	if len(html.Keywords) != len(wantKeywords) {
		t.Fatalf("unexpected keywords: %v", html.Keywords)
	}
	for i, kw := range wantKeywords {
		if html.Keywords[i] != kw {
			t.Fatalf("keyword %d: got %q want %q", i, html.Keywords[i], kw)
		}
	}
	if html.IconURL == nil || *html.IconURL != srv.URL+"/favicon.ico" {
		t.Fatalf("unexpected icon url: %v", html.IconURL)
	}
	if html.Manifest == nil || html.Manifest.Name == nil || *html.Manifest.Name != "Example Site" {
		t.Fatalf("unexpected manifest: %+v", html.Manifest)
	}
	if len(html.TextFields) != 2 || html.TextFields[0] != "first paragraph" || html.TextFields[1] != "second paragraph" {
		t.Fatalf("unexpected text fields: %v", html.TextFields)
	}
	if len(html.Sections) != 2 || html.Sections[0] != "Top" || html.Sections[1] != "Sub" {
		t.Fatalf("unexpected sections: %v", html.Sections)
	}

	if len(html.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(html.Images))
	}
	var sized, unsized int
	for _, img := range html.Images {
		switch img.ImageURL {
		case srv.URL + "/img.png":
			sized++
			if img.Size == nil || img.Size.Width != 16 || img.Size.Height != 8 {
				t.Fatalf("unexpected image size: %+v", img.Size)
			}
			if img.AltText == nil || *img.AltText != "small" {
				t.Fatalf("unexpected alt text: %v", img.AltText)
			}
		case srv.URL + "/missing.png":
			unsized++
			if img.Size != nil {
				t.Fatalf("expected nil size for failed fetch, got %+v", img.Size)
			}
		default:
			t.Fatalf("unexpected image url %q", img.ImageURL)
		}
	}
	if sized != 1 || unsized != 1 {
		t.Fatalf("image accounting off: sized=%d unsized=%d", sized, unsized)
	}

	found := map[string]bool{}
	for _, link := range res.LinkedURLs {
		found[link] = true
	}
	for _, want := range []string{
		srv.URL + "/about",
		srv.URL + "/favicon.ico",
		srv.URL + "/site.webmanifest",
		srv.URL + "/img.png",
		srv.URL + "/missing.png",
	} {
		if !found[want] {
			t.Fatalf("missing link %q in %v", want, res.LinkedURLs)
		}
	}
}

func TestExtractLinksMultiValueAttrs(t *testing.T) {
	page := `<html><head>
		<meta http-equiv="refresh" content="5; URL=/next">
		<meta http-equiv="refresh" content="5">
	</head><body>
		<img srcset="small.png 1x, large.png 2x">
		<object archive="a.jar, b.jar c.jar"></object>
	</body></html>`

	e := newTestExtractor()
	res, err := e.Extract(context.Background(), Input{
		Body:        []byte(page),
		ContentType: "text/html",
		StatusCode:  200,
		URL:         mustURL(t, "https://example.com/dir/page"),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	found := map[string]bool{}
	for _, link := range res.LinkedURLs {
		found[link] = true
	}

	// The first srcset item has no leading space, so the second
	// space-separated token is the descriptor rather than the URL.
	for _, want := range []string{
		"https://example.com/dir/1x",
		"https://example.com/dir/large.png",
		"https://example.com/dir/a.jar",
		"https://example.com/dir/b.jar",
		"https://example.com/dir/c.jar",
		"https://example.com/next",
	} {
		if !found[want] {
			t.Fatalf("missing link %q in %v", want, res.LinkedURLs)
		}
	}
	if found["https://example.com/dir/small.png"] {
		t.Fatalf("first srcset URL should be skipped: %v", res.LinkedURLs)
	}
}

func TestExtractLinksDeduplicated(t *testing.T) {
	page := `<html><body>
		<a href="/a">one</a>
		<a href="/a">two</a>
		<a href="/a#frag">three</a>
	</body></html>`

	e := newTestExtractor()
	res, err := e.Extract(context.Background(), Input{
		Body:        []byte(page),
		ContentType: "text/html",
		StatusCode:  200,
		URL:         mustURL(t, "https://example.com/"),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.LinkedURLs) != 1 || res.LinkedURLs[0] != "https://example.com/a" {
		t.Fatalf("expected single deduplicated link, got %v", res.LinkedURLs)
	}
}
