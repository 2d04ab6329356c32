package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/PuerkitoBio/goquery"

	"seeker/internal/model"
	"seeker/internal/urlnorm"
)

// Input is a fetched response handed to the extractor.
type Input struct {
	Body        []byte
	ContentType string
	StatusCode  int
	// URL is the resolved request URL; links are normalized against it.
	URL *url.URL
}

// Extractor classifies fetched responses and turns HTML pages into
// structured crawl results. The embedded HTTP client fetches images
// and manifests referenced by the page.
type Extractor struct {
	selectors *SelectorSet
	client    *http.Client

	// fetchSlots bounds concurrent image fetches per page.
	fetchSlots int
}

func New(selectors *SelectorSet, client *http.Client) *Extractor {
	return &Extractor{
		selectors:  selectors,
		client:     client,
		fetchSlots: 4,
	}
}

// Extract classifies the response by Content-Type and produces the
// typed result. First match wins: HTML (empty or containing "html"),
// then image/*, video/*, audio/*, application/manifest+json, and
// finally opaque with no body and no links.
func (e *Extractor) Extract(ctx context.Context, in Input) (*model.CrawlResult, error) {
	result := &model.CrawlResult{
		Status:   int32(in.StatusCode),
		MimeType: in.ContentType,
	}

	mediaType := strings.TrimSpace(in.ContentType)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	switch {
	case in.ContentType == "" || strings.Contains(in.ContentType, "html"):
		body, links, err := e.extractHTML(ctx, in)
		if err != nil {
			return nil, err
		}
		result.Body = &model.CrawlBody{HTML: body}
		result.LinkedURLs = links

	case strings.HasPrefix(mediaType, "image/"):
		result.Body = &model.CrawlBody{Image: &model.ImageBody{Size: decodeSize(in.Body)}}

	case strings.HasPrefix(mediaType, "video/"):
		result.Body = &model.CrawlBody{Video: &model.VideoBody{}}

	case strings.HasPrefix(mediaType, "audio/"):
		result.Body = &model.CrawlBody{Audio: &model.AudioBody{}}

	case mediaType == "application/manifest+json":
		var manifest model.ManifestBody
		if err := json.Unmarshal(in.Body, &manifest); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		result.Body = &model.CrawlBody{Manifest: &manifest}
	}

	return result, nil
}

// extractHTML parses the page and produces the HTML payload plus every
// discovered outbound URL. Parse failures are fatal to the job;
// per-image and manifest fetch failures are not.
func (e *Extractor) extractHTML(ctx context.Context, in Input) (*model.HTMLBody, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(in.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	sel := e.selectors
	body := &model.HTMLBody{
		Title:       firstText(doc, sel.title),
		Description: firstAttr(doc, sel.description, "content"),
		TextFields:  allText(doc, sel.paragraphs),
		Sections:    allText(doc, sel.headings),
		Keywords:    keywords(doc, sel.keywords),
	}

	if raw := firstAttr(doc, sel.iconLink, "href"); raw != nil {
		if u, err := urlnorm.Normalize(*raw, in.URL); err == nil {
			s := u.String()
			body.IconURL = &s
		}
	}

	if raw := firstAttr(doc, sel.manifestLink, "href"); raw != nil {
		if u, err := urlnorm.Normalize(*raw, in.URL); err == nil {
			body.Manifest = e.fetchManifest(ctx, u)
		}
	}

	body.Images = e.extractImages(ctx, doc, in.URL)

	return body, e.extractLinks(doc, in.URL), nil
}

// keywords splits the keywords meta content on commas and trims each
// token.
func keywords(doc *goquery.Document, m goquery.Matcher) []string {
	content := doc.FindMatcher(m).First().AttrOr("content", "")
	if content == "" {
		return nil
	}

	var out []string
	for _, token := range strings.Split(content, ",") {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// firstText returns the trimmed text of the first match, or nil when
// the document has none.
func firstText(doc *goquery.Document, m goquery.Matcher) *string {
	sel := doc.FindMatcher(m).First()
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return nil
	}
	return &text
}

// firstAttr returns the named attribute of the first match, or nil.
func firstAttr(doc *goquery.Document, m goquery.Matcher, attr string) *string {
	sel := doc.FindMatcher(m).First()
	if v, ok := sel.Attr(attr); ok {
		return &v
	}
	return nil
}

// allText collects the trimmed text of every match, skipping empties.
func allText(doc *goquery.Document, m goquery.Matcher) []string {
	var out []string
	doc.FindMatcher(m).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// extractLinks walks the link-bearing attribute set and the multi-value
// attributes, normalizes every candidate against the page URL, and
// drops failures silently. The result is deduplicated in document
// order.
func (e *Extractor) extractLinks(doc *goquery.Document, pageURL *url.URL) []string {
	var candidates []string

	for _, attr := range linkAttrs {
		doc.FindMatcher(e.selectors.link[attr]).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				candidates = append(candidates, v)
			}
		})
	}

	// srcset: one candidate per comma-separated item, taking the second
	// space-separated token. An item without a descriptor contributes
	// its descriptor slot instead of its URL.
	doc.FindMatcher(e.selectors.srcset).Each(func(_ int, s *goquery.Selection) {
		attr, ok := s.Attr("srcset")
		if !ok {
			return
		}
		for _, item := range strings.Split(attr, ",") {
			tokens := strings.Split(item, " ")
			if len(tokens) >= 2 {
				candidates = append(candidates, tokens[1])
			}
		}
	})

	// archive: every whitespace- or comma-separated token is a URL.
	doc.FindMatcher(e.selectors.archive).Each(func(_ int, s *goquery.Selection) {
		attr, ok := s.Attr("archive")
		if !ok {
			return
		}
		candidates = append(candidates, strings.FieldsFunc(attr, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})...)
	})

	// meta refresh: the second ";" segment carries the redirect target,
	// optionally prefixed with "URL=". Content without a second segment
	// contributes nothing.
	doc.FindMatcher(e.selectors.metaRefresh).Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		parts := strings.Split(content, ";")
		if len(parts) < 2 {
			return
		}
		target := strings.TrimSpace(parts[1])
		target = strings.TrimPrefix(strings.TrimPrefix(target, "URL="), "url=")
		candidates = append(candidates, target)
	})

	seen := make(map[string]struct{}, len(candidates))
	links := make([]string, 0, len(candidates))
	for _, raw := range candidates {
		u, err := urlnorm.Normalize(raw, pageURL)
		if err != nil {
			continue
		}
		link := u.String()
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}
	return links
}

// extractImages emits one entry per <img src>, fetching each image to
// decode its dimensions. Fetch or decode failure leaves Size nil but
// keeps the entry.
func (e *Extractor) extractImages(ctx context.Context, doc *goquery.Document, pageURL *url.URL) []model.ImageRef {
	type imgTag struct {
		url string
		alt *string
	}

	var tags []imgTag
	doc.FindMatcher(e.selectors.images).Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		u, err := urlnorm.Normalize(src, pageURL)
		if err != nil {
			return
		}
		tag := imgTag{url: u.String()}
		if alt, ok := s.Attr("alt"); ok {
			tag.alt = &alt
		}
		tags = append(tags, tag)
	})

	if len(tags) == 0 {
		return nil
	}

	refs := make([]model.ImageRef, len(tags))
	sem := make(chan struct{}, e.fetchSlots)

	for idx, tag := range tags {
		select {
		case <-ctx.Done():
			refs[idx] = model.ImageRef{ImageURL: tag.url, AltText: tag.alt}
			continue
		case sem <- struct{}{}:
		}

		idx, tag := idx, tag
		go func() {
			defer func() { <-sem }()
			refs[idx] = model.ImageRef{
				ImageURL: tag.url,
				AltText:  tag.alt,
				Size:     e.fetchImageSize(ctx, tag.url),
			}
		}()
	}

	// Wait for all goroutines to drain the semaphore.
	for i := 0; i < e.fetchSlots; i++ {
		sem <- struct{}{}
	}

	return refs
}

// fetchImageSize fetches the image and decodes only its header. Any
// failure yields nil.
func (e *Extractor) fetchImageSize(ctx context.Context, imgURL string) *model.Size {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return nil
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil
	}

	cfg, _, err := image.DecodeConfig(resp.Body)
	if err != nil {
		return nil
	}
	return &model.Size{Width: int32(cfg.Width), Height: int32(cfg.Height)}
}

// fetchManifest fetches and decodes a web app manifest. Any failure
// yields nil; the page is still ingested without site metadata.
func (e *Extractor) fetchManifest(ctx context.Context, u *url.URL) *model.ManifestBody {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil
	}

	var manifest model.ManifestBody
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil
	}
	return &manifest
}

// decodeSize reads image dimensions from already-fetched bytes without
// decoding pixel data.
func decodeSize(body []byte) *model.Size {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	return &model.Size{Width: int32(cfg.Width), Height: int32(cfg.Height)}
}
