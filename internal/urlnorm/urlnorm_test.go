package urlnorm

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestNormalizeResolvesRelative(t *testing.T) {
	base := mustParse(t, "https://example.com/a/b")

	u, err := Normalize("/about", base)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got := u.String(); got != "https://example.com/about" {
		t.Fatalf("Normalize(/about) = %q, want https://example.com/about", got)
	}

	u, err = Normalize("c/d", base)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got := u.String(); got != "https://example.com/a/c/d" {
		t.Fatalf("Normalize(c/d) = %q, want https://example.com/a/c/d", got)
	}
}

func TestNormalizeStripsFragment(t *testing.T) {
	base := mustParse(t, "https://a/")

	u, err := Normalize("https://c/page#frag", base)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if got := u.String(); got != "https://c/page" {
		t.Fatalf("fragment not stripped: got %q", got)
	}
}

func TestNormalizeKeepsForeignSchemes(t *testing.T) {
	// Non-http(s) schemes are not filtered here.
	base := mustParse(t, "https://example.com/")

	u, err := Normalize("mailto:someone@example.com", base)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if u.Scheme != "mailto" {
		t.Fatalf("scheme = %q, want mailto", u.Scheme)
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	base := mustParse(t, "https://example.com/")

	if _, err := Normalize("http://exa mple.com/%zz", base); err == nil {
		t.Fatal("expected error for malformed URL")
	}
	if _, err := Normalize("anything", nil); err == nil {
		t.Fatal("expected error for nil base")
	}
}

func TestNormalizeString(t *testing.T) {
	got, err := NormalizeString("/about#x", "https://example.com/home")
	if err != nil {
		t.Fatalf("NormalizeString returned error: %v", err)
	}
	if got != "https://example.com/about" {
		t.Fatalf("NormalizeString = %q, want https://example.com/about", got)
	}

	if _, err := NormalizeString("/x", "://bad"); err == nil {
		t.Fatal("expected error for malformed base")
	}
}
