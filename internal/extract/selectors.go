package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// linkAttrs are the attributes whose value is a single URL. Each yields
// exactly the attribute's value for every element carrying it.
var linkAttrs = []string{
	"href", "codebase", "cite", "background", "action", "longdesc",
	"src", "profile", "usemap", "classid", "data", "formaction",
	"icon", "manifest", "poster",
}

// SelectorSet is the precompiled collection of selectors the extractor
// uses to locate link-bearing elements and page metadata. It is built
// once per process and passed to the worker loop by reference.
type SelectorSet struct {
	link map[string]goquery.Matcher

	srcset      goquery.Matcher
	archive     goquery.Matcher
	metaRefresh goquery.Matcher

	title        goquery.Matcher
	description  goquery.Matcher
	keywords     goquery.Matcher
	iconLink     goquery.Matcher
	paragraphs   goquery.Matcher
	headings     goquery.Matcher
	manifestLink goquery.Matcher
	images       goquery.Matcher
}

// NewSelectorSet compiles the selector set.
func NewSelectorSet() *SelectorSet {
	link := make(map[string]goquery.Matcher, len(linkAttrs))
	for _, attr := range linkAttrs {
		link[attr] = cascadia.MustCompile("[" + attr + "]")
	}

	return &SelectorSet{
		link: link,

		srcset:      cascadia.MustCompile("[srcset]"),
		archive:     cascadia.MustCompile("[archive]"),
		metaRefresh: cascadia.MustCompile(`meta[http-equiv="refresh"][content]`),

		title:        cascadia.MustCompile("title"),
		description:  cascadia.MustCompile(`meta[name="description"][content]`),
		keywords:     cascadia.MustCompile(`meta[name="keywords"][content]`),
		iconLink:     cascadia.MustCompile(`link[rel="icon"][href]`),
		paragraphs:   cascadia.MustCompile("p"),
		headings:     cascadia.MustCompile("h1, h2, h3, h4, h5, h6"),
		manifestLink: cascadia.MustCompile(`link[rel="manifest"][href]`),
		images:       cascadia.MustCompile("img[src]"),
	}
}
