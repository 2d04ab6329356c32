package urlnorm

import (
	"fmt"
	"net/url"
)

// Normalize resolves raw as a reference against base and clears the
// fragment. Parse failures are returned as errors; callers on the
// discovery path drop the URL silently. Scheme filtering is
// deliberately not performed here, so non-http(s) references propagate
// to the frontier.
func Normalize(raw string, base *url.URL) (*url.URL, error) {
	if base == nil {
		return nil, fmt.Errorf("normalize %q: nil base url", raw)
	}

	u, err := base.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %q: %w", raw, err)
	}

	u.Fragment = ""
	return u, nil
}

// NormalizeString is Normalize for callers that carry URLs as strings,
// such as the ingestion path.
func NormalizeString(raw, base string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}

	u, err := Normalize(raw, baseURL)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
