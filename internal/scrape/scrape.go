// Package scrape provides the goquery helpers shared by source adapters.
// The site-specific selectors live in the adapters; this package only
// normalizes what they extract.
package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/myaku-dev/myaku/internal/japanese"
	"github.com/myaku-dev/myaku/internal/models"
)

// Parse builds a document from fetched HTML.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrParseFailed, err)
	}
	return doc, nil
}

// Text extracts the selection's visible text, width-normalized and with
// whitespace runs trimmed to single spaces.
func Text(sel *goquery.Selection) string {
	text := japanese.NormalizeWidth(sel.Text())
	return strings.Join(strings.Fields(text), " ")
}

// RequiredText is Text but fails when the selection is empty or blank,
// for elements an adapter cannot do without.
func RequiredText(sel *goquery.Selection, what string) (string, error) {
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: missing %s", models.ErrParseFailed, what)
	}
	text := Text(sel)
	if text == "" {
		return "", fmt.Errorf("%w: empty %s", models.ErrParseFailed, what)
	}
	return text, nil
}

// timeLayouts are the datetime shapes sources use in attributes.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// TimeAttr parses a datetime attribute (e.g. <time datetime=...>) into UTC.
// Returns the zero time when the attribute is absent or unparseable.
func TimeAttr(sel *goquery.Selection, attr string) time.Time {
	raw, ok := sel.Attr(attr)
	if !ok {
		return time.Time{}
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// IntText parses the selection's text as an integer, tolerating fullwidth
// digits and thousands separators. Returns nil when absent or not numeric.
func IntText(sel *goquery.Selection) *int {
	text := strings.ReplaceAll(Text(sel), ",", "")
	if text == "" {
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil
	}
	return &n
}

// AbsoluteURL resolves href against the page base URL.
func AbsoluteURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: bad link %q: %v", models.ErrParseFailed, href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
