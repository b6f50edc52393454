// Package crawler orchestrates crawl runs: source adapters discover
// candidate articles, the tracker filters out what the index already has,
// and the pipeline fetches, analyzes, scores, and stores the rest.
package crawler

import (
	"context"
	"time"

	"github.com/myaku-dev/myaku/internal/models"
)

// ArticleCandidate is one discovered article before it is fetched. Blog is
// the containing blog as seen on the listing page, if any.
type ArticleCandidate struct {
	URL         string
	Title       string
	SourceName  string
	LastUpdated time.Time
	Blog        *models.Blog
}

// Crawl is one lazy iteration over a source's listing. Next returns the
// following candidate or io.EOF when the crawl is exhausted; adapters may
// fetch further listing pages inside Next.
type Crawl struct {
	Name string
	Next func(ctx context.Context) (*ArticleCandidate, error)
}

// SourceAdapter is implemented per article source. Adapters own the
// site-specific scraping; fetching inside an adapter goes through the shared
// rate-limited fetcher.
type SourceAdapter interface {
	// SourceName identifies the source in stored documents and logs.
	SourceName() string
	// BaseURL is the root the adapter crawls under.
	BaseURL() string
	// MostRecentCrawls returns the crawls covering recently updated content.
	MostRecentCrawls(ctx context.Context) ([]Crawl, error)
	// FetchArticle pulls and parses one candidate into a full article.
	// Non-indexable pages return a models.SkipError.
	FetchArticle(ctx context.Context, candidate *ArticleCandidate) (*models.Article, error)
}
