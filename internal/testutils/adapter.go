package testutils

import (
	"context"
	"io"
	"sync"

	"github.com/myaku-dev/myaku/internal/crawler"
	"github.com/myaku-dev/myaku/internal/models"
)

// FakeAdapter serves a fixed candidate list from memory and counts fetches.
type FakeAdapter struct {
	Name       string
	Base       string
	Candidates []*crawler.ArticleCandidate
	// ArticlesByURL maps candidate URLs to the articles a fetch returns.
	ArticlesByURL map[string]*models.Article
	// SkipsByURL maps candidate URLs to skip reasons.
	SkipsByURL map[string]models.SkipReason

	mu         sync.Mutex
	FetchCount map[string]int
}

var _ crawler.SourceAdapter = (*FakeAdapter)(nil)

func (a *FakeAdapter) SourceName() string { return a.Name }
func (a *FakeAdapter) BaseURL() string    { return a.Base }

// MostRecentCrawls returns one crawl iterating the fixed candidates.
func (a *FakeAdapter) MostRecentCrawls(context.Context) ([]crawler.Crawl, error) {
	i := 0
	return []crawler.Crawl{{
		Name: a.Name + " most recent",
		Next: func(context.Context) (*crawler.ArticleCandidate, error) {
			if i >= len(a.Candidates) {
				return nil, io.EOF
			}
			c := a.Candidates[i]
			i++
			return c, nil
		},
	}}, nil
}

// FetchArticle returns the canned article or skip for the candidate URL.
func (a *FakeAdapter) FetchArticle(_ context.Context, candidate *crawler.ArticleCandidate) (*models.Article, error) {
	a.mu.Lock()
	if a.FetchCount == nil {
		a.FetchCount = make(map[string]int)
	}
	a.FetchCount[candidate.URL]++
	a.mu.Unlock()

	if reason, ok := a.SkipsByURL[candidate.URL]; ok {
		return nil, &models.SkipError{Reason: reason, URL: candidate.URL}
	}
	article, ok := a.ArticlesByURL[candidate.URL]
	if !ok {
		return nil, &models.SkipError{Reason: models.SkipReasonNotFound, URL: candidate.URL}
	}
	copied := *article
	return &copied, nil
}

// Fetches returns how many times the URL was fetched.
func (a *FakeAdapter) Fetches(url string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.FetchCount[url]
}
