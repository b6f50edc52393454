package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

// TrackerStore is the slice of the index the tracker needs.
type TrackerStore interface {
	// LookupCrawled maps stored article source URLs to last-crawled times.
	LookupCrawled(ctx context.Context, urls []string) (map[string]time.Time, error)
	// LookupSkipped maps crawl-skip source URLs to last-crawled times.
	LookupSkipped(ctx context.Context, urls []string) (map[string]time.Time, error)
	// UpdateLastCrawled touches the article stored under the URL, reporting
	// whether one existed.
	UpdateLastCrawled(ctx context.Context, sourceURL string, t time.Time) (bool, error)
	InsertCrawlSkip(ctx context.Context, skip *models.CrawlSkip) error
}

// Tracker decides which discovered candidates still need crawling and
// records crawl outcomes. All decisions read the index, so re-running a
// crawl against an unchanged index filters everything out.
type Tracker struct {
	store TrackerStore
	log   logger.Logger
}

// NewTracker creates a tracker over the given store.
func NewTracker(store TrackerStore, log logger.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// FilterToUnseen keeps candidates worth crawling: URLs the index has never
// stored, stored URLs with no last-crawled time, and stored URLs updated
// since they were last crawled. Candidates in the crawl-skip set are always
// removed.
func (t *Tracker) FilterToUnseen(ctx context.Context, candidates []*ArticleCandidate) ([]*ArticleCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}

	crawled, err := t.store.LookupCrawled(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("look up crawled URLs: %w", err)
	}
	skipped, err := t.store.LookupSkipped(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("look up skipped URLs: %w", err)
	}

	var unseen []*ArticleCandidate
	for _, c := range candidates {
		if _, ok := skipped[c.URL]; ok {
			continue
		}
		lastCrawled, ok := crawled[c.URL]
		if !ok || lastCrawled.IsZero() || c.LastUpdated.After(lastCrawled) {
			unseen = append(unseen, c)
		}
	}
	return unseen, nil
}

// Unseen reports whether a single candidate still needs crawling.
func (t *Tracker) Unseen(ctx context.Context, candidate *ArticleCandidate) (bool, error) {
	kept, err := t.FilterToUnseen(ctx, []*ArticleCandidate{candidate})
	if err != nil {
		return false, err
	}
	return len(kept) == 1, nil
}

// RecordCrawled marks the URL crawled at the given time. A URL with a
// stored article gets its last-crawled time updated; a URL without one
// (the page turned out non-indexable) gets a crawl-skip record so it is
// never retried.
func (t *Tracker) RecordCrawled(ctx context.Context, sourceURL, sourceName string, at time.Time) error {
	updated, err := t.store.UpdateLastCrawled(ctx, sourceURL, at)
	if err != nil {
		return fmt.Errorf("record crawled %s: %w", sourceURL, err)
	}
	if updated {
		return nil
	}

	err = t.store.InsertCrawlSkip(ctx, &models.CrawlSkip{
		SourceURL:     sourceURL,
		SourceName:    sourceName,
		LastCrawledDT: at,
	})
	if err != nil {
		return fmt.Errorf("record crawl skip %s: %w", sourceURL, err)
	}
	t.log.Info("recorded crawl skip",
		logger.String("source_url", sourceURL),
		logger.String("source_name", sourceName),
	)
	return nil
}
