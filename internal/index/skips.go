package index

import (
	"context"
	"time"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

// InsertCrawlSkip records that a page was crawled but deliberately not
// stored (paywalled, removed, malformed). The document ID is derived from
// the source URL so re-recording the same skip is idempotent.
func (s *Store) InsertCrawlSkip(ctx context.Context, skip *models.CrawlSkip) error {
	if err := s.writable(); err != nil {
		return err
	}

	id := models.TextHash(skip.SourceURL)
	doc := crawlSkipDoc{
		SourceURL:     skip.SourceURL,
		SourceName:    skip.SourceName,
		LastCrawledDT: timePtr(skip.LastCrawledDT),
	}
	if err := s.indexDoc(ctx, s.crawlSkipsIndex(), id, doc); err != nil {
		return err
	}

	s.log.Debug("recorded crawl skip",
		logger.String("source_url", skip.SourceURL),
		logger.String("source_name", skip.SourceName),
	)
	return nil
}

// LookupSkipped returns, for each given source URL recorded as a crawl skip,
// its last-crawled datetime.
func (s *Store) LookupSkipped(ctx context.Context, urls []string) (map[string]time.Time, error) {
	return s.lookupURLTimes(ctx, s.crawlSkipsIndex(), urls)
}
