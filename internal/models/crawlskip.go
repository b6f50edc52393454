package models

import "time"

// CrawlSkip marks a URL whose page turned out to be non-indexable (e.g.
// paywalled or gone). Write-once; its presence prevents re-crawling.
type CrawlSkip struct {
	SourceURL     string
	SourceName    string
	LastCrawledDT time.Time
}
