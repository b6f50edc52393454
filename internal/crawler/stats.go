package crawler

import "time"

// CrawlStats counts outcomes for one crawl iteration.
type CrawlStats struct {
	Source   string
	Crawl    string
	Articles int
	Skipped  int
	Failed   int
	// AlnumChars sums the alphanumeric character counts of stored articles.
	AlnumChars int
	FLIs       int
	Elapsed    time.Duration
}

// RunStats aggregates one pipeline run across all adapters and crawls.
type RunStats struct {
	Started  time.Time
	Finished time.Time
	Crawls   []CrawlStats
}

// Totals sums the per-crawl counters.
func (r *RunStats) Totals() CrawlStats {
	total := CrawlStats{Elapsed: r.Finished.Sub(r.Started)}
	for _, c := range r.Crawls {
		total.Articles += c.Articles
		total.Skipped += c.Skipped
		total.Failed += c.Failed
		total.AlnumChars += c.AlnumChars
		total.FLIs += c.FLIs
	}
	return total
}
