package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/myaku-dev/myaku/internal/analyzer"
	"github.com/myaku-dev/myaku/internal/index"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
	"github.com/myaku-dev/myaku/internal/score"
)

const (
	defaultWorkers = 4
	maxWorkers     = 4
)

// PipelineStore is the slice of the index the pipeline writes through.
type PipelineStore interface {
	UpsertBlog(ctx context.Context, blog *models.Blog) error
	WriteArticle(ctx context.Context, article *models.Article) error
	// ReplaceArticleFLIs swaps the article's lexical items en bloc, so a
	// recrawled article never carries rows from both crawls.
	ReplaceArticleFLIs(ctx context.Context, article *models.Article, flis []*models.FoundLexicalItem) error
}

// Recacher refreshes a first-page cache entry when a crawl has stored an
// article that could displace the cached page's results.
type Recacher interface {
	RecacheIfNeeded(ctx context.Context, baseForm string, best models.ArticleRankKey, changedArticleIDs []string) error
}

// Pipeline runs crawls end to end: filter, fetch, analyze, score, store.
type Pipeline struct {
	store    PipelineStore
	tracker  *Tracker
	analyzer analyzer.Analyzer
	scorer   *score.Scorer
	recacher Recacher
	log      logger.Logger

	workers int
	now     func() time.Time

	mu         sync.Mutex
	bestKeys   map[string]models.ArticleRankKey
	changedIDs map[string][]string
}

// NewPipeline assembles a pipeline. workers bounds concurrent crawls and is
// clamped to [1, 4]; fetch rate limiting below that is the fetcher's job.
// recacher may be nil when no cache is attached.
func NewPipeline(
	store PipelineStore,
	tracker *Tracker,
	an analyzer.Analyzer,
	scorer *score.Scorer,
	recacher Recacher,
	workers int,
	log logger.Logger,
) *Pipeline {
	if workers < 1 {
		workers = defaultWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}
	return &Pipeline{
		store:    store,
		tracker:  tracker,
		analyzer: an,
		scorer:   scorer,
		recacher: recacher,
		log:      log,
		workers:  workers,
		now:      time.Now,
	}
}

// SetClock overrides the pipeline's time source.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// RunAll crawls every adapter's most-recent crawls, one crawl per worker,
// then refreshes first-page cache entries whose best rank key improved.
// Adapter and candidate failures are logged and counted, not fatal; only
// context cancellation aborts the run.
func (p *Pipeline) RunAll(ctx context.Context, adapters []SourceAdapter) (*RunStats, error) {
	stats := &RunStats{Started: p.now()}
	p.mu.Lock()
	p.bestKeys = make(map[string]models.ArticleRankKey)
	p.changedIDs = make(map[string][]string)
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var statsMu sync.Mutex
	for _, adapter := range adapters {
		crawls, err := adapter.MostRecentCrawls(ctx)
		if err != nil {
			p.log.Error("listing crawls failed",
				logger.String("source", adapter.SourceName()),
				logger.Err(err),
			)
			continue
		}

		for _, crawl := range crawls {
			g.Go(func() error {
				cs, err := p.runCrawl(gctx, adapter, crawl)
				if err != nil {
					return err
				}
				statsMu.Lock()
				stats.Crawls = append(stats.Crawls, cs)
				statsMu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	p.recacheImproved(ctx)

	stats.Finished = p.now()
	total := stats.Totals()
	p.log.Info("crawl run finished",
		logger.Int("crawls", len(stats.Crawls)),
		logger.Int("articles", total.Articles),
		logger.Int("skipped", total.Skipped),
		logger.Int("failed", total.Failed),
		logger.Int("flis", total.FLIs),
		logger.Duration("elapsed", total.Elapsed),
	)
	return stats, nil
}

// runCrawl drains one crawl iterator sequentially. Fetch pacing happens in
// the shared fetcher, so a worker never issues overlapping requests itself.
func (p *Pipeline) runCrawl(ctx context.Context, adapter SourceAdapter, crawl Crawl) (CrawlStats, error) {
	started := p.now()
	cs := CrawlStats{Source: adapter.SourceName(), Crawl: crawl.Name}

	p.log.Info("crawl started",
		logger.String("source", cs.Source),
		logger.String("crawl", cs.Crawl),
	)

	for {
		candidate, err := crawl.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return cs, ctx.Err()
			}
			p.log.Error("crawl iteration failed",
				logger.String("source", cs.Source),
				logger.String("crawl", cs.Crawl),
				logger.Err(err),
			)
			cs.Failed++
			break
		}

		unseen, err := p.tracker.Unseen(ctx, candidate)
		if err != nil {
			return cs, err
		}
		if !unseen {
			continue
		}

		switch err := p.processCandidate(ctx, adapter, candidate, &cs); {
		case err == nil:
		case ctx.Err() != nil:
			return cs, ctx.Err()
		case errors.Is(err, models.ErrResourceUnavailable):
			// Analyzer or index down; the rest of this run would fail too.
			return cs, err
		default:
			p.log.Warn("candidate failed",
				logger.String("url", candidate.URL),
				logger.Err(err),
			)
			cs.Failed++
		}
	}

	cs.Elapsed = p.now().Sub(started)
	p.log.Info("crawl finished",
		logger.String("source", cs.Source),
		logger.String("crawl", cs.Crawl),
		logger.Int("articles", cs.Articles),
		logger.Int("skipped", cs.Skipped),
		logger.Int("failed", cs.Failed),
		logger.Duration("elapsed", cs.Elapsed),
	)
	return cs, nil
}

// processCandidate runs one article through fetch, score, store, analyze,
// and record-crawled, in that order. Write order matters: the blog before
// the article that references it, the article before its FLIs, and the
// crawl record last so a partial failure is retried on the next run.
func (p *Pipeline) processCandidate(ctx context.Context, adapter SourceAdapter, candidate *ArticleCandidate, cs *CrawlStats) error {
	now := p.now()

	article, err := adapter.FetchArticle(ctx, candidate)
	if skip, ok := models.AsSkip(err); ok {
		cs.Skipped++
		p.log.Info("candidate skipped",
			logger.String("url", skip.URL),
			logger.String("reason", string(skip.Reason)),
		)
		return p.tracker.RecordCrawled(ctx, candidate.URL, candidate.SourceName, now)
	}
	if err != nil {
		return fmt.Errorf("fetch article: %w", err)
	}

	if article.Blog != nil {
		if err := p.store.UpsertBlog(ctx, article.Blog); err != nil {
			return fmt.Errorf("upsert blog: %w", err)
		}
	}

	article.LastCrawledDT = now
	article.QualityScore = p.scorer.ScoreArticle(article, now)

	err = p.store.WriteArticle(ctx, article)
	if errors.Is(err, index.ErrDuplicateText) || errors.Is(err, index.ErrArticleTooLong) {
		cs.Skipped++
		p.log.Warn("article rejected at write",
			logger.String("url", article.SourceURL),
			logger.Err(err),
		)
		return p.tracker.RecordCrawled(ctx, candidate.URL, candidate.SourceName, now)
	}
	if err != nil {
		return fmt.Errorf("write article: %w", err)
	}

	flis, err := p.analyzer.AnalyzeText(article.FullText)
	if err != nil {
		return fmt.Errorf("analyze article %s: %w", article.ID, err)
	}
	for _, fli := range flis {
		fli.QualityScoreMod = p.scorer.FLIScoreMod(len(fli.FoundPositions))
	}

	if err := p.store.ReplaceArticleFLIs(ctx, article, flis); err != nil {
		return fmt.Errorf("write FLIs for %s: %w", article.ID, err)
	}

	if err := p.tracker.RecordCrawled(ctx, article.SourceURL, article.SourceName, now); err != nil {
		return err
	}

	p.noteBestKeys(article.ID, flis)

	cs.Articles++
	cs.AlnumChars += article.AlnumCount
	cs.FLIs += len(flis)
	return nil
}

// noteBestKeys keeps, per base form, the best rank key stored this run and
// which articles were (re)written. A recrawl can lower an article's key, so
// the cache check needs the article identities too.
func (p *Pipeline) noteBestKeys(articleID string, flis []*models.FoundLexicalItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fli := range flis {
		key := fli.RankKey()
		if existing, ok := p.bestKeys[fli.BaseForm]; !ok || key.Beats(existing) {
			p.bestKeys[fli.BaseForm] = key
		}
		p.changedIDs[fli.BaseForm] = append(p.changedIDs[fli.BaseForm], articleID)
	}
}

// recacheImproved offers every touched base form's new rank keys to the
// first-page cache. Failures are logged; stale cache entries self-correct
// on their next recache check.
func (p *Pipeline) recacheImproved(ctx context.Context) {
	if p.recacher == nil {
		return
	}

	p.mu.Lock()
	keys := p.bestKeys
	changed := p.changedIDs
	p.bestKeys = nil
	p.changedIDs = nil
	p.mu.Unlock()

	for baseForm, best := range keys {
		if err := p.recacher.RecacheIfNeeded(ctx, baseForm, best, changed[baseForm]); err != nil {
			p.log.Warn("first-page recache failed",
				logger.String("base_form", baseForm),
				logger.Err(err),
			)
		}
	}
}
