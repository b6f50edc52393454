// Package rescore re-evaluates article quality scores as articles age
// across recency tier boundaries, cascading changed scores into FLIs and
// the first-page cache.
package rescore

import (
	"context"
	"fmt"
	"time"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
	"github.com/myaku-dev/myaku/internal/score"
)

// Store is the slice of the index the rescore pass uses.
type Store interface {
	ArticlesUpdatedBetween(ctx context.Context, from, to time.Time) ([]*models.Article, error)
	UpdateArticleScore(ctx context.Context, articleID string, score int) error
	FLIsForArticle(ctx context.Context, articleID string) ([]*models.FoundLexicalItem, error)
	LastRescoreTime(ctx context.Context) (time.Time, error)
	SetLastRescoreTime(ctx context.Context, t time.Time) error
}

// Recacher refreshes first-page cache entries after score changes.
type Recacher interface {
	RecacheIfNeeded(ctx context.Context, baseForm string, best models.ArticleRankKey, changedArticleIDs []string) error
}

// Stats summarizes one rescore pass.
type Stats struct {
	Scanned int
	Changed int
	Elapsed time.Duration
}

// maxCatchUp bounds the scan window when no previous pass is recorded.
const maxCatchUp = 24 * time.Hour

// Pass finds articles that crossed a recency tier boundary since the last
// pass and rescores them.
type Pass struct {
	store    Store
	scorer   *score.Scorer
	recacher Recacher
	log      logger.Logger
	now      func() time.Time
}

// New creates a pass. recacher may be nil when no cache is attached.
func New(store Store, scorer *score.Scorer, recacher Recacher, log logger.Logger) *Pass {
	return &Pass{
		store:    store,
		scorer:   scorer,
		recacher: recacher,
		log:      log,
		now:      time.Now,
	}
}

// SetClock overrides the pass's time source.
func (p *Pass) SetClock(now func() time.Time) { p.now = now }

// Run executes one pass. Only articles whose last-updated datetime crossed
// a tier boundary in (prev, now] are scanned; everything else cannot have a
// changed recency factor.
func (p *Pass) Run(ctx context.Context) (*Stats, error) {
	now := p.now()
	prev, err := p.store.LastRescoreTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("read last rescore time: %w", err)
	}
	if prev.IsZero() || now.Sub(prev) > maxCatchUp {
		prev = now.Add(-maxCatchUp)
	}

	stats := &Stats{}
	seen := make(map[string]bool)
	bestKeys := make(map[string]models.ArticleRankKey)
	changedIDs := make(map[string][]string)

	for _, days := range p.scorer.TierDays() {
		boundary := time.Duration(days) * 24 * time.Hour
		from, to := prev.Add(-boundary), now.Add(-boundary)

		articles, err := p.store.ArticlesUpdatedBetween(ctx, from, to)
		if err != nil {
			return stats, fmt.Errorf("scan tier %dd: %w", days, err)
		}

		for _, article := range articles {
			if seen[article.ID] {
				continue
			}
			seen[article.ID] = true
			stats.Scanned++

			if err := p.rescoreArticle(ctx, article, now, bestKeys, changedIDs, stats); err != nil {
				return stats, err
			}
		}
	}

	for baseForm, key := range bestKeys {
		if p.recacher == nil {
			break
		}
		if err := p.recacher.RecacheIfNeeded(ctx, baseForm, key, changedIDs[baseForm]); err != nil {
			p.log.Warn("first-page recache failed",
				logger.String("base_form", baseForm),
				logger.Err(err),
			)
		}
	}

	if err := p.store.SetLastRescoreTime(ctx, now); err != nil {
		return stats, fmt.Errorf("record rescore time: %w", err)
	}

	stats.Elapsed = p.now().Sub(now)
	p.log.Info("rescore pass finished",
		logger.Int("scanned", stats.Scanned),
		logger.Int("changed", stats.Changed),
		logger.Duration("elapsed", stats.Elapsed),
	)
	return stats, nil
}

func (p *Pass) rescoreArticle(ctx context.Context, article *models.Article, now time.Time, bestKeys map[string]models.ArticleRankKey, changedIDs map[string][]string, stats *Stats) error {
	newScore := p.scorer.ScoreArticle(article, now)
	if newScore == article.QualityScore {
		return nil
	}

	if err := p.store.UpdateArticleScore(ctx, article.ID, newScore); err != nil {
		return fmt.Errorf("update score of %s: %w", article.ID, err)
	}
	stats.Changed++

	p.log.Debug("article rescored",
		logger.String("article_id", article.ID),
		logger.Int("old_score", article.QualityScore),
		logger.Int("new_score", newScore),
	)
	article.QualityScore = newScore

	flis, err := p.store.FLIsForArticle(ctx, article.ID)
	if err != nil {
		return fmt.Errorf("list FLIs of %s: %w", article.ID, err)
	}
	for _, fli := range flis {
		fli.RecomputeComposites(newScore)
		key := fli.RankKey()
		if existing, ok := bestKeys[fli.BaseForm]; !ok || key.Beats(existing) {
			bestKeys[fli.BaseForm] = key
		}
		// Recency decay usually demotes, so the cache check needs the
		// article identity, not just the best key.
		changedIDs[fli.BaseForm] = append(changedIDs[fli.BaseForm], article.ID)
	}
	return nil
}
