// Package searcher implements the read path: cache tiers in front of the
// index, result assembly with previews, and background warming of the page
// a user is likely to ask for next.
package searcher

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/myaku-dev/myaku/internal/index"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
	"github.com/myaku-dev/myaku/internal/preview"
	"github.com/myaku-dev/myaku/internal/tasks"
)

// Store is the slice of the index the searcher reads.
type Store interface {
	SearchFLIs(ctx context.Context, query models.Query, pageSize int) (*index.FLIPage, error)
	GetArticles(ctx context.Context, ids []string) (map[string]*models.Article, error)
	BaseForms(ctx context.Context) ([]string, error)
}

// FirstPage is the first-page cache tier.
type FirstPage interface {
	Get(ctx context.Context, query models.Query) (*models.SearchResultPage, error)
	Put(ctx context.Context, page *models.SearchResultPage) error
	RecacheRequired(ctx context.Context, baseForm string, best models.ArticleRankKey, changedArticleIDs []string) (bool, error)
	Built(ctx context.Context) (bool, error)
	MarkBuilt(ctx context.Context) error
}

// NextPage is the per-user next-page cache tier.
type NextPage interface {
	Get(ctx context.Context, query models.Query) (*models.SearchResultPage, error)
	Put(ctx context.Context, userID string, page *models.SearchResultPage) error
}

// Config bounds search behavior.
type Config struct {
	PageSize       int
	MaxPageNum     int
	MaxQueryLength int
}

// Searcher answers queries through the cache tiers with the index as the
// source of truth.
type Searcher struct {
	store     Store
	firstPage FirstPage
	nextPage  NextPage
	previews  *preview.Builder
	runner    tasks.Runner
	cfg       Config
	log       logger.Logger
}

// New assembles a searcher. runner may be nil to disable warming.
func New(store Store, firstPage FirstPage, nextPage NextPage, runner tasks.Runner, cfg Config, log logger.Logger) *Searcher {
	return &Searcher{
		store:     store,
		firstPage: firstPage,
		nextPage:  nextPage,
		previews:  preview.New(),
		runner:    runner,
		cfg:       cfg,
		log:       log,
	}
}

// Search returns one result page. Invalid queries return an error; internal
// failures return an empty page flagged Failed, with the cause logged but
// never surfaced.
func (s *Searcher) Search(ctx context.Context, query models.Query) (*models.SearchResultPage, error) {
	if err := query.Validate(s.cfg.MaxQueryLength); err != nil {
		return nil, err
	}

	clamped := false
	if query.PageNum > s.cfg.MaxPageNum {
		query.PageNum = s.cfg.MaxPageNum
		clamped = true
	}

	page, err := s.lookup(ctx, query)
	if err != nil {
		s.log.Error("search failed",
			logger.String("query", query.Str),
			logger.Int("page", query.PageNum),
			logger.Err(err),
		)
		return &models.SearchResultPage{Query: query, Failed: true}, nil
	}

	if clamped {
		page.MaxPageReached = true
	}
	s.warmNextPage(query, page)
	return page, nil
}

// lookup consults the tier matching the requested page, then the index.
func (s *Searcher) lookup(ctx context.Context, query models.Query) (*models.SearchResultPage, error) {
	if query.PageNum == 1 {
		if cached, err := s.firstPage.Get(ctx, query); err != nil {
			s.log.Warn("first-page cache read failed", logger.Err(err))
		} else if cached != nil {
			return cached, nil
		}
	} else {
		if cached, err := s.nextPage.Get(ctx, query); err != nil {
			s.log.Warn("next-page cache read failed", logger.Err(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	page, err := s.buildPage(ctx, query)
	if err != nil {
		return nil, err
	}

	if query.PageNum == 1 {
		if err := s.firstPage.Put(ctx, page); err != nil {
			s.log.Warn("first-page cache write failed", logger.Err(err))
		}
	}
	return page, nil
}

// buildPage runs the index query and assembles full results with articles
// and previews.
func (s *Searcher) buildPage(ctx context.Context, query models.Query) (*models.SearchResultPage, error) {
	fliPage, err := s.store.SearchFLIs(ctx, query, s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	ids := make([]string, 0, len(fliPage.Groups))
	for _, group := range fliPage.Groups {
		ids = append(ids, group[0].ArticleID)
	}
	articles, err := s.store.GetArticles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch result articles: %w", err)
	}

	page := &models.SearchResultPage{
		Query:        query,
		TotalResults: fliPage.TotalArticles,
	}
	for _, group := range fliPage.Groups {
		article, ok := articles[group[0].ArticleID]
		if !ok {
			// FLI without its article: mid-replacement row, drop it.
			s.log.Warn("search hit without stored article",
				logger.String("article_id", group[0].ArticleID),
			)
			continue
		}
		page.Results = append(page.Results, s.buildResult(query, group, article))
	}

	page.HasNextPage = query.PageNum*s.cfg.PageSize < page.TotalResults
	if query.PageNum >= s.cfg.MaxPageNum && page.HasNextPage {
		page.HasNextPage = false
		page.MaxPageReached = true
	}
	return page, nil
}

// buildResult merges one article's FLI rows into a single result: base
// forms and positions are unioned, the score comes from the top-ranked row.
func (s *Searcher) buildResult(query models.Query, group []*models.FoundLexicalItem, article *models.Article) *models.SearchResult {
	result := &models.SearchResult{
		ArticleID:    article.ID,
		Article:      article,
		QualityScore: compositeFor(group[0], query.Type),
	}

	for _, fli := range group {
		if !slices.Contains(result.MatchedBaseForms, fli.BaseForm) {
			result.MatchedBaseForms = append(result.MatchedBaseForms, fli.BaseForm)
		}
		result.FoundPositions = append(result.FoundPositions, fli.FoundPositions...)
	}
	sort.Slice(result.FoundPositions, func(i, j int) bool {
		a, b := result.FoundPositions[i], result.FoundPositions[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Len < b.Len
	})
	result.FoundPositions = slices.Compact(result.FoundPositions)

	result.MainSample, result.MoreSamples = s.previews.Build(article, result.FoundPositions)
	return result
}

func compositeFor(fli *models.FoundLexicalItem, t models.QueryType) int {
	switch t {
	case models.QueryTypeDefinite:
		return fli.QualityScoreDefinite
	case models.QueryTypePossible:
		return fli.QualityScorePossible
	default:
		return fli.QualityScoreExact
	}
}

// warmNextPage schedules computing the following page into the user's
// next-page cache. Loss of the task only costs latency.
func (s *Searcher) warmNextPage(query models.Query, page *models.SearchResultPage) {
	if s.runner == nil || s.nextPage == nil || query.UserID == "" {
		return
	}
	if page.Failed || !page.HasNextPage {
		return
	}

	next := query
	next.PageNum++
	s.runner.Submit("warm-next-page", func(ctx context.Context) {
		warmed, err := s.buildPage(ctx, next)
		if err != nil {
			s.log.Warn("next-page warm failed",
				logger.String("query", next.Str),
				logger.Int("page", next.PageNum),
				logger.Err(err),
			)
			return
		}
		if len(warmed.Results) == 0 {
			return
		}
		if err := s.nextPage.Put(ctx, next.UserID, warmed); err != nil {
			s.log.Warn("next-page cache write failed", logger.Err(err))
		}
	})
}

// RecacheIfNeeded rebuilds the first-page entry for the base form when the
// given rank keys could change its top results: changedArticleIDs are the
// articles whose keys changed, best is the highest of the new keys. Used by
// the crawl pipeline and the rescore pass after writes. A never-built cache
// is left to EnsureCacheBuilt.
func (s *Searcher) RecacheIfNeeded(ctx context.Context, baseForm string, best models.ArticleRankKey, changedArticleIDs []string) error {
	built, err := s.firstPage.Built(ctx)
	if err != nil {
		return err
	}
	if !built {
		return nil
	}

	required, err := s.firstPage.RecacheRequired(ctx, baseForm, best, changedArticleIDs)
	if err != nil {
		return err
	}
	if !required {
		return nil
	}
	return s.recache(ctx, baseForm)
}

func (s *Searcher) recache(ctx context.Context, baseForm string) error {
	page, err := s.buildPage(ctx, models.Query{
		Str:     baseForm,
		PageNum: 1,
		Type:    models.QueryTypeExact,
	})
	if err != nil {
		return err
	}
	return s.firstPage.Put(ctx, page)
}

// EnsureCacheBuilt rebuilds the whole first-page cache when no completed
// build is on record, then marks the build. Returns the number of base
// forms cached; zero when the cache was already built.
func (s *Searcher) EnsureCacheBuilt(ctx context.Context) (int, error) {
	built, err := s.firstPage.Built(ctx)
	if err != nil {
		return 0, err
	}
	if built {
		return 0, nil
	}

	forms, err := s.store.BaseForms(ctx)
	if err != nil {
		return 0, fmt.Errorf("list base forms: %w", err)
	}
	for i, form := range forms {
		if err := s.recache(ctx, form); err != nil {
			return i, fmt.Errorf("cache first page of %q: %w", form, err)
		}
	}
	if err := s.firstPage.MarkBuilt(ctx); err != nil {
		return len(forms), err
	}

	s.log.Info("first-page cache built", logger.Int("base_forms", len(forms)))
	return len(forms), nil
}
