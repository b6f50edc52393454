package crawler_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/cache"
	"github.com/myaku-dev/myaku/internal/crawler"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
	"github.com/myaku-dev/myaku/internal/score"
	"github.com/myaku-dev/myaku/internal/searcher"
	"github.com/myaku-dev/myaku/internal/tasks"
	"github.com/myaku-dev/myaku/internal/testutils"
)

var t0 = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

// fixtureArticle builds an indexable article whose text contains the term
// twice, padded to a realistic length and unique per URL.
func fixtureArticle(url, sourceName, term string, updated time.Time, blog *models.Blog) *models.Article {
	text := term + strings.Repeat("あ", 200) + term + strings.Repeat("い", 200) +
		"固有" + url + "。"
	a, err := models.NewArticle(models.Article{
		Title:         "記事 " + url,
		SourceURL:     url,
		SourceName:    sourceName,
		FullText:      text,
		LastUpdatedDT: updated,
		PublicationDT: updated,
		Blog:          blog,
	})
	if err != nil {
		panic(err)
	}
	return a
}

type fixture struct {
	store     *testutils.FakeStore
	firstPage *cache.FirstPageCache
	searcher  *searcher.Searcher
	pipeline  *crawler.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	store := testutils.NewFakeStore()
	firstPage := cache.NewFirstPageCache(client, 20, logger.NewNop())
	nextPage := cache.NewNextPageCache(client, 0, logger.NewNop())
	s := searcher.New(store, firstPage, nextPage, tasks.Synchronous{}, searcher.Config{
		PageSize:       20,
		MaxPageNum:     50,
		MaxQueryLength: 120,
	}, logger.NewNop())
	_, err := s.EnsureCacheBuilt(context.Background())
	require.NoError(t, err)

	tracker := crawler.NewTracker(store, logger.NewNop())
	an := &testutils.FakeAnalyzer{Terms: []string{"言葉", "勉強"}}
	p := crawler.NewPipeline(store, tracker, an, score.NewScorer(), s, 2, logger.NewNop())
	p.SetClock(func() time.Time { return t0 })

	return &fixture{store: store, firstPage: firstPage, searcher: s, pipeline: p}
}

func candidate(a *models.Article) *crawler.ArticleCandidate {
	return &crawler.ArticleCandidate{
		URL:         a.SourceURL,
		Title:       a.Title,
		SourceName:  a.SourceName,
		LastUpdated: a.LastUpdatedDT,
		Blog:        a.Blog,
	}
}

func newAdapters() (*testutils.FakeAdapter, *testutils.FakeAdapter) {
	blog := &models.Blog{
		Title:      "連載ブログ",
		SourceName: "sourceA",
		SourceURL:  "https://a.example.com/blog",
	}

	a1 := fixtureArticle("https://a.example.com/1", "sourceA", "言葉", t0.Add(-time.Hour), blog)
	a2 := fixtureArticle("https://a.example.com/2", "sourceA", "言葉", t0.Add(-2*time.Hour), blog)
	a3 := fixtureArticle("https://a.example.com/3", "sourceA", "勉強", t0.Add(-3*time.Hour), blog)
	adapterA := &testutils.FakeAdapter{
		Name: "sourceA",
		Base: "https://a.example.com",
		Candidates: []*crawler.ArticleCandidate{
			candidate(a1), candidate(a2), candidate(a3),
		},
		ArticlesByURL: map[string]*models.Article{
			a1.SourceURL: a1, a2.SourceURL: a2, a3.SourceURL: a3,
		},
	}

	b1 := fixtureArticle("https://b.example.com/1", "sourceB", "勉強", t0.Add(-time.Hour), nil)
	adapterB := &testutils.FakeAdapter{
		Name: "sourceB",
		Base: "https://b.example.com",
		Candidates: []*crawler.ArticleCandidate{
			candidate(b1),
			{URL: "https://b.example.com/paywalled", SourceName: "sourceB", LastUpdated: t0},
		},
		ArticlesByURL: map[string]*models.Article{b1.SourceURL: b1},
		SkipsByURL: map[string]models.SkipReason{
			"https://b.example.com/paywalled": models.SkipReasonPaywalled,
		},
	}
	return adapterA, adapterB
}

func TestCrawlFromEmptyIndex(t *testing.T) {
	f := newFixture(t)
	adapterA, adapterB := newAdapters()
	ctx := context.Background()

	stats, err := f.pipeline.RunAll(ctx, []crawler.SourceAdapter{adapterA, adapterB})
	require.NoError(t, err)

	totals := stats.Totals()
	assert.Equal(t, 4, totals.Articles)
	assert.Equal(t, 1, totals.Skipped)
	assert.Equal(t, 0, totals.Failed)

	assert.Len(t, f.store.Blogs, 1)
	assert.Len(t, f.store.Articles, 4)
	// One FLI per (article, term): 言葉 in two articles, 勉強 in two.
	assert.Len(t, f.store.FLIs, 4)
	assert.Len(t, f.store.Skips, 1)
	assert.Contains(t, f.store.Skips, "https://b.example.com/paywalled")

	// Composite consistency across every stored FLI.
	for _, fli := range f.store.FLIs {
		article := f.store.Articles[fli.ArticleID]
		require.NotNil(t, article)
		assert.Equal(t, article.QualityScore+fli.QualityScoreMod, fli.QualityScoreExact)
		assert.Equal(t, fli.QualityScoreExact, fli.QualityScoreDefinite)
		assert.Equal(t, fli.QualityScoreExact, fli.QualityScorePossible)
		assert.Equal(t, article.LastUpdatedDT, fli.ArticleLastUpdated)
	}

	// First-page cache was built for each touched base form, with article
	// display fields matching the store.
	for _, term := range []string{"言葉", "勉強"} {
		page, err := f.firstPage.Get(ctx, models.Query{
			Str: term, PageNum: 1, Type: models.QueryTypeExact,
		})
		require.NoError(t, err)
		require.NotNil(t, page, "first page cached for %s", term)
		assert.Len(t, page.Results, 2)

		for _, r := range page.Results {
			stored := f.store.Articles[r.ArticleID]
			require.NotNil(t, stored)
			assert.Equal(t, stored.Title, r.Article.Title)
			assert.Equal(t, stored.SourceURL, r.Article.SourceURL)
			assert.Equal(t, stored.LastUpdatedDT, r.Article.LastUpdatedDT)
			require.NotNil(t, r.MainSample)
		}
		// Ranked: quality desc, then last-updated desc.
		first, second := page.Results[0], page.Results[1]
		if first.QualityScore == second.QualityScore {
			assert.False(t, second.Article.LastUpdatedDT.After(first.Article.LastUpdatedDT))
		} else {
			assert.Greater(t, first.QualityScore, second.QualityScore)
		}
	}
}

func TestUpdateCrawlRefetchesOnlyChanged(t *testing.T) {
	f := newFixture(t)
	adapterA, adapterB := newAdapters()
	ctx := context.Background()

	_, err := f.pipeline.RunAll(ctx, []crawler.SourceAdapter{adapterA, adapterB})
	require.NoError(t, err)

	// Second run: article 1 updated, article 2 untouched, one new article.
	t1 := t0.Add(2 * time.Hour)
	f.pipeline.SetClock(func() time.Time { return t1 })

	updated := fixtureArticle("https://a.example.com/1", "sourceA", "言葉", t0.Add(time.Hour), nil)
	updated.FullText += "追記。"
	updated.TextHash = models.TextHash(updated.FullText)
	fresh := fixtureArticle("https://a.example.com/4", "sourceA", "言葉", t1.Add(-time.Minute), nil)

	adapterA.Candidates = append([]*crawler.ArticleCandidate{candidate(fresh)}, adapterA.Candidates...)
	adapterA.Candidates[1] = candidate(updated)
	adapterA.ArticlesByURL[updated.SourceURL] = updated
	adapterA.ArticlesByURL[fresh.SourceURL] = fresh

	stats, err := f.pipeline.RunAll(ctx, []crawler.SourceAdapter{adapterA, adapterB})
	require.NoError(t, err)

	totals := stats.Totals()
	assert.Equal(t, 2, totals.Articles)

	assert.Equal(t, 2, adapterA.Fetches("https://a.example.com/1"))
	assert.Equal(t, 1, adapterA.Fetches("https://a.example.com/4"))
	// Unchanged articles were not re-fetched.
	assert.Equal(t, 1, adapterA.Fetches("https://a.example.com/2"))
	assert.Equal(t, 1, adapterA.Fetches("https://a.example.com/3"))
	assert.Equal(t, 1, adapterB.Fetches("https://b.example.com/1"))

	assert.Len(t, f.store.Articles, 5)
	stored := f.store.ArticleBySourceURL("https://a.example.com/1")
	require.NotNil(t, stored)
	assert.Contains(t, stored.FullText, "追記")
}

func TestNoChangeCrawlFetchesNothing(t *testing.T) {
	f := newFixture(t)
	adapterA, adapterB := newAdapters()
	ctx := context.Background()

	_, err := f.pipeline.RunAll(ctx, []crawler.SourceAdapter{adapterA, adapterB})
	require.NoError(t, err)

	articlesBefore := len(f.store.Articles)
	flisBefore := len(f.store.FLIs)
	fetchesBefore := map[string]int{}
	for url := range adapterA.ArticlesByURL {
		fetchesBefore[url] = adapterA.Fetches(url)
	}

	f.pipeline.SetClock(func() time.Time { return t0.Add(time.Hour) })
	stats, err := f.pipeline.RunAll(ctx, []crawler.SourceAdapter{adapterA, adapterB})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Totals().Articles)
	assert.Len(t, f.store.Articles, articlesBefore)
	assert.Len(t, f.store.FLIs, flisBefore)
	for url, n := range fetchesBefore {
		assert.Equal(t, n, adapterA.Fetches(url), "article page %s re-fetched", url)
	}
	// The skipped URL stays skipped.
	assert.Equal(t, 1, adapterB.Fetches("https://b.example.com/paywalled"))
}

func TestFilterToUnseenIdempotent(t *testing.T) {
	f := newFixture(t)
	adapterA, _ := newAdapters()
	ctx := context.Background()

	tracker := crawler.NewTracker(f.store, logger.NewNop())
	once, err := tracker.FilterToUnseen(ctx, adapterA.Candidates)
	require.NoError(t, err)
	twice, err := tracker.FilterToUnseen(ctx, once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestDuplicateTextRecordedAsSkip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	original := fixtureArticle("https://a.example.com/1", "sourceA", "言葉", t0.Add(-time.Hour), nil)
	repost := *original
	repost.SourceURL = "https://a.example.com/repost"

	adapter := &testutils.FakeAdapter{
		Name: "sourceA",
		Base: "https://a.example.com",
		Candidates: []*crawler.ArticleCandidate{
			candidate(original), candidate(&repost),
		},
		ArticlesByURL: map[string]*models.Article{
			original.SourceURL: original,
			repost.SourceURL:   &repost,
		},
	}

	stats, err := f.pipeline.RunAll(ctx, []crawler.SourceAdapter{adapter})
	require.NoError(t, err)

	totals := stats.Totals()
	assert.Equal(t, 1, totals.Articles)
	assert.Equal(t, 1, totals.Skipped)
	assert.Len(t, f.store.Articles, 1)
	assert.Contains(t, f.store.Skips, "https://a.example.com/repost")
}
