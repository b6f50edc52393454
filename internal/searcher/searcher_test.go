package searcher_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/cache"
	"github.com/myaku-dev/myaku/internal/index"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
	"github.com/myaku-dev/myaku/internal/searcher"
	"github.com/myaku-dev/myaku/internal/tasks"
	"github.com/myaku-dev/myaku/internal/testutils"
)

// countingStore counts index queries so tests can tell cache hits from
// store fallbacks.
type countingStore struct {
	*testutils.FakeStore
	searches int
}

func (c *countingStore) SearchFLIs(ctx context.Context, query models.Query, pageSize int) (*index.FLIPage, error) {
	c.searches++
	return c.FakeStore.SearchFLIs(ctx, query, pageSize)
}

type fixture struct {
	store    *countingStore
	searcher *searcher.Searcher
}

var t0 = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

// seed stores n articles each containing the term once, with strictly
// decreasing quality scores.
func seed(t *testing.T, store *testutils.FakeStore, term string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := range n {
		text := strings.Repeat("あ", 30) + term + strings.Repeat("い", 40) + fmt.Sprintf("番号%d", i) + "。"
		a, err := models.NewArticle(models.Article{
			Title:         fmt.Sprintf("記事%d", i),
			SourceURL:     fmt.Sprintf("https://example.com/%d", i),
			SourceName:    "テスト",
			FullText:      text,
			LastUpdatedDT: t0.Add(-time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		a.QualityScore = 5000 - i*10

		require.NoError(t, store.WriteArticle(ctx, a))
		fa := &testutils.FakeAnalyzer{Terms: []string{term}}
		flis, err := fa.AnalyzeText(a.FullText)
		require.NoError(t, err)
		require.NoError(t, store.ReplaceArticleFLIs(ctx, a, flis))
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	store := &countingStore{FakeStore: testutils.NewFakeStore()}
	firstPage := cache.NewFirstPageCache(client, 20, logger.NewNop())
	nextPage := cache.NewNextPageCache(client, 0, logger.NewNop())
	s := searcher.New(store, firstPage, nextPage, tasks.Synchronous{}, searcher.Config{
		PageSize:       20,
		MaxPageNum:     50,
		MaxQueryLength: 120,
	}, logger.NewNop())
	return &fixture{store: store, searcher: s}
}

func query(str string, page int, user string) models.Query {
	return models.Query{Str: str, PageNum: page, Type: models.QueryTypeExact, UserID: user}
}

func TestFirstPageSortedAndCached(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store.FakeStore, "走る", 25)
	ctx := context.Background()

	page, err := f.searcher.Search(ctx, query("走る", 1, "u1"))
	require.NoError(t, err)
	require.False(t, page.Failed)

	assert.Len(t, page.Results, 20)
	assert.Equal(t, 25, page.TotalResults)
	assert.True(t, page.HasNextPage)
	for i := 1; i < len(page.Results); i++ {
		prev, cur := page.Results[i-1], page.Results[i]
		assert.True(t, prev.RankKey().Beats(cur.RankKey()),
			"results out of rank order at %d", i)
	}
	require.NotNil(t, page.Results[0].MainSample)
	assert.Equal(t, []string{"走る"}, page.Results[0].MatchedBaseForms)

	// page 1 itself plus the synchronous page-2 warm.
	searchesAfterMiss := f.store.searches
	assert.Equal(t, 2, searchesAfterMiss)

	// Second identical request is served by the first-page cache.
	cached, err := f.searcher.Search(ctx, query("走る", 1, "u1"))
	require.NoError(t, err)
	assert.Equal(t, searchesAfterMiss+1, f.store.searches, // only the warm re-runs
		"page 1 should not hit the index again")

	require.Len(t, cached.Results, 20)
	for i := range page.Results {
		assert.Equal(t, page.Results[i].ArticleID, cached.Results[i].ArticleID)
		assert.Equal(t, page.Results[i].QualityScore, cached.Results[i].QualityScore)
	}
}

func TestNextPageServedFromWarmedCache(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store.FakeStore, "走る", 45)
	ctx := context.Background()

	_, err := f.searcher.Search(ctx, query("走る", 1, "u1"))
	require.NoError(t, err)
	// Page 1 built from the index, page 2 warmed.
	require.Equal(t, 2, f.store.searches)

	page2, err := f.searcher.Search(ctx, query("走る", 2, "u1"))
	require.NoError(t, err)
	require.False(t, page2.Failed)

	// Page 2 came from the next-page cache; the only new index query is the
	// page-3 warm it scheduled.
	assert.Equal(t, 3, f.store.searches)
	assert.Len(t, page2.Results, 20)
	assert.Equal(t, 2, page2.Query.PageNum)
	require.NotNil(t, page2.Results[0].Article)

	page3, err := f.searcher.Search(ctx, query("走る", 3, "u1"))
	require.NoError(t, err)
	assert.Equal(t, 3, f.store.searches, "page 3 should be served from the warmed cache")
	assert.Len(t, page3.Results, 5)
	assert.False(t, page3.HasNextPage)
}

func TestNextPageMissForDifferentUser(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store.FakeStore, "走る", 45)
	ctx := context.Background()

	_, err := f.searcher.Search(ctx, query("走る", 1, "u1"))
	require.NoError(t, err)
	before := f.store.searches

	// Another user's page 2 cannot use u1's warmed entry.
	_, err = f.searcher.Search(ctx, query("走る", 2, "u2"))
	require.NoError(t, err)
	assert.Greater(t, f.store.searches, before)
}

func TestCacheHitEqualsStoreBuild(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store.FakeStore, "走る", 5)
	ctx := context.Background()

	built, err := f.searcher.Search(ctx, query("走る", 1, "u1"))
	require.NoError(t, err)
	cached, err := f.searcher.Search(ctx, query("走る", 1, "u1"))
	require.NoError(t, err)

	require.Equal(t, len(built.Results), len(cached.Results))
	assert.Equal(t, built.TotalResults, cached.TotalResults)
	for i := range built.Results {
		b, c := built.Results[i], cached.Results[i]
		assert.Equal(t, b.ArticleID, c.ArticleID)
		assert.Equal(t, b.QualityScore, c.QualityScore)
		assert.Equal(t, b.MatchedBaseForms, c.MatchedBaseForms)
		assert.Equal(t, b.FoundPositions, c.FoundPositions)
		require.NotNil(t, c.MainSample)
		assert.Equal(t, b.MainSample.Segments, c.MainSample.Segments)
	}
}

func TestEnsureCacheBuiltPopulatesAllBaseForms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f.store.FakeStore, "走る", 3)

	walk, err := models.NewArticle(models.Article{
		Title:         "散歩",
		SourceURL:     "https://example.com/walk",
		SourceName:    "テスト",
		FullText:      strings.Repeat("あ", 30) + "歩く" + strings.Repeat("い", 40) + "。",
		LastUpdatedDT: t0,
	})
	require.NoError(t, err)
	walk.QualityScore = 4000
	require.NoError(t, f.store.WriteArticle(ctx, walk))
	fa := &testutils.FakeAnalyzer{Terms: []string{"歩く"}}
	flis, err := fa.AnalyzeText(walk.FullText)
	require.NoError(t, err)
	require.NoError(t, f.store.ReplaceArticleFLIs(ctx, walk, flis))

	built, err := f.searcher.EnsureCacheBuilt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, built)
	searchesAfterBuild := f.store.searches

	// Every base form answers from the cache now; the short pages schedule
	// no warm, so the index sees nothing.
	page, err := f.searcher.Search(ctx, query("走る", 1, "u1"))
	require.NoError(t, err)
	assert.Len(t, page.Results, 3)
	page, err = f.searcher.Search(ctx, query("歩く", 1, "u1"))
	require.NoError(t, err)
	assert.Len(t, page.Results, 1)
	assert.Equal(t, searchesAfterBuild, f.store.searches)

	// A recorded build is not repeated.
	built, err = f.searcher.EnsureCacheBuilt(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, built)
}

func TestPageClampedAtMax(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store.FakeStore, "走る", 5)
	ctx := context.Background()

	page, err := f.searcher.Search(ctx, query("走る", 99, "u1"))
	require.NoError(t, err)
	assert.True(t, page.MaxPageReached)
	assert.Equal(t, 50, page.Query.PageNum)
}

func TestInvalidQueryRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.searcher.Search(ctx, models.Query{Str: "", PageNum: 1, Type: models.QueryTypeExact})
	assert.Error(t, err)

	_, err = f.searcher.Search(ctx, models.Query{
		Str: strings.Repeat("あ", 121), PageNum: 1, Type: models.QueryTypeExact,
	})
	assert.Error(t, err)
}

func TestEmptyResultForUnknownTerm(t *testing.T) {
	f := newFixture(t)
	seed(t, f.store.FakeStore, "走る", 3)
	ctx := context.Background()

	page, err := f.searcher.Search(ctx, query("存在しない", 1, "u1"))
	require.NoError(t, err)
	assert.False(t, page.Failed)
	assert.Empty(t, page.Results)
	assert.Equal(t, 0, page.TotalResults)
}
