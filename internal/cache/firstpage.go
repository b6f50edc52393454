package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

// Key layout in the first-page database.
const (
	firstPageKeyPrefix = "page:"
	articleKeyPrefix   = "article:"
	builtMarkerKey     = "cache_built"
)

// FirstPageCache caches page 1 of every query. Entries never expire; they
// are replaced when a crawl or rescore stores something that could enter
// the page. Article display fields live under separate per-article keys so
// an article shared by many queries is stored once.
type FirstPageCache struct {
	client   *redis.Client
	pageSize int
	log      logger.Logger
}

// NewFirstPageCache creates the cache. pageSize is the full result page
// length used by the recache check.
func NewFirstPageCache(client *redis.Client, pageSize int, log logger.Logger) *FirstPageCache {
	return &FirstPageCache{client: client, pageSize: pageSize, log: log}
}

func firstPageKey(q models.Query) string {
	return firstPageKeyPrefix + string(q.Type) + ":" + q.Str
}

func articleKey(id string) string {
	return articleKeyPrefix + id
}

// Put stores the page entry and its articles' display fields. The page must
// be page 1.
func (c *FirstPageCache) Put(ctx context.Context, page *models.SearchResultPage) error {
	if page.Query.PageNum != 1 {
		return fmt.Errorf("first-page cache only stores page 1, got %d", page.Query.PageNum)
	}

	payload, err := encodePage(page, false)
	if err != nil {
		return fmt.Errorf("encode first-page entry: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, firstPageKey(page.Query), payload, 0)
	for _, r := range page.Results {
		if r.Article == nil {
			continue
		}
		entry, err := encodeArticleEntry(r.Article)
		if err != nil {
			return fmt.Errorf("encode article entry %s: %w", r.ArticleID, err)
		}
		pipe.Set(ctx, articleKey(r.ArticleID), entry, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write first-page entry: %w", err)
	}

	c.log.Debug("cached first page",
		logger.String("query", page.Query.Str),
		logger.Int("results", len(page.Results)),
	)
	return nil
}

// Get returns the cached first page with articles attached, or nil on a
// miss. Corrupt or format-incompatible entries and missing article entries
// all count as misses.
func (c *FirstPageCache) Get(ctx context.Context, query models.Query) (*models.SearchResultPage, error) {
	payload, err := c.client.Get(ctx, firstPageKey(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read first-page entry: %w", err)
	}

	page, err := decodePage(payload)
	if errors.Is(err, models.ErrSerializationMismatch) {
		c.log.Warn("first-page entry unreadable, treating as miss",
			logger.String("query", query.Str),
			logger.Err(err),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if len(page.Results) > 0 {
		keys := make([]string, len(page.Results))
		for i, r := range page.Results {
			keys[i] = articleKey(r.ArticleID)
		}
		entries, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("read article entries: %w", err)
		}
		for i, entry := range entries {
			raw, ok := entry.(string)
			if !ok {
				return nil, nil
			}
			article, err := decodeArticleEntry([]byte(raw))
			if err != nil || article == nil {
				return nil, nil
			}
			page.Results[i].Article = article
		}
	}

	// The stored query carries no user; answer under the requesting one.
	page.Query.UserID = query.UserID
	return page, nil
}

// RecacheRequired reports whether new rank keys for the base form could
// change the cached first page: always when no full page is cached, when any
// of the changed articles is on the page (its key may have worsened), or
// when the best new key beats the page's worst entry.
func (c *FirstPageCache) RecacheRequired(ctx context.Context, baseForm string, best models.ArticleRankKey, changedArticleIDs []string) (bool, error) {
	query := models.Query{Str: baseForm, PageNum: 1, Type: models.QueryTypeExact}

	payload, err := c.client.Get(ctx, firstPageKey(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read first-page entry: %w", err)
	}

	page, err := decodePage(payload)
	if errors.Is(err, models.ErrSerializationMismatch) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if len(page.Results) < c.pageSize {
		return true, nil
	}

	for _, r := range page.Results {
		if slices.Contains(changedArticleIDs, r.ArticleID) {
			return true, nil
		}
	}

	// The page entry stores no article bodies; pull the worst result's
	// article to complete its rank key.
	worstResult := page.Results[len(page.Results)-1]
	entry, err := c.client.Get(ctx, articleKey(worstResult.ArticleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read article entry: %w", err)
	}
	article, err := decodeArticleEntry(entry)
	if err != nil || article == nil {
		return true, nil
	}

	worst := models.ArticleRankKey{
		QualityScore: worstResult.QualityScore,
		LastUpdated:  article.LastUpdatedDT,
		ArticleID:    worstResult.ArticleID,
	}
	return best.Beats(worst), nil
}

// Built reports whether the cache has been fully built at least once.
func (c *FirstPageCache) Built(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, builtMarkerKey).Result()
	if err != nil {
		return false, fmt.Errorf("read cache-built marker: %w", err)
	}
	return n > 0, nil
}

// MarkBuilt records that a full cache build completed.
func (c *FirstPageCache) MarkBuilt(ctx context.Context) error {
	if err := c.client.Set(ctx, builtMarkerKey, codecVersion, 0).Err(); err != nil {
		return fmt.Errorf("write cache-built marker: %w", err)
	}
	return nil
}
