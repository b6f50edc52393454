package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

const nextPageKeyPrefix = "user:"

// DefaultNextPageTTL is how long a warmed next page stays useful.
const DefaultNextPageTTL = 7 * 24 * time.Hour

// NextPageCache holds at most one pre-computed page per user: the page the
// user is most likely to request next. Entries embed article bodies and the
// originating query; a read only hits when the incoming query matches the
// stored one exactly.
type NextPageCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewNextPageCache creates the cache. ttl <= 0 selects the default.
func NewNextPageCache(client *redis.Client, ttl time.Duration, log logger.Logger) *NextPageCache {
	if ttl <= 0 {
		ttl = DefaultNextPageTTL
	}
	return &NextPageCache{client: client, ttl: ttl, log: log}
}

func nextPageKey(userID string) string {
	return nextPageKeyPrefix + userID
}

// Put stores the page as the user's predicted next request.
func (c *NextPageCache) Put(ctx context.Context, userID string, page *models.SearchResultPage) error {
	if userID == "" {
		return fmt.Errorf("next-page cache requires a user ID")
	}

	payload, err := encodePage(page, true)
	if err != nil {
		return fmt.Errorf("encode next-page entry: %w", err)
	}
	if err := c.client.Set(ctx, nextPageKey(userID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write next-page entry: %w", err)
	}

	c.log.Debug("cached next page",
		logger.String("user_id", userID),
		logger.String("query", page.Query.Str),
		logger.Int("page", page.Query.PageNum),
	)
	return nil
}

// Get returns the user's cached page when it answers exactly the given
// query (string, page number, and type), or nil on any other outcome.
func (c *NextPageCache) Get(ctx context.Context, query models.Query) (*models.SearchResultPage, error) {
	if query.UserID == "" {
		return nil, nil
	}

	payload, err := c.client.Get(ctx, nextPageKey(query.UserID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read next-page entry: %w", err)
	}

	page, err := decodePage(payload)
	if errors.Is(err, models.ErrSerializationMismatch) {
		c.log.Warn("next-page entry unreadable, treating as miss",
			logger.String("user_id", query.UserID),
			logger.Err(err),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !page.Query.Same(query) {
		return nil, nil
	}
	page.Query.UserID = query.UserID
	return page, nil
}
