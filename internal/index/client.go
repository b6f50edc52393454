// Package index implements the persistent lexical index on Elasticsearch:
// blogs, articles, found lexical items, and crawl skips as four document
// collections linked by opaque IDs.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/models"
)

const healthCheckTimeout = 5 * time.Second

// NewClient creates an Elasticsearch client from config and verifies the
// cluster is reachable.
func NewClient(cfg config.ElasticsearchConfig) (*es.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elasticsearch addresses are required")
	}

	client, err := es.NewClient(es.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	if err := healthCheck(ctx, client); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrResourceUnavailable, err)
	}

	return client, nil
}

func healthCheck(ctx context.Context, client *es.Client) error {
	res, err := client.Cluster.Health(client.Cluster.Health.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("cluster health: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("cluster health returned [%d]: %s", res.StatusCode, string(body))
	}
	return nil
}
