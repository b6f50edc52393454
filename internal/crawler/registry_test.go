package crawler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/fetcher"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

type registryAdapter struct{ name string }

func (a *registryAdapter) SourceName() string { return a.name }
func (a *registryAdapter) BaseURL() string    { return "https://" + a.name + ".example.com" }
func (a *registryAdapter) MostRecentCrawls(context.Context) ([]Crawl, error) {
	return nil, nil
}
func (a *registryAdapter) FetchArticle(context.Context, *ArticleCandidate) (*models.Article, error) {
	return nil, nil
}

func TestAdapterRegistry(t *testing.T) {
	RegisterAdapter("registry-test", func(_ *fetcher.Fetcher, _ logger.Logger) (SourceAdapter, error) {
		return &registryAdapter{name: "registry-test"}, nil
	})

	assert.Contains(t, AdapterNames(), "registry-test")

	adapters, err := NewAdapters([]string{"registry-test"}, nil, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	assert.Equal(t, "registry-test", adapters[0].SourceName())

	_, err = NewAdapters([]string{"no-such-source"}, nil, logger.NewNop())
	assert.Error(t, err)

	assert.Panics(t, func() {
		RegisterAdapter("registry-test", func(_ *fetcher.Fetcher, _ logger.Logger) (SourceAdapter, error) {
			return nil, nil
		})
	})
}
