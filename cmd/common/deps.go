// Package common holds the dependency wiring shared by the myaku
// subcommands.
package common

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/myaku-dev/myaku/internal/cache"
	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/index"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/searcher"
	"github.com/myaku-dev/myaku/internal/tasks"
)

// Flag values bound by the root command before any subcommand runs.
var (
	CfgFile string
	Debug   bool
)

// Deps bundles the config and logger every command starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Logger
}

// NewCommandDeps loads configuration and builds the logger.
func NewCommandDeps() (*Deps, error) {
	cfg, err := config.Load(CfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if Debug {
		cfg.Logging.Level = "debug"
		cfg.API.Debug = true
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Directory:   cfg.Logging.Directory,
		Development: Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}

// NewStore connects to Elasticsearch and wraps it in the index store.
func (d *Deps) NewStore() (*index.Store, error) {
	client, err := index.NewClient(d.Config.Elasticsearch)
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	store := index.NewStore(client, d.Config.Elasticsearch, d.Logger)
	store.SetMaxArticleLength(d.Config.Crawler.MaxArticleLength)
	return store, nil
}

// SearchStack is the assembled read path: the index store behind both cache
// tiers, with an optional background warmer pool.
type SearchStack struct {
	Store    *index.Store
	Searcher *searcher.Searcher

	pool        *tasks.Pool
	firstClient *redis.Client
	nextClient  *redis.Client
}

// NewSearchStack builds the searcher with its caches. When warm is false no
// worker pool is started and next-page warming is disabled; crawl and
// rescore only need the searcher as a recacher.
func (d *Deps) NewSearchStack(store *index.Store, warm bool) (*SearchStack, error) {
	cfg := d.Config

	firstClient, err := cache.NewRedisClient(cfg.FirstPageCache)
	if err != nil {
		return nil, fmt.Errorf("connect to first-page cache: %w", err)
	}
	nextClient, err := cache.NewRedisClient(cfg.NextPageCache)
	if err != nil {
		_ = firstClient.Close()
		return nil, fmt.Errorf("connect to next-page cache: %w", err)
	}

	firstPage := cache.NewFirstPageCache(firstClient, cfg.Search.PageSize, d.Logger)
	nextPage := cache.NewNextPageCache(nextClient, cfg.Search.NextPageTTL, d.Logger)

	var runner tasks.Runner
	var pool *tasks.Pool
	if warm {
		pool = tasks.NewPool(cfg.Search.WarmQueueSize, cfg.Search.WarmWorkers, d.Logger)
		runner = pool
	}

	s := searcher.New(store, firstPage, nextPage, runner, searcher.Config{
		PageSize:       cfg.Search.PageSize,
		MaxPageNum:     cfg.Search.MaxPageNum,
		MaxQueryLength: cfg.Search.MaxQueryLength,
	}, d.Logger)

	return &SearchStack{
		Store:       store,
		Searcher:    s,
		pool:        pool,
		firstClient: firstClient,
		nextClient:  nextClient,
	}, nil
}

// Close stops the warmer pool and closes the cache connections.
func (s *SearchStack) Close() {
	if s.pool != nil {
		s.pool.Stop()
	}
	_ = s.firstClient.Close()
	_ = s.nextClient.Close()
}
