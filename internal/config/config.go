// Package config provides configuration management for Myaku. Values are
// loaded from a YAML file with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Search and crawl defaults.
const (
	DefaultPageSize         = 20
	DefaultMaxPageNum       = 50
	DefaultMaxQueryLength   = 120
	DefaultMaxArticleLength = 65536

	defaultRateLimitMin   = 3 * time.Second
	defaultRateLimitMax   = 7 * time.Second
	defaultFetchTimeout   = 30 * time.Second
	defaultFetchRetries   = 3
	defaultCrawlWorkers   = 4
	defaultWarmQueueSize  = 256
	defaultWarmWorkers    = 2
	defaultAPIPort        = 8091
	defaultNextPageExpiry = 7 * 24 * time.Hour
)

// Config represents the full application configuration.
type Config struct {
	Elasticsearch  ElasticsearchConfig `mapstructure:"elasticsearch"`
	Database       DatabaseConfig      `mapstructure:"database"`
	FirstPageCache RedisConfig         `mapstructure:"first_page_cache"`
	NextPageCache  RedisConfig         `mapstructure:"next_page_cache"`
	Crawler        CrawlerConfig       `mapstructure:"crawler"`
	Search         SearchConfig        `mapstructure:"search"`
	Scoring        ScoringConfig       `mapstructure:"scoring"`
	API            APIConfig           `mapstructure:"api"`
	Logging        LoggingConfig       `mapstructure:"logging"`
}

// ElasticsearchConfig holds index store connection configuration.
type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	APIKey      string   `mapstructure:"api_key"`
	IndexPrefix string   `mapstructure:"index_prefix"`
	ReadOnly    bool     `mapstructure:"read_only"`
}

// DatabaseConfig holds the Postgres connection for crawl run history.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Enabled  bool   `mapstructure:"enabled"`
}

// RedisConfig holds a Redis cache connection configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CrawlerConfig holds crawl pipeline configuration.
type CrawlerConfig struct {
	// EnabledSources lists the source adapter names to crawl.
	EnabledSources []string `mapstructure:"enabled_sources"`
	// RateLimitMin / RateLimitMax bound the uniform per-host wait window.
	RateLimitMin time.Duration `mapstructure:"rate_limit_min"`
	RateLimitMax time.Duration `mapstructure:"rate_limit_max"`
	// FetchTimeout is the per-request timeout including retries.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries int           `mapstructure:"fetch_retries"`
	// Workers bounds concurrent crawls per adapter (1-4).
	Workers          int    `mapstructure:"workers"`
	UserAgent        string `mapstructure:"user_agent"`
	MaxArticleLength int    `mapstructure:"max_article_length"`
}

// SearchConfig holds search path configuration.
type SearchConfig struct {
	PageSize       int `mapstructure:"page_size"`
	MaxPageNum     int `mapstructure:"max_page_num"`
	MaxQueryLength int `mapstructure:"max_query_length"`
	// WarmQueueSize / WarmWorkers size the next-page cache warmer.
	WarmQueueSize int           `mapstructure:"warm_queue_size"`
	WarmWorkers   int           `mapstructure:"warm_workers"`
	NextPageTTL   time.Duration `mapstructure:"next_page_ttl"`
}

// ScoringConfig holds quality scoring configuration.
type ScoringConfig struct {
	// RecencyTierDays are the age boundaries, in days, of the recency factor.
	// Rescore passes are driven by articles crossing these boundaries.
	RecencyTierDays []int `mapstructure:"recency_tier_days"`
}

// APIConfig holds the search API server configuration.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	Debug          bool     `mapstructure:"debug"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Directory string `mapstructure:"directory"`
}

// Load reads configuration from the given file path (optional) plus
// environment variables, applying defaults for anything unset.
func Load(cfgFile string) (*Config, error) {
	// .env values must be in the environment before viper reads it.
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("MYAKU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional; env vars and defaults suffice.
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index_prefix", "myaku")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "myaku")
	v.SetDefault("database.dbname", "myaku")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.enabled", false)

	v.SetDefault("first_page_cache.address", "localhost:6379")
	v.SetDefault("first_page_cache.db", 0)
	v.SetDefault("next_page_cache.address", "localhost:6379")
	v.SetDefault("next_page_cache.db", 1)

	v.SetDefault("crawler.rate_limit_min", defaultRateLimitMin)
	v.SetDefault("crawler.rate_limit_max", defaultRateLimitMax)
	v.SetDefault("crawler.fetch_timeout", defaultFetchTimeout)
	v.SetDefault("crawler.fetch_retries", defaultFetchRetries)
	v.SetDefault("crawler.workers", defaultCrawlWorkers)
	v.SetDefault("crawler.user_agent", "Myaku-Crawler/1.0")
	v.SetDefault("crawler.max_article_length", DefaultMaxArticleLength)

	v.SetDefault("search.page_size", DefaultPageSize)
	v.SetDefault("search.max_page_num", DefaultMaxPageNum)
	v.SetDefault("search.max_query_length", DefaultMaxQueryLength)
	v.SetDefault("search.warm_queue_size", defaultWarmQueueSize)
	v.SetDefault("search.warm_workers", defaultWarmWorkers)
	v.SetDefault("search.next_page_ttl", defaultNextPageExpiry)

	v.SetDefault("scoring.recency_tier_days", []int{7, 30, 90, 180, 365, 730, 1095})

	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("api.debug", false)

	v.SetDefault("logging.level", "info")
}

// bindEnvVars maps the conventional deployment variables onto config keys.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("elasticsearch.addresses", "ELASTICSEARCH_HOSTS", "ELASTICSEARCH_ADDRESSES")
	_ = v.BindEnv("elasticsearch.username", "ELASTICSEARCH_USERNAME")
	_ = v.BindEnv("elasticsearch.password", "ELASTIC_PASSWORD", "ELASTICSEARCH_PASSWORD")
	_ = v.BindEnv("elasticsearch.api_key", "ELASTICSEARCH_API_KEY")
	_ = v.BindEnv("first_page_cache.address", "FIRST_PAGE_CACHE_ADDRESS")
	_ = v.BindEnv("first_page_cache.password", "FIRST_PAGE_CACHE_PASSWORD")
	_ = v.BindEnv("next_page_cache.address", "NEXT_PAGE_CACHE_ADDRESS")
	_ = v.BindEnv("next_page_cache.password", "NEXT_PAGE_CACHE_PASSWORD")
	_ = v.BindEnv("database.host", "MYAKU_DB_HOST")
	_ = v.BindEnv("database.password", "MYAKU_DB_PASSWORD")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.directory", "LOG_DIR")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if len(c.Elasticsearch.Addresses) == 0 {
		return errors.New("elasticsearch.addresses is required")
	}
	if c.Crawler.RateLimitMax < c.Crawler.RateLimitMin {
		return fmt.Errorf("crawler rate limit window inverted: min %s > max %s",
			c.Crawler.RateLimitMin, c.Crawler.RateLimitMax)
	}
	if c.Crawler.Workers < 1 {
		return errors.New("crawler.workers must be at least 1")
	}
	if c.Search.PageSize < 1 {
		return errors.New("search.page_size must be at least 1")
	}
	if c.Search.MaxPageNum < 1 {
		return errors.New("search.max_page_num must be at least 1")
	}
	if len(c.Scoring.RecencyTierDays) == 0 {
		return errors.New("scoring.recency_tier_days must not be empty")
	}
	return nil
}
