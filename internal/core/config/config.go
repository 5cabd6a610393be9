package config

import (
	"time"

	redisclient "github.com/vietddude/blockprice/internal/infra/redis"
	"github.com/vietddude/blockprice/internal/infra/storage/postgres"
)

// Cache backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Cache    CacheConfig        `yaml:"cache"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Query    QueryConfig        `yaml:"query"`
	Prices   PricesConfig       `yaml:"prices"`
	Blocks   BlocksConfig       `yaml:"blocks"`
	Warm     WarmConfig         `yaml:"warm"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CacheConfig selects where partition snapshots live.
type CacheConfig struct {
	Backend     string `yaml:"backend"` // file, redis, postgres
	Path        string `yaml:"path"`    // file backend root
	ForceReload bool   `yaml:"force_reload"`
}

// QueryConfig holds the padding applied around query windows.
type QueryConfig struct {
	TimeBuffer  time.Duration `yaml:"time_buffer"`  // point queries
	BlockBuffer time.Duration `yaml:"block_buffer"` // block alignment queries
}

// PricesConfig holds price service settings.
type PricesConfig struct {
	BaseURL             string        `yaml:"base_url"`
	APIKey              string        `yaml:"api_key"`
	APIKeyHeader        string        `yaml:"api_key_header"`
	CallsPerMinute      int           `yaml:"calls_per_minute"`
	Timeout             time.Duration `yaml:"timeout"`
	MaxRetries          int           `yaml:"max_retries"`
	DenseThreshold      time.Duration `yaml:"dense_threshold"`
	StablecoinThreshold time.Duration `yaml:"stablecoin_threshold"`
	Stablecoins         []string      `yaml:"stablecoins"`
}

// BlocksConfig holds block-indexing service settings.
type BlocksConfig struct {
	CallsPerMinute int               `yaml:"calls_per_minute"` // 0 = no spacing
	Timeout        time.Duration     `yaml:"timeout"`
	MaxRetries     int               `yaml:"max_retries"`
	PageSize       int               `yaml:"page_size"`
	Endpoints      map[string]string `yaml:"endpoints"` // network -> subgraph URL
}

// WarmConfig drives the scheduled cache warmer.
type WarmConfig struct {
	Schedule string        `yaml:"schedule"`
	Lookback time.Duration `yaml:"lookback"`
	Tokens   []WarmToken   `yaml:"tokens"`
}

// WarmToken is one watchlist entry.
type WarmToken struct {
	Network string `yaml:"network"`
	Address string `yaml:"address"`
}
