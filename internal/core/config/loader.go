package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/indexing/pricesync"
	"github.com/vietddude/blockprice/internal/infra/chain/subgraph"
	"github.com/vietddude/blockprice/internal/infra/pricefeed/coingecko"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Load reads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, expands environment variables, applies defaults and
// validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	var cfg AppConfig
	cfg.applyDefaults()
	return &cfg
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 9100
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "cache"
	}

	if c.Query.TimeBuffer == 0 {
		c.Query.TimeBuffer = 13 * time.Hour
	}
	if c.Query.BlockBuffer == 0 {
		c.Query.BlockBuffer = 5 * time.Minute
	}

	defaults := pricesync.DefaultConfig()
	p := &c.Prices
	if p.BaseURL == "" {
		p.BaseURL = coingecko.DefaultBaseURL
	}
	if p.APIKeyHeader == "" {
		p.APIKeyHeader = "x-cg-demo-api-key"
	}
	if p.CallsPerMinute == 0 {
		p.CallsPerMinute = 50
	}
	if p.Timeout == 0 {
		p.Timeout = 10 * time.Second
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = 5
	}
	if p.DenseThreshold == 0 {
		p.DenseThreshold = defaults.Threshold
	}
	if p.StablecoinThreshold == 0 {
		p.StablecoinThreshold = defaults.StablecoinThreshold
	}
	if p.Stablecoins == nil {
		p.Stablecoins = defaults.Stablecoins
	}

	b := &c.Blocks
	if b.Timeout == 0 {
		b.Timeout = 30 * time.Second
	}
	if b.MaxRetries == 0 {
		b.MaxRetries = 10
	}
	if b.PageSize == 0 {
		b.PageSize = subgraph.DefaultPageSize
	}
	endpoints := make(map[string]string, len(b.Endpoints))
	for name, url := range b.Endpoints {
		if n, err := domain.ParseNetwork(name); err == nil {
			name = n.String()
		}
		endpoints[name] = url
	}
	b.Endpoints = endpoints
	for network, url := range subgraph.DefaultEndpoints {
		if _, ok := b.Endpoints[network.String()]; !ok {
			b.Endpoints[network.String()] = url
		}
	}

	if c.Warm.Schedule == "" {
		c.Warm.Schedule = "@every 1h"
	}
	if c.Warm.Lookback == 0 {
		c.Warm.Lookback = 24 * time.Hour
	}
}

// Validate checks the configuration for values no component can run with.
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Cache.Backend {
	case BackendFile:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	if c.Query.TimeBuffer < 0 || c.Query.BlockBuffer < 0 {
		errs = append(errs, errors.New("query buffers must not be negative"))
	}
	if c.Prices.CallsPerMinute < 0 || c.Blocks.CallsPerMinute < 0 {
		errs = append(errs, errors.New("calls_per_minute must not be negative"))
	}
	if c.Prices.MaxRetries < 0 || c.Blocks.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must not be negative"))
	}
	if c.Blocks.PageSize < 0 || c.Blocks.PageSize > subgraph.DefaultPageSize {
		errs = append(errs, fmt.Errorf("blocks.page_size must be within 1..%d", subgraph.DefaultPageSize))
	}

	for name := range c.Blocks.Endpoints {
		if _, err := domain.ParseNetwork(name); err != nil {
			errs = append(errs, fmt.Errorf("blocks.endpoints: %w", err))
		}
	}
	for _, addr := range c.Prices.Stablecoins {
		if _, err := domain.NormalizeToken(addr); err != nil {
			errs = append(errs, fmt.Errorf("prices.stablecoins: %w", err))
		}
	}
	for i, tok := range c.Warm.Tokens {
		if _, err := domain.ParseNetwork(tok.Network); err != nil {
			errs = append(errs, fmt.Errorf("warm.tokens[%d]: %w", i, err))
		}
		if _, err := domain.NormalizeToken(tok.Address); err != nil {
			errs = append(errs, fmt.Errorf("warm.tokens[%d]: %w", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Endpoint returns the subgraph URL for a network. Keys are canonical
// network names once defaults are applied.
func (b BlocksConfig) Endpoint(network domain.Network) (string, bool) {
	url, ok := b.Endpoints[network.String()]
	return url, ok && url != ""
}
