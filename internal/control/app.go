package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/blockprice/internal/core/cache"
	"github.com/vietddude/blockprice/internal/core/config"
	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/core/worker"
	"github.com/vietddude/blockprice/internal/indexing/blocksync"
	"github.com/vietddude/blockprice/internal/indexing/health"
	"github.com/vietddude/blockprice/internal/indexing/pricesync"
	"github.com/vietddude/blockprice/internal/infra/chain/subgraph"
	"github.com/vietddude/blockprice/internal/infra/pricefeed/coingecko"
	redisclient "github.com/vietddude/blockprice/internal/infra/redis"
	"github.com/vietddude/blockprice/internal/infra/rpc"
	"github.com/vietddude/blockprice/internal/infra/storage"
	"github.com/vietddude/blockprice/internal/infra/storage/file"
	"github.com/vietddude/blockprice/internal/infra/storage/postgres"
)

// App owns the snapshot store, the remote clients and the query service.
type App struct {
	cfg          *config.AppConfig
	store        storage.SnapshotStore
	db           *postgres.DB
	service      *Service
	providers    []*rpc.HTTPProvider
	healthMon    *health.Monitor
	healthServer *health.Server
	warmer       *worker.Warmer
	log          *slog.Logger
}

// OpenStore opens the configured snapshot backend. db is non-nil only for
// the postgres backend, whose schema is migrated here.
func OpenStore(ctx context.Context, cfg *config.AppConfig) (storage.SnapshotStore, *postgres.DB, error) {
	switch cfg.Cache.Backend {
	case config.BackendFile, "":
		return file.NewStore(cfg.Cache.Path), nil, nil

	case config.BackendRedis:
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
		return client, nil, nil

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewSnapshotRepo(db), db, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

// NewApp builds every component from cfg.
func NewApp(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. Storage
	store, db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Using snapshot store", "backend", cfg.Cache.Backend)

	opts := cache.Options{ForceReload: cfg.Cache.ForceReload, Logger: log}
	blockCache := cache.NewBlockCache(store, opts)
	priceCache := cache.NewPriceCache(store, opts)

	// 2. Price service
	pricesProvider := rpc.NewHTTPProvider("coingecko", cfg.Prices.BaseURL, cfg.Prices.Timeout)
	if cfg.Prices.APIKey != "" {
		pricesProvider.SetHeader(cfg.Prices.APIKeyHeader, cfg.Prices.APIKey)
	}
	pricesFetcher := rpc.NewFetcher(pricesProvider, rpc.FetcherConfig{
		Service:        "prices",
		CallsPerMinute: cfg.Prices.CallsPerMinute,
		Timeout:        cfg.Prices.Timeout,
		MaxRetries:     cfg.Prices.MaxRetries,
	}, log)
	prices := coingecko.NewClient(pricesFetcher)
	providers := []*rpc.HTTPProvider{pricesProvider}

	priceSyncer := pricesync.NewSyncer(prices, priceCache, pricesync.Config{
		Threshold:           cfg.Prices.DenseThreshold,
		StablecoinThreshold: cfg.Prices.StablecoinThreshold,
		Stablecoins:         cfg.Prices.Stablecoins,
	}, log)

	// 3. Block service, one subgraph per network
	blockSyncers := make(map[domain.Network]BlockSyncer)
	for _, network := range domain.Networks {
		endpoint, ok := cfg.Blocks.Endpoint(network)
		if !ok {
			log.Warn("No block endpoint configured", "network", network.String())
			continue
		}
		p := rpc.NewHTTPProvider("subgraph-"+network.String(), endpoint, cfg.Blocks.Timeout)
		f := rpc.NewFetcher(p, rpc.FetcherConfig{
			Service:        "blocks",
			CallsPerMinute: cfg.Blocks.CallsPerMinute,
			Timeout:        cfg.Blocks.Timeout,
			MaxRetries:     cfg.Blocks.MaxRetries,
		}, log)
		source := subgraph.NewClient(network, f)
		blockSyncers[network] = blocksync.NewSyncer(source, blockCache, cfg.Blocks.PageSize, log)
		providers = append(providers, p)
	}

	service := NewService(blockSyncers, priceSyncer, prices, ServiceConfig{
		TimeBuffer:  cfg.Query.TimeBuffer,
		BlockBuffer: cfg.Query.BlockBuffer,
	}, log)

	// 4. Health
	sources := make([]health.ProviderSource, 0, len(providers))
	for _, p := range providers {
		sources = append(sources, p)
	}
	healthMon := health.NewMonitor(sources...)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	// 5. Warmer
	targets := make([]worker.Target, 0, len(cfg.Warm.Tokens))
	for _, t := range cfg.Warm.Tokens {
		network, err := domain.ParseNetwork(t.Network)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		targets = append(targets, worker.Target{Network: network, Token: t.Address})
	}
	warmer, err := worker.NewWarmer(service, healthMon, worker.WarmerConfig{
		Schedule: cfg.Warm.Schedule,
		Lookback: cfg.Warm.Lookback,
		Targets:  targets,
	}, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		cfg:          cfg,
		store:        store,
		db:           db,
		service:      service,
		providers:    providers,
		healthMon:    healthMon,
		healthServer: healthServer,
		warmer:       warmer,
		log:          log,
	}, nil
}

// Service returns the query service.
func (a *App) Service() *Service {
	return a.service
}

// Store returns the snapshot store.
func (a *App) Store() storage.SnapshotStore {
	return a.store
}

// Warmer returns the cache warmer.
func (a *App) Warmer() *worker.Warmer {
	return a.warmer
}

// Start starts the health server and the warm schedule. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	return a.warmer.Start(ctx)
}

// Stop stops the warm schedule, waiting for a running job, then the
// health server.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping blockprice...")
	a.warmer.Stop()
	return a.healthServer.Stop(ctx)
}

// Close releases the snapshot store and the remote clients.
func (a *App) Close() error {
	var errs []error
	for _, p := range a.providers {
		errs = append(errs, p.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
