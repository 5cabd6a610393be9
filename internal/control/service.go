package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/query"
)

// ServiceConfig holds the padding applied around query windows.
type ServiceConfig struct {
	TimeBuffer  time.Duration
	BlockBuffer time.Duration
}

// Service answers price queries, syncing the caches it needs first.
type Service struct {
	blocks map[domain.Network]BlockSyncer
	prices PriceSyncer
	spot   SpotSource
	config ServiceConfig
	log    *slog.Logger
}

// NewService creates a query service. blocks holds one syncer per supported
// network.
func NewService(
	blocks map[domain.Network]BlockSyncer,
	prices PriceSyncer,
	spot SpotSource,
	config ServiceConfig,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		blocks: blocks,
		prices: prices,
		spot:   spot,
		config: config,
		log:    log.With("component", "service"),
	}
}

// Networks returns the networks with a configured block syncer.
func (s *Service) Networks() []domain.Network {
	out := make([]domain.Network, 0, len(s.blocks))
	for _, n := range domain.Networks {
		if _, ok := s.blocks[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// PriceAt returns the interpolated price of token at unix time t.
func (s *Service) PriceAt(ctx context.Context, network domain.Network, token string, t int64) (*PointPrice, error) {
	window, err := domain.NewQueryWindow(t, t, seconds(s.config.TimeBuffer))
	if err != nil {
		return nil, err
	}
	log := s.runLog("price_at", network)

	res, err := s.prices.Sync(ctx, network, token, window)
	if err != nil {
		return nil, fmt.Errorf("sync prices: %w", err)
	}

	price, err := query.InterpolateAt(res.Prices, t)
	if err != nil {
		return nil, fmt.Errorf("price at %d: %w", t, err)
	}

	log.Debug("Point query answered", "timestamp", t, "price", price, "complete", res.Complete)
	return &PointPrice{Timestamp: t, Price: price, Complete: res.Complete}, nil
}

// PricesInDuration prices every block produced strictly inside (start, end).
// Input is validated before any remote call; a block sync failure is fatal.
func (s *Service) PricesInDuration(
	ctx context.Context,
	network domain.Network,
	token string,
	start, end int64,
) (*RangePrices, error) {
	window, err := domain.NewQueryWindow(start, end, seconds(s.config.BlockBuffer))
	if err != nil {
		return nil, err
	}
	if _, err := domain.PricePartition(network, token); err != nil {
		return nil, err
	}
	if _, err := network.PlatformID(); err != nil {
		return nil, err
	}
	blocks, err := s.blockSyncer(network)
	if err != nil {
		return nil, err
	}
	log := s.runLog("prices_in_duration", network)

	blockRes, err := blocks.Sync(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("sync blocks: %w", err)
	}
	priceRes, err := s.prices.Sync(ctx, network, token, window)
	if err != nil {
		return nil, fmt.Errorf("sync prices: %w", err)
	}

	aligned, err := query.AlignToBlocks(priceRes.Prices, blockRes.Blocks, window)
	if err != nil {
		return nil, fmt.Errorf("align prices: %w", err)
	}

	log.Debug("Range query answered",
		"start", start,
		"end", end,
		"blocks", len(aligned),
		"complete", priceRes.Complete,
	)
	return &RangePrices{Prices: aligned, Complete: priceRes.Complete}, nil
}

// CurrentPrice returns the spot price without touching the caches.
func (s *Service) CurrentPrice(ctx context.Context, network domain.Network, token string) (float64, error) {
	key, err := domain.PricePartition(network, token)
	if err != nil {
		return 0, err
	}
	if _, err := network.PlatformID(); err != nil {
		return 0, err
	}
	price, err := s.spot.Spot(ctx, network, key.Token)
	if err != nil {
		return 0, fmt.Errorf("spot price: %w", err)
	}
	return price, nil
}

// SyncBlocks warms the block cache of network over [start, end].
func (s *Service) SyncBlocks(ctx context.Context, network domain.Network, start, end int64) (int, error) {
	window, err := domain.NewQueryWindow(start, end, seconds(s.config.BlockBuffer))
	if err != nil {
		return 0, err
	}
	blocks, err := s.blockSyncer(network)
	if err != nil {
		return 0, err
	}
	log := s.runLog("sync_blocks", network)

	res, err := blocks.Sync(ctx, window)
	if err != nil {
		return 0, fmt.Errorf("sync blocks: %w", err)
	}
	log.Info("Block cache warmed", "fetched", res.Fetched, "skipped", res.Skipped, "cached", len(res.Blocks))
	return len(res.Blocks), nil
}

// SyncPrices warms the price cache of token over [start, end] and reports
// whether every remote fetch succeeded.
func (s *Service) SyncPrices(
	ctx context.Context,
	network domain.Network,
	token string,
	start, end int64,
) (bool, error) {
	window, err := domain.NewQueryWindow(start, end, seconds(s.config.TimeBuffer))
	if err != nil {
		return false, err
	}
	res, err := s.prices.Sync(ctx, network, token, window)
	if err != nil {
		return false, fmt.Errorf("sync prices: %w", err)
	}
	return res.Complete, nil
}

func (s *Service) blockSyncer(network domain.Network) (BlockSyncer, error) {
	b, ok := s.blocks[network]
	if !ok {
		return nil, fmt.Errorf("%w: no block source for %s", domain.ErrUnsupportedNetwork, network)
	}
	return b, nil
}

func (s *Service) runLog(op string, network domain.Network) *slog.Logger {
	return s.log.With("run_id", uuid.NewString(), "op", op, "network", network.String())
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
