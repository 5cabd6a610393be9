// Package pricesync builds a token's timestamp to USD price series in two
// phases: one sparse full-history pull, then ranged fetches for every gap
// wider than the token's threshold.
package pricesync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/blockprice/internal/core/cache"
	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/core/series"
	"github.com/vietddude/blockprice/internal/indexing/metrics"
	"github.com/vietddude/blockprice/internal/infra/pricefeed"
)

// Dai is the default stablecoin allow-list entry.
const Dai = "0x6b175474e89094c44da98b954eedeac495271d0f"

// Config controls dense gap-fill.
type Config struct {
	// Threshold is the widest gap tolerated for ordinary tokens
	Threshold time.Duration

	// StablecoinThreshold is the widest gap tolerated for Stablecoins
	StablecoinThreshold time.Duration

	// Stablecoins lists token addresses whose price is expected near-constant
	Stablecoins []string
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Threshold:           150 * time.Minute,
		StablecoinThreshold: 25 * time.Hour,
		Stablecoins:         []string{Dai},
	}
}

// Result summarizes one Sync call. Complete is false when any remote fetch
// failed and the series was built partly from cache.
type Result struct {
	Prices series.Series[float64]

	Complete     bool
	SparseFailed bool
	SparseAdded  int
	GapsFilled   int
	GapsFailed   int
}

// Syncer fills price partitions from a pricefeed.Source.
type Syncer struct {
	source pricefeed.Source
	cache  *cache.PriceCache
	config Config
	stable map[string]struct{}
	log    *slog.Logger
}

// NewSyncer creates a syncer. Invalid stablecoin addresses are dropped with
// a warning.
func NewSyncer(source pricefeed.Source, c *cache.PriceCache, config Config, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	defaults := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = defaults.Threshold
	}
	if config.StablecoinThreshold <= 0 {
		config.StablecoinThreshold = defaults.StablecoinThreshold
	}

	stable := make(map[string]struct{}, len(config.Stablecoins))
	for _, addr := range config.Stablecoins {
		normalized, err := domain.NormalizeToken(addr)
		if err != nil {
			log.Warn("Ignoring invalid stablecoin address", "address", addr, "error", err)
			continue
		}
		stable[normalized] = struct{}{}
	}

	return &Syncer{
		source: source,
		cache:  c,
		config: config,
		stable: stable,
		log:    log,
	}
}

// Threshold returns the gap-fill threshold in seconds for a normalized token.
func (s *Syncer) Threshold(token string) int64 {
	if _, ok := s.stable[token]; ok {
		return int64(s.config.StablecoinThreshold / time.Second)
	}
	return int64(s.config.Threshold / time.Second)
}

// Sync makes the cached price series for token dense enough to answer
// queries in the padded window. Remote failures degrade the result instead
// of failing it; only invalid input, cancellation and storage errors are
// returned.
func (s *Syncer) Sync(
	ctx context.Context,
	network domain.Network,
	token string,
	window domain.QueryWindow,
) (*Result, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	key, err := domain.PricePartition(network, token)
	if err != nil {
		return nil, err
	}
	if _, err := network.PlatformID(); err != nil {
		return nil, err
	}

	log := s.log.With("network", network.String(), "token", key.Token)
	prices := s.cache.Load(ctx, key)
	res := &Result{Prices: prices}

	if err := s.pullHistory(ctx, log, key, prices, res); err != nil {
		return res, err
	}
	if err := s.fillGaps(ctx, log, key, prices, window, res); err != nil {
		return res, err
	}

	res.Complete = !res.SparseFailed && res.GapsFailed == 0
	if !res.Complete {
		metrics.DegradedPriceSyncs.WithLabelValues(network.String()).Inc()
	}

	log.Info("Price sync complete",
		"complete", res.Complete,
		"sparse_added", res.SparseAdded,
		"gaps_filled", res.GapsFilled,
		"gaps_failed", res.GapsFailed,
		"cached", len(prices),
	)
	return res, nil
}

func (s *Syncer) pullHistory(
	ctx context.Context,
	log *slog.Logger,
	key domain.PartitionKey,
	prices series.Series[float64],
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	points, err := s.source.History(ctx, key.Network, key.Token)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res.SparseFailed = true
		log.Warn("History fetch failed, continuing with cached prices", "cached", len(prices), "error", err)
		return nil
	}

	fresh := prices.Missing(toEntries(points))
	if len(fresh) == 0 {
		return nil
	}
	added, err := s.cache.MergeAndSave(ctx, key, prices, fresh)
	res.SparseAdded = added
	return err
}

func (s *Syncer) fillGaps(
	ctx context.Context,
	log *slog.Logger,
	key domain.PartitionKey,
	prices series.Series[float64],
	window domain.QueryWindow,
	res *Result,
) error {
	threshold := s.Threshold(key.Token)
	// Padded bounds: a query at a window edge interpolates between points
	// that lie up to one buffer outside it.
	start, end := window.PaddedStart(), window.PaddedEnd()
	network := key.Network.String()

	keys := prices.Keys()
	for i := 1; i < len(keys); i++ {
		t1, t2 := keys[i-1], keys[i]
		if t2 < start {
			continue
		}
		if t1 > end {
			break
		}
		if t2-t1 < threshold {
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		points, err := s.source.Range(ctx, key.Network, key.Token, t1, t2)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.GapsFailed++
			metrics.GapsFilled.WithLabelValues(network, "error").Inc()
			log.Warn("Gap fetch failed", "from", t1, "to", t2, "error", err)
			continue
		}

		if _, err := s.cache.MergeAndSave(ctx, key, prices, toEntries(points)); err != nil {
			return fmt.Errorf("save gap [%d, %d]: %w", t1, t2, err)
		}
		res.GapsFilled++
		metrics.GapsFilled.WithLabelValues(network, "ok").Inc()
		log.Debug("Filled price gap", "from", t1, "to", t2, "points", len(points))
	}
	return nil
}

func toEntries(points []domain.PricePoint) map[int64]float64 {
	entries := make(map[int64]float64, len(points))
	for _, p := range points {
		entries[p.Timestamp] = p.Price
	}
	return entries
}
