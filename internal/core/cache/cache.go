// Package cache loads, merges and persists time series partitions.
//
// A partition is loaded once at sync start, merged in place as fragments
// arrive and saved after every merge. Save is the durability point: it
// always finishes the write it started, even when the caller's context is
// cancelled mid-write, so a snapshot is never left half written.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/core/series"
	"github.com/vietddude/blockprice/internal/indexing/metrics"
	"github.com/vietddude/blockprice/internal/infra/storage"
)

// Options tune cache behaviour.
type Options struct {
	// ForceReload ignores persisted snapshots on Load.
	ForceReload bool
	Logger      *slog.Logger
}

// Cache is a TimeSeriesCache for one value type.
type Cache[V series.Value] struct {
	store       storage.SnapshotStore
	codec       Codec[V]
	forceReload bool
	log         *slog.Logger
}

// BlockCache holds block number -> timestamp partitions.
type BlockCache = Cache[int64]

// PriceCache holds timestamp -> USD price partitions.
type PriceCache = Cache[float64]

// New creates a cache over a snapshot store.
func New[V series.Value](store storage.SnapshotStore, codec Codec[V], opts Options) *Cache[V] {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Cache[V]{
		store:       store,
		codec:       codec,
		forceReload: opts.ForceReload,
		log:         log.With("component", "cache"),
	}
}

// NewBlockCache creates a cache for block-timestamp partitions.
func NewBlockCache(store storage.SnapshotStore, opts Options) *BlockCache {
	return New[int64](store, BlockCodec{}, opts)
}

// NewPriceCache creates a cache for price partitions.
func NewPriceCache(store storage.SnapshotStore, opts Options) *PriceCache {
	return New[float64](store, PriceCodec{}, opts)
}

// Load returns the persisted series for key. A missing, unreadable or
// corrupt snapshot yields an empty series; corruption is logged, never fatal.
func (c *Cache[V]) Load(ctx context.Context, key domain.PartitionKey) series.Series[V] {
	partition := key.String()
	if c.forceReload {
		c.log.Debug("Force reload, ignoring snapshot", "partition", partition)
		return series.New[V]()
	}

	data, err := c.store.Read(ctx, partition)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		c.log.Debug("No snapshot, starting empty", "partition", partition)
		return series.New[V]()
	}
	if err != nil {
		c.log.Warn("Unable to read snapshot, starting empty", "partition", partition, "error", err)
		return series.New[V]()
	}

	s, err := c.codec.Decode(data)
	if err != nil {
		metrics.CacheCorruptTotal.WithLabelValues(partition).Inc()
		c.log.Warn("Corrupt snapshot, starting empty", "partition", partition, "error", err)
		return series.New[V]()
	}

	metrics.CacheEntries.WithLabelValues(partition).Set(float64(len(s)))
	c.log.Debug("Loaded snapshot", "partition", partition, "entries", len(s))
	return s
}

// Merge unions entries into s, overwriting shared keys, and reports how
// many keys were new.
func (c *Cache[V]) Merge(s series.Series[V], entries map[int64]V) int {
	return s.Merge(entries)
}

// Save persists the full series. The write runs on a context detached from
// cancellation so it always completes once started.
func (c *Cache[V]) Save(ctx context.Context, key domain.PartitionKey, s series.Series[V]) error {
	partition := key.String()

	data, err := c.codec.Encode(s)
	if err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues(partition, "error").Inc()
		return fmt.Errorf("encode snapshot %s: %w", partition, err)
	}

	if err := c.store.Write(context.WithoutCancel(ctx), partition, data); err != nil {
		metrics.SnapshotWritesTotal.WithLabelValues(partition, "error").Inc()
		return fmt.Errorf("save snapshot %s: %w", partition, err)
	}

	metrics.SnapshotWritesTotal.WithLabelValues(partition, "ok").Inc()
	metrics.CacheEntries.WithLabelValues(partition).Set(float64(len(s)))
	return nil
}

// MergeAndSave merges entries into s and persists the result.
func (c *Cache[V]) MergeAndSave(
	ctx context.Context,
	key domain.PartitionKey,
	s series.Series[V],
	entries map[int64]V,
) (int, error) {
	added := c.Merge(s, entries)
	if err := c.Save(ctx, key, s); err != nil {
		return added, err
	}
	return added, nil
}
