// Package blocksync builds a dense block number to timestamp series for a
// time window, fetching only what the cache does not already cover.
package blocksync

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/vietddude/blockprice/internal/core/cache"
	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/core/series"
	"github.com/vietddude/blockprice/internal/indexing/metrics"
	"github.com/vietddude/blockprice/internal/infra/chain"
)

// DefaultPageSize is the largest page the indexing service returns.
const DefaultPageSize = 1000

// anchorPage is how many blocks the end anchor lookup reads, enough to see
// every block of one second on fast chains.
const anchorPage = 10

var (
	// ErrBlockSyncFailed wraps a remote failure. Block sync has no degraded
	// mode, so callers must abort the query.
	ErrBlockSyncFailed = errors.New("block sync failed")

	// ErrNonMonotonic is returned when the source breaks ascending order.
	ErrNonMonotonic = errors.New("non-monotonic block response")
)

// Result summarizes one Sync call.
type Result struct {
	Blocks series.Series[int64]

	// Fetches counts remote calls issued
	Fetches int

	// Fetched counts blocks received from the source
	Fetched int

	// Skipped counts cached blocks walked without a remote call
	Skipped int
}

// Syncer drives one network's BlockSource. It is not safe for concurrent
// use on the same network.
type Syncer struct {
	source   chain.BlockSource
	cache    *cache.BlockCache
	pageSize int
	log      *slog.Logger
}

// NewSyncer creates a syncer. pageSize <= 0 uses the source maximum.
func NewSyncer(source chain.BlockSource, c *cache.BlockCache, pageSize int, log *slog.Logger) *Syncer {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{
		source:   source,
		cache:    c,
		pageSize: pageSize,
		log:      log.With("network", source.Network().String()),
	}
}

// Sync makes the cached block series cover the padded window and returns it.
func (s *Syncer) Sync(ctx context.Context, window domain.QueryWindow) (*Result, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	network := s.source.Network()
	key := domain.BlockPartition(network)
	blocks := s.cache.Load(ctx, key)
	res := &Result{Blocks: blocks}

	start, goal := window.PaddedStart(), window.PaddedEnd()
	cursor := start
	last, known := seed(blocks, start)
	covered := false
	crowded := false

	for {
		if known {
			var walked int
			last, cursor, walked = fastForward(blocks, last, cursor, goal)
			res.Skipped += walked
			if cursor >= goal {
				covered = true
				break
			}
		}

		if err := ctx.Err(); err != nil {
			return res, err
		}

		// Re-read the cursor's own second: blocks sharing it with the last
		// known block may not have been returned yet.
		after := cursor
		if known && !crowded {
			after = cursor - 1
		}

		res.Fetches++
		rows, err := s.source.BlocksBetween(ctx, after, goal, s.pageSize)
		if err != nil {
			return res, s.fail(ctx, err)
		}
		if len(rows) == 0 {
			break
		}
		sortTies(rows)
		if err := validate(rows, after); err != nil {
			return res, err
		}

		full := len(rows) == s.pageSize
		batch := make(map[int64]int64, len(rows))
		for _, b := range rows {
			if _, cached := blocks[b.Number]; !cached {
				batch[b.Number] = b.Timestamp
			}
		}

		if len(batch) == 0 && !full {
			break
		}
		tail := rows[len(rows)-1]
		if tail.Timestamp <= cursor && len(batch) == 0 {
			// More blocks share this second than fit in a page; step past it.
			s.log.Warn("Block page holds a single second, skipping the rest of it",
				"timestamp", cursor,
				"page_size", s.pageSize,
			)
			crowded = true
			continue
		}
		crowded = false

		if len(batch) > 0 {
			if _, err := s.cache.MergeAndSave(ctx, key, blocks, batch); err != nil {
				return res, err
			}
		}

		res.Fetched += len(batch)
		last, cursor, known = tail.Number, tail.Timestamp, true

		s.log.Debug("Fetched block page",
			"count", len(rows),
			"new", len(batch),
			"last_block", last,
			"cursor", cursor,
			"goal", goal,
		)

		if !full {
			break
		}
	}

	if !covered {
		if err := s.anchor(ctx, key, blocks, start, goal, res); err != nil {
			return res, err
		}
	}

	metrics.BlocksSynced.WithLabelValues(network.String()).Add(float64(res.Fetched))
	metrics.BlocksSkipped.WithLabelValues(network.String()).Add(float64(res.Skipped))

	s.log.Info("Block sync complete",
		"start", start,
		"end", goal,
		"fetches", res.Fetches,
		"fetched", res.Fetched,
		"skipped", res.Skipped,
		"cached", len(blocks),
	)
	return res, nil
}

// anchor caches the last block at or before start and the first block at or
// after goal. With both cached a repeat Sync over the same window walks the
// cache end to end without remote calls. Anchor failures only cost that
// optimization, so they are logged and dropped.
func (s *Syncer) anchor(
	ctx context.Context,
	key domain.PartitionKey,
	blocks series.Series[int64],
	start, goal int64,
	res *Result,
) error {
	batch := make(map[int64]int64, 2)

	res.Fetches++
	rows, err := s.source.BlocksBetween(ctx, goal-1, math.MaxInt64, anchorPage)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		s.log.Warn("End anchor fetch failed", "goal", goal, "error", err)
	case len(rows) > 0:
		b := earliest(rows)
		batch[b.Number] = b.Timestamp
	}

	if first, ok := firstAfter(blocks, batch, start); ok && first > 0 {
		if _, cached := blocks[first-1]; !cached {
			res.Fetches++
			b, found, err := s.source.BlockByNumber(ctx, first-1)
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				s.log.Warn("Start anchor fetch failed", "block", first-1, "error", err)
			case found && b.Timestamp <= start:
				batch[b.Number] = b.Timestamp
			}
		}
	}

	if len(batch) == 0 {
		return nil
	}
	res.Fetched += len(batch)
	_, err = s.cache.MergeAndSave(ctx, key, blocks, batch)
	return err
}

func (s *Syncer) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.log.Error("Block fetch failed", "error", err)
	return fmt.Errorf("%w: %w", ErrBlockSyncFailed, err)
}

// seed finds a cached starting point for the walk: the block just before the
// first block whose timestamp is after start, provided both are cached and
// the earlier one is at or before start.
func seed(blocks series.Series[int64], start int64) (int64, bool) {
	first, ok := firstAfter(blocks, nil, start)
	if !ok {
		return 0, false
	}
	ts, cached := blocks[first-1]
	if !cached || ts > start {
		return 0, false
	}
	return first - 1, true
}

// firstAfter returns the lowest numbered block with timestamp > ts across
// blocks and extra.
func firstAfter(blocks series.Series[int64], extra map[int64]int64, ts int64) (int64, bool) {
	var best int64
	found := false
	consider := func(n, t int64) {
		if t > ts && (!found || n < best) {
			best, found = n, true
		}
	}
	for n, t := range blocks {
		consider(n, t)
	}
	for n, t := range extra {
		consider(n, t)
	}
	return best, found
}

// fastForward walks consecutive cached block numbers from last, stopping at
// the first gap or once a timestamp reaches goal.
func fastForward(blocks series.Series[int64], last, cursor, goal int64) (int64, int64, int) {
	if ts, ok := blocks[last]; ok && ts > cursor {
		cursor = ts
	}
	walked := 0
	for cursor < goal {
		ts, ok := blocks[last+1]
		if !ok {
			break
		}
		last++
		walked++
		if ts > cursor {
			cursor = ts
		}
	}
	return last, cursor, walked
}

// sortTies orders blocks that share a timestamp by number. The source orders
// by timestamp only, so ties arrive in any order.
func sortTies(rows []domain.BlockStamp) {
	for i := 0; i < len(rows); {
		j := i + 1
		for j < len(rows) && rows[j].Timestamp == rows[i].Timestamp {
			j++
		}
		slices.SortFunc(rows[i:j], func(a, b domain.BlockStamp) int {
			return cmp.Compare(a.Number, b.Number)
		})
		i = j
	}
}

// earliest returns the lowest numbered block of the first second in rows.
func earliest(rows []domain.BlockStamp) domain.BlockStamp {
	best := rows[0]
	for _, b := range rows[1:] {
		if b.Timestamp != rows[0].Timestamp {
			break
		}
		if b.Number < best.Number {
			best = b
		}
	}
	return best
}

// validate enforces ascending order: block numbers strictly increase,
// timestamps never decrease and all lie after the cursor.
func validate(rows []domain.BlockStamp, cursor int64) error {
	prev := domain.BlockStamp{Number: math.MinInt64, Timestamp: cursor}
	for i, b := range rows {
		if b.Number <= prev.Number {
			return fmt.Errorf("%w: block %d at row %d follows block %d", ErrNonMonotonic, b.Number, i, prev.Number)
		}
		if b.Timestamp < prev.Timestamp || b.Timestamp <= cursor {
			return fmt.Errorf("%w: block %d timestamp %d at row %d (previous %d, cursor %d)",
				ErrNonMonotonic, b.Number, b.Timestamp, i, prev.Timestamp, cursor)
		}
		prev = b
	}
	return nil
}
