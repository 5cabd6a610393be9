// Package control wires the syncers into the query service and the
// long-running application.
package control

import (
	"context"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/indexing/blocksync"
	"github.com/vietddude/blockprice/internal/indexing/pricesync"
)

// BlockSyncer keeps one network's block-timestamp partition warm.
type BlockSyncer interface {
	Sync(ctx context.Context, window domain.QueryWindow) (*blocksync.Result, error)
}

// PriceSyncer keeps token price partitions warm.
type PriceSyncer interface {
	Sync(ctx context.Context, network domain.Network, token string, window domain.QueryWindow) (*pricesync.Result, error)
}

// SpotSource returns the current USD price of a token.
type SpotSource interface {
	Spot(ctx context.Context, network domain.Network, token string) (float64, error)
}

// PointPrice is the answer to a single-timestamp query.
type PointPrice struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	// Complete is false when the price series was built partly from cache
	// after a remote failure.
	Complete bool `json:"complete"`
}

// RangePrices is the answer to a block-aligned range query.
type RangePrices struct {
	Prices   []domain.BlockPrice `json:"prices"`
	Complete bool                `json:"complete"`
}
