package chain

import (
	"context"

	"github.com/vietddude/blockprice/internal/core/domain"
)

// BlockSource is the boundary to a network's block-indexing service.
type BlockSource interface {
	// BlocksBetween returns up to first blocks with after < timestamp < before,
	// ordered by ascending timestamp.
	BlocksBetween(ctx context.Context, after, before int64, first int) ([]domain.BlockStamp, error)

	// BlockByNumber returns a single block; ok is false when it is not indexed
	BlockByNumber(ctx context.Context, number int64) (block domain.BlockStamp, ok bool, err error)

	// Network returns the network the source indexes
	Network() domain.Network
}
