// Package pricefeed defines the boundary to token price services.
package pricefeed

import (
	"context"
	"errors"

	"github.com/vietddude/blockprice/internal/core/domain"
)

// ErrPriceNotFound is returned when the service has no price for a token.
var ErrPriceNotFound = errors.New("price not found")

// Source serves USD prices for ERC-20 style tokens.
type Source interface {
	// History returns the full available price history, typically daily.
	History(ctx context.Context, network domain.Network, token string) ([]domain.PricePoint, error)

	// Range returns fine grained prices with from <= timestamp <= to.
	Range(ctx context.Context, network domain.Network, token string, from, to int64) ([]domain.PricePoint, error)

	// Spot returns the latest price.
	Spot(ctx context.Context, network domain.Network, token string) (float64, error)
}
