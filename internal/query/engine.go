// Package query turns synced series into answers: interpolated point prices
// and per-block price alignment.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/core/series"
)

// ErrNoPriceData is returned when a price series is empty.
var ErrNoPriceData = errors.New("no price data")

// Interpolate linearly interpolates ys over ascending xs at x. Outside
// [xs[0], xs[len-1]] the nearest boundary value is returned.
func Interpolate(xs []int64, ys []float64, x int64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrNoPriceData
	}
	if len(xs) != len(ys) {
		return 0, fmt.Errorf("interpolate: %d keys and %d values", len(xs), len(ys))
	}

	if x <= xs[0] {
		return ys[0], nil
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return ys[last], nil
	}

	// xs[i-1] < x <= xs[i]
	i := sort.Search(len(xs), func(i int) bool { return xs[i] >= x })
	if xs[i] == x {
		return ys[i], nil
	}

	x0, x1 := float64(xs[i-1]), float64(xs[i])
	y0, y1 := ys[i-1], ys[i]
	return y0 + (y1-y0)*(float64(x)-x0)/(x1-x0), nil
}

// InterpolateAt returns the price at t.
func InterpolateAt(prices series.Series[float64], t int64) (float64, error) {
	xs, ys := prices.Sorted()
	return Interpolate(xs, ys, t)
}

// AlignToBlocks prices every block whose timestamp is after both the first
// priced timestamp and window.Start, and before window.End. Results are
// ordered by block number.
func AlignToBlocks(
	prices series.Series[float64],
	blocks series.Series[int64],
	window domain.QueryWindow,
) ([]domain.BlockPrice, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	xs, ys := prices.Sorted()
	if len(xs) == 0 {
		return nil, ErrNoPriceData
	}

	lower := max(xs[0], window.Start)

	out := make([]domain.BlockPrice, 0)
	for _, number := range blocks.Keys() {
		ts := blocks[number]
		if ts <= lower || ts >= window.End {
			continue
		}
		price, err := Interpolate(xs, ys, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.BlockPrice{Block: number, Timestamp: ts, Price: price})
	}
	return out, nil
}
