// Package coingecko reads token prices from the CoinGecko v3 API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/infra/pricefeed"
	"github.com/vietddude/blockprice/internal/infra/rpc"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const vsCurrency = "usd"

// Client implements pricefeed.Source.
type Client struct {
	fetcher *rpc.Fetcher
}

var _ pricefeed.Source = (*Client)(nil)

// NewClient wraps a fetcher whose provider points at the API root.
func NewClient(fetcher *rpc.Fetcher) *Client {
	return &Client{fetcher: fetcher}
}

type marketChart struct {
	Prices []pricePair `json:"prices"`
}

// pricePair is a [timestampMillis, price] row. Price may be null.
type pricePair struct {
	Millis int64
	Price  *float64
}

func (p *pricePair) UnmarshalJSON(data []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	if len(row) != 2 {
		return fmt.Errorf("price row has %d fields, want 2", len(row))
	}

	var millis float64
	if err := json.Unmarshal(row[0], &millis); err != nil {
		return fmt.Errorf("price row timestamp: %w", err)
	}
	p.Millis = int64(millis)

	p.Price = nil
	if string(row[1]) != "null" {
		var price float64
		if err := json.Unmarshal(row[1], &price); err != nil {
			return fmt.Errorf("price row value: %w", err)
		}
		p.Price = &price
	}
	return nil
}

// History returns the token's full daily price history.
func (c *Client) History(
	ctx context.Context,
	network domain.Network,
	token string,
) ([]domain.PricePoint, error) {
	path, err := contractPath(network, token, "market_chart")
	if err != nil {
		return nil, err
	}

	op := rpc.Operation{
		Name:  "market_chart",
		Path:  path,
		Query: url.Values{"vs_currency": {vsCurrency}, "days": {"max"}},
	}
	return c.chart(ctx, op)
}

// Range returns prices between from and to, in unix seconds.
func (c *Client) Range(
	ctx context.Context,
	network domain.Network,
	token string,
	from, to int64,
) ([]domain.PricePoint, error) {
	path, err := contractPath(network, token, "market_chart/range")
	if err != nil {
		return nil, err
	}

	op := rpc.Operation{
		Name: "market_chart_range",
		Path: path,
		Query: url.Values{
			"vs_currency": {vsCurrency},
			"from":        {strconv.FormatInt(from, 10)},
			"to":          {strconv.FormatInt(to, 10)},
		},
	}
	return c.chart(ctx, op)
}

// Spot returns the current USD price.
func (c *Client) Spot(ctx context.Context, network domain.Network, token string) (float64, error) {
	platform, err := network.PlatformID()
	if err != nil {
		return 0, err
	}
	token, err = domain.NormalizeToken(token)
	if err != nil {
		return 0, err
	}

	op := rpc.Operation{
		Name: "token_price",
		Path: "simple/token_price/" + platform,
		Query: url.Values{
			"contract_addresses": {token},
			"vs_currencies":      {vsCurrency},
		},
	}

	var resp map[string]map[string]float64
	if err := c.fetcher.Fetch(ctx, op, rpc.DecodeJSON(&resp)); err != nil {
		return 0, fmt.Errorf("spot price %s/%s: %w", network, token, err)
	}

	// keys are lowercase addresses; match defensively anyway
	for addr, quotes := range resp {
		if n, err := domain.NormalizeToken(addr); err != nil || n != token {
			continue
		}
		if price, ok := quotes[vsCurrency]; ok {
			return price, nil
		}
	}
	return 0, fmt.Errorf("%w: %s/%s", pricefeed.ErrPriceNotFound, network, token)
}

func (c *Client) chart(ctx context.Context, op rpc.Operation) ([]domain.PricePoint, error) {
	var resp marketChart
	if err := c.fetcher.Fetch(ctx, op, rpc.DecodeJSON(&resp)); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Name, op.Path, err)
	}

	points := make([]domain.PricePoint, 0, len(resp.Prices))
	for _, row := range resp.Prices {
		if row.Price == nil || *row.Price < 0 {
			continue
		}
		points = append(points, domain.PricePoint{
			Timestamp: row.Millis / 1000,
			Price:     *row.Price,
		})
	}
	return points, nil
}

func contractPath(network domain.Network, token, suffix string) (string, error) {
	platform, err := network.PlatformID()
	if err != nil {
		return "", err
	}
	token, err = domain.NormalizeToken(token)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("coins/%s/contract/%s/%s", platform, token, suffix), nil
}
