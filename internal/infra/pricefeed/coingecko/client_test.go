package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/infra/pricefeed"
	"github.com/vietddude/blockprice/internal/infra/rpc"
)

const weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := rpc.NewHTTPProvider("coingecko", srv.URL, time.Second)
	f := rpc.NewFetcher(p, rpc.FetcherConfig{Service: "coingecko", MaxRetries: 2, Timeout: time.Second}, nil)
	return NewClient(f)
}

func TestHistory(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/polygon-pos/contract/0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2/market_chart", r.URL.Path)
		assert.Equal(t, "max", r.URL.Query().Get("days"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		_, _ = w.Write([]byte(`{"prices":[[1600000000000,10.5],[1600086400000,null],[1600172800000,11]],"market_caps":[]}`))
	})

	points, err := c.History(context.Background(), domain.NetworkPolygon, weth)
	require.NoError(t, err)
	assert.Equal(t, []domain.PricePoint{
		{Timestamp: 1600000000, Price: 10.5},
		{Timestamp: 1600172800, Price: 11},
	}, points)
}

func TestRange(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/ethereum/contract/0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2/market_chart/range", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("from"))
		assert.Equal(t, "9000", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"prices":[[1500123,2.0],[4000999,3.0]]}`))
	})

	points, err := c.Range(context.Background(), domain.NetworkEthereum, weth, 1000, 9000)
	require.NoError(t, err)
	assert.Equal(t, []domain.PricePoint{
		{Timestamp: 1500, Price: 2.0},
		{Timestamp: 4000, Price: 3.0},
	}, points)
}

func TestRangeMalformedRow(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prices":[[1,2,3]]}`))
	})

	_, err := c.Range(context.Background(), domain.NetworkEthereum, weth, 0, 1)
	assert.ErrorIs(t, err, rpc.ErrRetriesExhausted)
	assert.ErrorIs(t, err, rpc.ErrMalformedResponse)
}

func TestSpot(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/token_price/arbitrum-one", r.URL.Path)
		assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", r.URL.Query().Get("contract_addresses"))
		_, _ = w.Write([]byte(`{"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2":{"usd":2500.25}}`))
	})

	price, err := c.Spot(context.Background(), domain.NetworkArbitrum, weth)
	require.NoError(t, err)
	assert.InDelta(t, 2500.25, price, 1e-9)
}

func TestSpotUnknownToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Spot(context.Background(), domain.NetworkEthereum, weth)
	assert.True(t, errors.Is(err, pricefeed.ErrPriceNotFound))
}

func TestInvalidInputsDoNotCallRemote(t *testing.T) {
	called := false
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.History(context.Background(), domain.Network("solana"), weth)
	assert.ErrorIs(t, err, domain.ErrUnsupportedNetwork)

	_, err = c.Range(context.Background(), domain.NetworkEthereum, "not-an-address", 0, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	assert.False(t, called)
}
