package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/infra/rpc"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := rpc.NewHTTPProvider("subgraph-test", srv.URL, time.Second)
	f := rpc.NewFetcher(p, rpc.FetcherConfig{Service: "subgraph", MaxRetries: 3, Timeout: time.Second}, nil)
	return NewClient(domain.NetworkEthereum, f)
}

func TestBlocksBetween(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "orderBy: timestamp")
		assert.Equal(t, float64(1000), req.Variables["first"])
		assert.Equal(t, "100", req.Variables["after"])
		assert.Equal(t, "500", req.Variables["before"])

		_, _ = w.Write([]byte(`{"data":{"blocks":[
			{"number":"10","timestamp":"112"},
			{"number":"11","timestamp":"124"}
		]}}`))
	})

	blocks, err := c.BlocksBetween(context.Background(), 100, 500, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.BlockStamp{
		{Number: 10, Timestamp: 112},
		{Number: 11, Timestamp: 124},
	}, blocks)
	assert.Equal(t, domain.NetworkEthereum, c.Network())
}

func TestBlocksBetweenEmpty(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"blocks":[]}}`))
	})

	blocks, err := c.BlocksBetween(context.Background(), 100, 500, 10)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestBlocksBetweenRetriesGraphQLErrors(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"errors":[{"message":"indexer unavailable"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"blocks":[{"number":1,"timestamp":2}]}}`))
	})

	blocks, err := c.BlocksBetween(context.Background(), 0, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.BlockStamp{{Number: 1, Timestamp: 2}}, blocks)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBlocksBetweenExhausted(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.BlocksBetween(context.Background(), 0, 10, 1)
	assert.ErrorIs(t, err, rpc.ErrRetriesExhausted)
}

func TestBlockByNumber(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Variables["number"] == "42" {
			_, _ = w.Write([]byte(`{"data":{"blocks":[{"number":"42","timestamp":"1000"}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"blocks":[]}}`))
	})

	block, ok, err := c.BlockByNumber(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.BlockStamp{Number: 42, Timestamp: 1000}, block)

	_, ok, err = c.BlockByNumber(context.Background(), 43)
	require.NoError(t, err)
	assert.False(t, ok)
}
