// Package rpc provides the rate-limited, retrying client used for every
// remote data source.
//
// # Quick Start
//
//	import "github.com/vietddude/blockprice/internal/infra/rpc"
//
//	p := rpc.NewHTTPProvider("coingecko", "https://api.coingecko.com/api/v3", 10*time.Second)
//	f := rpc.NewFetcher(p, rpc.FetcherConfig{
//	    Service:        "coingecko",
//	    CallsPerMinute: 50,
//	    Timeout:        10 * time.Second,
//	    MaxRetries:     5,
//	}, slog.Default())
//
//	var out marketChart
//	err := f.Fetch(ctx, op, rpc.DecodeJSON(&out))
//
// # Package Structure
//
//   - provider/ - HTTP transport and provider monitoring
//   - routing/  - error classification
//
// The Fetcher owns the call-interval state. Share one Fetcher per remote
// service so that calls to that service are spaced correctly.
package rpc

import (
	"time"

	"github.com/vietddude/blockprice/internal/infra/rpc/provider"
)

// Provider is the core interface for remote endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for REST and GraphQL over HTTP.
type HTTPProvider = provider.HTTPProvider

// Operation describes one request against a provider.
type Operation = provider.Operation

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// StatusError is returned for non-2xx responses.
type StatusError = provider.StatusError

// ErrInvalidRequest marks requests that can never succeed.
var ErrInvalidRequest = provider.ErrInvalidRequest

// NewHTTPProvider creates a new HTTP provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}
