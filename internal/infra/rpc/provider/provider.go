// Package provider implements the HTTP transport used by the remote data
// clients.
//
// This package contains:
//   - Provider interface: core abstraction for a remote endpoint
//   - HTTPProvider: REST and GraphQL-over-HTTP implementation
//   - ProviderMonitor: latency and throttle tracking
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrInvalidRequest marks a request that could not be built. Retrying it
// cannot succeed.
var ErrInvalidRequest = errors.New("invalid request")

// Operation describes one HTTP request against a provider endpoint.
type Operation struct {
	// Name identifies the operation in logs and metrics (e.g. "market_chart")
	Name string

	// Method is the HTTP method; defaults to GET, or POST when Body is set
	Method string

	// Path is appended to the provider endpoint
	Path string

	// Query is encoded into the URL query string
	Query url.Values

	// Body is JSON encoded when non-nil
	Body any
}

// Provider is the abstraction the fetcher drives.
type Provider interface {
	// GetName returns provider identifier (e.g., "coingecko", "subgraph-ethereum")
	GetName() string

	// Execute performs the operation and returns the raw response body
	Execute(ctx context.Context, op Operation) ([]byte, error)

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("http %d (retry after %s): %s", e.StatusCode, e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}
