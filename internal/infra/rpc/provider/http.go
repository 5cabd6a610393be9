package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxErrorBody = 256

// HTTPProvider implements Provider for REST and GraphQL endpoints.
type HTTPProvider struct {
	name       string
	endpoint   string
	headers    map[string]string
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// NewHTTPProvider creates a new HTTP provider. timeout bounds every request
// in addition to any deadline on the request context.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		headers:  make(map[string]string),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// SetHeader adds a header sent with every request (API keys).
func (p *HTTPProvider) SetHeader(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headers[key] = value
}

// Execute performs a single HTTP request and returns the response body.
func (p *HTTPProvider) Execute(ctx context.Context, op Operation) ([]byte, error) {
	start := time.Now()

	req, err := p.newRequest(ctx, op)
	if err != nil {
		p.recordFailure()
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("http call %s: %w", op.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	latency := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.recordFailure()
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), maxErrorBody),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			p.Monitor.RecordThrottle(http.StatusTooManyRequests, statusErr.RetryAfter)
		case resp.StatusCode == http.StatusForbidden:
			p.Monitor.RecordThrottle(http.StatusForbidden, 0)
		case p.Monitor.DetectThrottlePattern(string(body)):
			p.Monitor.RecordThrottle(http.StatusTooManyRequests, statusErr.RetryAfter)
		}
		return nil, statusErr
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)

	return body, nil
}

func (p *HTTPProvider) newRequest(ctx context.Context, op Operation) (*http.Request, error) {
	target := p.endpoint
	if op.Path != "" {
		target += "/" + strings.TrimLeft(op.Path, "/")
	}
	if len(op.Query) > 0 {
		target += "?" + op.Query.Encode()
	}

	method := op.Method
	var body io.Reader
	if op.Body != nil {
		payload, err := json.Marshal(op.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", ErrInvalidRequest, err)
		}
		body = bytes.NewReader(payload)
		if method == "" {
			method = http.MethodPost
		}
	}
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	p.mu.RLock()
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	p.mu.RUnlock()

	return req, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	health := p.health
	p.mu.RUnlock()

	stats := p.Monitor.GetStats()
	health.MonitorStats = &stats
	return health
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}
	if p.successCount > 0 {
		p.health.Latency = p.totalLatency / time.Duration(p.successCount)
	}
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}

// ParseRetryAfter parses a Retry-After header given as seconds or an HTTP
// date. Unparseable or past values yield 0.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
