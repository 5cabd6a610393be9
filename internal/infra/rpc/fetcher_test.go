package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type step struct {
	body  string
	err   error
	block bool // wait for ctx to end
}

// scriptedProvider replays one step per Execute call.
type scriptedProvider struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (p *scriptedProvider) GetName() string { return "scripted" }

func (p *scriptedProvider) Execute(ctx context.Context, op Operation) ([]byte, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.mu.Unlock()

	if idx >= len(p.steps) {
		return nil, errors.New("script exhausted")
	}
	s := p.steps[idx]
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

func (p *scriptedProvider) GetHealth() HealthStatus { return HealthStatus{Available: true} }
func (p *scriptedProvider) Close() error            { return nil }

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newTestFetcher(p Provider, cfg FetcherConfig) (*Fetcher, *fakeClock) {
	f := NewFetcher(p, cfg, nil)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	f.now = func() time.Time { return clock.now }
	f.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.sleeps = append(clock.sleeps, d)
		clock.now = clock.now.Add(d)
		return nil
	}
	return f, clock
}

func TestFetchSuccess(t *testing.T) {
	p := &scriptedProvider{steps: []step{{body: `{"value":42}`}}}
	f, _ := newTestFetcher(p, FetcherConfig{Service: "test", MaxRetries: 3, Timeout: time.Second})

	var out struct{ Value int }
	err := f.Fetch(context.Background(), Operation{Name: "get"}, DecodeJSON(&out))
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, 1, p.Calls())
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	p := &scriptedProvider{steps: []step{
		{err: &StatusError{StatusCode: http.StatusBadGateway}},
		{body: `not json`},
		{body: `{"value":7}`},
	}}
	f, _ := newTestFetcher(p, FetcherConfig{Service: "test", MaxRetries: 3, Timeout: time.Second})

	var out struct{ Value int }
	err := f.Fetch(context.Background(), Operation{Name: "get"}, DecodeJSON(&out))
	require.NoError(t, err)
	assert.Equal(t, 7, out.Value)
	assert.Equal(t, 3, p.Calls())
}

func TestFetchExhaustsRetries(t *testing.T) {
	p := &scriptedProvider{steps: []step{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
	}}
	f, _ := newTestFetcher(p, FetcherConfig{Service: "test", MaxRetries: 2, Timeout: time.Second})

	err := f.Fetch(context.Background(), Operation{Name: "get"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)

	var failure *TransientFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 2, failure.Attempts)
	assert.Equal(t, "get", failure.Operation)
	assert.Equal(t, 2, p.Calls())
}

func TestFetchMalformedIsTransient(t *testing.T) {
	p := &scriptedProvider{steps: []step{{body: ``}}}
	f, _ := newTestFetcher(p, FetcherConfig{Service: "test", MaxRetries: 1, Timeout: time.Second})

	var out map[string]any
	err := f.Fetch(context.Background(), Operation{Name: "get"}, DecodeJSON(&out))
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchFatalStopsImmediately(t *testing.T) {
	p := &scriptedProvider{steps: []step{
		{err: fmt.Errorf("%w: bad url", ErrInvalidRequest)},
		{body: `{}`},
	}}
	f, _ := newTestFetcher(p, FetcherConfig{Service: "test", MaxRetries: 5, Timeout: time.Second})

	err := f.Fetch(context.Background(), Operation{Name: "get"}, nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, p.Calls())
}

func TestFetchEnforcesCallInterval(t *testing.T) {
	p := &scriptedProvider{steps: []step{{body: `{}`}, {body: `{}`}, {body: `{}`}}}
	f, clock := newTestFetcher(p, FetcherConfig{
		Service:        "test",
		CallsPerMinute: 60,
		MaxRetries:     1,
		Timeout:        time.Second,
	})

	ctx := context.Background()
	require.NoError(t, f.Fetch(ctx, Operation{Name: "a"}, nil))
	assert.Empty(t, clock.sleeps, "first call must not wait")

	clock.now = clock.now.Add(400 * time.Millisecond)
	require.NoError(t, f.Fetch(ctx, Operation{Name: "b"}, nil))
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 600*time.Millisecond, clock.sleeps[0])

	clock.now = clock.now.Add(5 * time.Second)
	require.NoError(t, f.Fetch(ctx, Operation{Name: "c"}, nil))
	assert.Len(t, clock.sleeps, 1, "no wait once the interval has passed")
}

func TestFetchHonorsRetryAfter(t *testing.T) {
	p := &scriptedProvider{steps: []step{
		{err: &StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 20 * time.Second}},
		{body: `{}`},
	}}
	f, clock := newTestFetcher(p, FetcherConfig{
		Service:         "test",
		MaxRetries:      2,
		Timeout:         time.Second,
		MaxThrottleWait: 15 * time.Second,
	})

	require.NoError(t, f.Fetch(context.Background(), Operation{Name: "get"}, nil))
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 15*time.Second, clock.sleeps[0], "retry-after is capped")
}

func TestFetchTimeoutIsTransient(t *testing.T) {
	p := &scriptedProvider{steps: []step{{block: true}, {body: `{"ok":true}`}}}
	f := NewFetcher(p, FetcherConfig{Service: "test", MaxRetries: 2, Timeout: 20 * time.Millisecond}, nil)

	var out struct{ OK bool }
	err := f.Fetch(context.Background(), Operation{Name: "slow"}, DecodeJSON(&out))
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, 2, p.Calls())
}

func TestFetchTimeoutExhausted(t *testing.T) {
	p := &scriptedProvider{steps: []step{{block: true}}}
	f := NewFetcher(p, FetcherConfig{Service: "test", MaxRetries: 1, Timeout: 10 * time.Millisecond}, nil)

	err := f.Fetch(context.Background(), Operation{Name: "slow"}, nil)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestFetchCancellationStopsRetries(t *testing.T) {
	steps := make([]step, 10)
	for i := range steps {
		steps[i] = step{block: true}
	}
	p := &scriptedProvider{steps: steps}
	f := NewFetcher(p, FetcherConfig{Service: "test", MaxRetries: 10, Timeout: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := f.Fetch(ctx, Operation{Name: "slow"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, p.Calls())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchCanceledBeforeCall(t *testing.T) {
	p := &scriptedProvider{steps: []step{{body: `{}`}}}
	f, _ := newTestFetcher(p, FetcherConfig{Service: "test", MaxRetries: 3, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Fetch(ctx, Operation{Name: "get"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.Calls())
}
