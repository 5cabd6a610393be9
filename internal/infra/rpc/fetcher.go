package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/blockprice/internal/indexing/metrics"
	"github.com/vietddude/blockprice/internal/infra/rpc/routing"
)

var (
	// ErrRetriesExhausted matches every TransientFailure via errors.Is.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrTimeout wraps an attempt that hit its per-call deadline.
	ErrTimeout = errors.New("call deadline exceeded")

	// ErrMalformedResponse wraps a body the decoder rejected.
	ErrMalformedResponse = errors.New("malformed response")
)

// TransientFailure is returned when every attempt failed with a retryable
// error. The caller decides whether this aborts or degrades its work.
type TransientFailure struct {
	Service   string
	Operation string
	Attempts  int
	Err       error
}

func (e *TransientFailure) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempts: %v", e.Service, e.Operation, e.Attempts, e.Err)
}

func (e *TransientFailure) Unwrap() error { return e.Err }

func (e *TransientFailure) Is(target error) bool { return target == ErrRetriesExhausted }

// FetcherConfig holds per-service call limits.
type FetcherConfig struct {
	Service string

	// CallsPerMinute caps the call rate; 0 disables spacing
	CallsPerMinute int

	// Timeout is the hard deadline of a single attempt
	Timeout time.Duration

	// MaxRetries is the total number of attempts per Fetch
	MaxRetries int

	// MaxThrottleWait caps how long a Retry-After hint may delay the next attempt
	MaxThrottleWait time.Duration
}

// Interval returns the minimum spacing between call starts.
func (c FetcherConfig) Interval() time.Duration {
	if c.CallsPerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(c.CallsPerMinute)
}

// Fetcher issues requests through a Provider while enforcing a minimum call
// interval, a per-call deadline and a bounded retry budget.
type Fetcher struct {
	provider Provider
	config   FetcherConfig
	log      *slog.Logger

	mu        sync.Mutex
	lastCall  time.Time
	notBefore time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a fetcher for one remote service.
func NewFetcher(p Provider, config FetcherConfig, log *slog.Logger) *Fetcher {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxThrottleWait <= 0 {
		config.MaxThrottleWait = time.Minute
	}
	if config.Service == "" {
		config.Service = p.GetName()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		provider: p,
		config:   config,
		log:      log.With("service", config.Service),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// DecodeJSON returns a decoder that unmarshals the body into v.
func DecodeJSON(v any) func([]byte) error {
	return func(body []byte) error {
		return json.Unmarshal(body, v)
	}
}

// Fetch executes op and passes the body to decode. A decode error counts as
// a failed attempt. Cancellation of ctx is returned as ctx.Err() without
// consuming the remaining attempts.
func (f *Fetcher) Fetch(ctx context.Context, op Operation, decode func([]byte) error) error {
	var lastErr error

	for attempt := 1; attempt <= f.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.wait(ctx); err != nil {
			return err
		}

		err := f.attempt(ctx, op, decode)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		metrics.FetchErrorsTotal.WithLabelValues(f.config.Service, routing.ErrorType(err)).Inc()

		action := routing.ClassifyError(err)
		switch action {
		case routing.ActionFatal, routing.ActionCancel:
			return fmt.Errorf("%s %s: %w", f.config.Service, op.Name, err)
		case routing.ActionThrottle:
			f.backoff(err)
		}

		f.log.Warn("Fetch attempt failed",
			"operation", op.Name,
			"attempt", attempt,
			"max_attempts", f.config.MaxRetries,
			"action", action.String(),
			"error", err,
		)
	}

	return &TransientFailure{
		Service:   f.config.Service,
		Operation: op.Name,
		Attempts:  f.config.MaxRetries,
		Err:       lastErr,
	}
}

func (f *Fetcher) attempt(ctx context.Context, op Operation, decode func([]byte) error) error {
	callCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	metrics.FetchCallsTotal.WithLabelValues(f.config.Service, op.Name).Inc()
	start := time.Now()
	body, err := f.provider.Execute(callCtx, op)
	metrics.FetchLatency.WithLabelValues(f.config.Service, op.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %w", ErrTimeout, f.config.Timeout, err)
		}
		return err
	}

	if decode != nil {
		if err := decode(body); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	return nil
}

// wait sleeps until the call interval since the previous call start has
// elapsed, then stamps the new call start.
func (f *Fetcher) wait(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.lastCall.Add(f.config.Interval())
	if f.notBefore.After(next) {
		next = f.notBefore
	}

	if delay := next.Sub(f.now()); delay > 0 {
		metrics.RateLimitWait.WithLabelValues(f.config.Service).Add(delay.Seconds())
		if err := f.sleep(ctx, delay); err != nil {
			return err
		}
	}

	f.lastCall = f.now()
	return nil
}

func (f *Fetcher) backoff(err error) {
	delay := f.config.Interval()
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > delay {
		delay = statusErr.RetryAfter
	}
	if delay > f.config.MaxThrottleWait {
		delay = f.config.MaxThrottleWait
	}

	f.mu.Lock()
	f.notBefore = f.now().Add(delay)
	f.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
