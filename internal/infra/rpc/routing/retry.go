package routing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vietddude/blockprice/internal/infra/rpc/provider"
)

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry    ErrorAction = iota
	ActionThrottle             // retry after honoring the provider's backoff hint
	ActionFatal
	ActionCancel
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionThrottle:
		return "throttle"
	case ActionFatal:
		return "fatal"
	case ActionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ClassifyError determines the action for a given error.
//
// Timeouts, connection failures, non-2xx statuses and undecodable bodies are
// all transient. Only requests that cannot be built are fatal.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry
	}

	if errors.Is(err, context.Canceled) {
		return ActionCancel
	}

	if errors.Is(err, provider.ErrInvalidRequest) {
		return ActionFatal
	}

	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests {
			return ActionThrottle
		}
		return ActionRetry
	}

	sLower := strings.ToLower(err.Error())
	if strings.Contains(sLower, "too many requests") || strings.Contains(sLower, "rate limit") {
		return ActionThrottle
	}

	return ActionRetry
}

// ErrorType buckets an error for metric labels.
func ErrorType(err error) string {
	var statusErr *provider.StatusError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusTooManyRequests {
			return "rate_limited"
		}
		if statusErr.StatusCode >= 500 {
			return "server_error"
		}
		return "client_error"
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return "malformed"
	case errors.Is(err, provider.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "transport"
	}
}
