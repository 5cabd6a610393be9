package provider

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// ProviderStatus represents the health state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // Provider is working normally
	StatusDegraded                        // Provider is slow but working
	StatusThrottled                       // Provider is rate limiting
	StatusBlocked                         // Provider has rejected this client
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in health reports.
func (s ProviderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status            ProviderStatus `json:"status"`
	AverageLatency    time.Duration  `json:"average_latency"`
	ThrottleCount429  int            `json:"throttle_count_429"`
	ThrottleCount403  int            `json:"throttle_count_403"`
	RequestsLast1Hour int            `json:"requests_last_1h"`
	RetryAfter        time.Duration  `json:"retry_after"`
}

// ProviderMonitor tracks provider latency and throttling.
type ProviderMonitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	status429Count     int
	status403Count     int
	throttlePatterns   []string
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	// one hour sliding window
	requestTimestamps []time.Time
	windowDuration    time.Duration

	slowResponseThreshold time.Duration

	now func() time.Time
}

// NewProviderMonitor creates a new monitor with default settings.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		throttlePatterns: []string{
			"rate limit",
			"too many requests",
			"exceeded the rate",
			"monthly quota exceeded",
		},
		windowDuration:        time.Hour,
		slowResponseThreshold: 3 * time.Second,
		now:                   time.Now,
	}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.now()

	pm.recentLatencies = append(pm.recentLatencies, latency)
	if len(pm.recentLatencies) > pm.maxLatencyWindow {
		pm.recentLatencies = pm.recentLatencies[1:]
	}

	pm.requestTimestamps = append(pm.requestTimestamps, now)

	cutoff := now.Add(-pm.windowDuration)
	i := 0
	for i < len(pm.requestTimestamps) && !pm.requestTimestamps[i].After(cutoff) {
		i++
	}
	pm.requestTimestamps = pm.requestTimestamps[i:]
}

// RecordThrottle records a rate limiting or blocking response. retryAfter is
// the server-provided hint, 0 when absent.
func (pm *ProviderMonitor) RecordThrottle(statusCode int, retryAfter time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.lastThrottleTime = pm.now()

	switch statusCode {
	case http.StatusTooManyRequests:
		pm.status429Count++
		if retryAfter <= 0 {
			retryAfter = time.Minute
		}
		pm.retryAfterDuration = retryAfter
	case http.StatusForbidden:
		pm.status403Count++
		pm.retryAfterDuration = 10 * time.Minute
	}
}

// DetectThrottlePattern checks if a message contains throttle patterns.
func (pm *ProviderMonitor) DetectThrottlePattern(message string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	lowerMsg := strings.ToLower(message)
	for _, pattern := range pm.throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked()
}

func (pm *ProviderMonitor) statusLocked() ProviderStatus {
	sinceThrottle := pm.now().Sub(pm.lastThrottleTime)

	if pm.status403Count > 0 && sinceThrottle < pm.retryAfterDuration {
		return StatusBlocked
	}
	if pm.status429Count > 0 && sinceThrottle < pm.retryAfterDuration {
		return StatusThrottled
	}
	if len(pm.recentLatencies) > 10 && pm.averageLatencyLocked() > pm.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// GetRetryAfter returns remaining time before retry is allowed.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.retryAfterLocked()
}

func (pm *ProviderMonitor) retryAfterLocked() time.Duration {
	if pm.retryAfterDuration > 0 {
		remaining := pm.retryAfterDuration - pm.now().Sub(pm.lastThrottleTime)
		if remaining > 0 {
			return remaining
		}
	}
	return 0
}

func (pm *ProviderMonitor) averageLatencyLocked() time.Duration {
	if len(pm.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(pm.recentLatencies))
}

// GetRequestCount returns number of requests in the given duration.
func (pm *ProviderMonitor) GetRequestCount(duration time.Duration) int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.requestCountLocked(duration)
}

func (pm *ProviderMonitor) requestCountLocked(duration time.Duration) int {
	cutoff := pm.now().Add(-duration)
	count := 0
	for _, t := range pm.requestTimestamps {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return MonitorStats{
		Status:            pm.statusLocked(),
		AverageLatency:    pm.averageLatencyLocked(),
		ThrottleCount429:  pm.status429Count,
		ThrottleCount403:  pm.status403Count,
		RequestsLast1Hour: pm.requestCountLocked(time.Hour),
		RetryAfter:        pm.retryAfterLocked(),
	}
}
