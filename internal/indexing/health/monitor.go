package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/blockprice/internal/infra/rpc/provider"
)

// ProviderSource exposes a provider's health.
type ProviderSource interface {
	GetName() string
	GetHealth() provider.HealthStatus
}

// Monitor aggregates warm results and provider health.
type Monitor struct {
	providers  []ProviderSource
	partitions map[string]PartitionHealth
	mu         sync.RWMutex
	now        func() time.Time
}

// NewMonitor creates a new health monitor.
func NewMonitor(providers ...ProviderSource) *Monitor {
	return &Monitor{
		providers:  providers,
		partitions: make(map[string]PartitionHealth),
		now:        time.Now,
	}
}

// RecordWarm stores the outcome of one warm run. A failed run is critical,
// an incomplete one degraded.
func (m *Monitor) RecordWarm(partition string, complete bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	h := m.partitions[partition]
	h.Partition = partition
	h.Runs++
	h.LastRun = now
	h.Complete = complete && err == nil
	h.LastError = ""

	switch {
	case err != nil:
		h.Status = StatusCritical
		h.LastError = err.Error()
	case !complete:
		h.Status = StatusDegraded
		h.LastSuccess = now
	default:
		h.Status = StatusHealthy
		h.LastSuccess = now
	}
	m.partitions[partition] = h
}

// CheckHealth builds a report of all partitions and providers.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	report := HealthReport{
		SystemStatus: StatusHealthy,
		Partitions:   make(map[string]PartitionHealth),
		Providers:    make(map[string]ProviderHealth),
	}

	m.mu.RLock()
	for name, h := range m.partitions {
		report.Partitions[name] = h
		report.SystemStatus = worst(report.SystemStatus, h.Status)
	}
	m.mu.RUnlock()

	for _, p := range m.providers {
		ph := providerHealth(p)
		report.Providers[ph.Name] = ph
		report.SystemStatus = worst(report.SystemStatus, ph.Status)
	}

	return report
}

func providerHealth(p ProviderSource) ProviderHealth {
	hs := p.GetHealth()
	ph := ProviderHealth{
		Name:      p.GetName(),
		Status:    StatusHealthy,
		Available: hs.Available,
		ErrorRate: hs.ErrorRate,
		Latency:   hs.Latency,
	}

	if !hs.Available {
		ph.Status = StatusDegraded
	}
	if hs.MonitorStats != nil {
		ph.Monitor = hs.MonitorStats
		switch hs.MonitorStats.Status {
		case provider.StatusBlocked:
			ph.Status = StatusCritical
		case provider.StatusThrottled, provider.StatusDegraded:
			ph.Status = worst(ph.Status, StatusDegraded)
		}
	}
	return ph
}
