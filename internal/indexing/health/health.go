// Package health provides system health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// PartitionHealth describes the last warm runs of one cache partition.
type PartitionHealth struct {
	Partition   string       `json:"partition"`
	Status      SystemStatus `json:"status"`
	Runs        int          `json:"runs"`
	LastRun     time.Time    `json:"last_run"`
	LastSuccess time.Time    `json:"last_success,omitzero"`
	Complete    bool         `json:"complete"`
	LastError   string       `json:"last_error,omitempty"`
}

// ProviderHealth describes one remote provider.
type ProviderHealth struct {
	Name      string        `json:"name"`
	Status    SystemStatus  `json:"status"`
	Available bool          `json:"available"`
	ErrorRate float64       `json:"error_rate"`
	Latency   time.Duration `json:"latency"`
	Monitor   any           `json:"monitor,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Partitions   map[string]PartitionHealth `json:"partitions"`
	Providers    map[string]ProviderHealth  `json:"providers"`
}

func worst(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
