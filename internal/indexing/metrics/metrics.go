package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchCallsTotal tracks outbound calls per remote service and operation
	FetchCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_fetch_calls_total",
			Help: "Total number of remote fetch attempts",
		},
		[]string{"service", "operation"},
	)

	// FetchErrorsTotal tracks failed attempts by failure class
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_fetch_errors_total",
			Help: "Total number of failed remote fetch attempts",
		},
		[]string{"service", "error_type"},
	)

	// FetchLatency tracks remote call latency
	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blockprice_fetch_latency_seconds",
			Help:    "Remote fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	// RateLimitWait tracks time spent sleeping before calls
	RateLimitWait = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_rate_limit_wait_seconds_total",
			Help: "Total seconds spent waiting on the per-service call interval",
		},
		[]string{"service"},
	)

	// SnapshotWritesTotal tracks cache snapshot writes
	SnapshotWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_snapshot_writes_total",
			Help: "Total number of cache snapshot writes",
		},
		[]string{"partition", "result"},
	)

	// CacheEntries tracks the resident size of each partition
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blockprice_cache_entries",
			Help: "Number of entries in a cache partition",
		},
		[]string{"partition"},
	)

	// CacheCorruptTotal tracks snapshots discarded as unreadable
	CacheCorruptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_cache_corrupt_total",
			Help: "Total number of snapshots discarded as corrupt",
		},
		[]string{"partition"},
	)

	// BlocksSynced tracks block timestamps fetched remotely
	BlocksSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_blocks_synced_total",
			Help: "Total number of block timestamps fetched",
		},
		[]string{"network"},
	)

	// BlocksSkipped tracks blocks fast-forwarded from cache
	BlocksSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_blocks_skipped_total",
			Help: "Total number of cached blocks skipped without a remote call",
		},
		[]string{"network"},
	)

	// GapsFilled tracks dense price range fetches
	GapsFilled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_price_gaps_filled_total",
			Help: "Total number of price gaps filled with ranged fetches",
		},
		[]string{"network", "result"},
	)

	// DegradedPriceSyncs tracks price syncs that fell back to cached data
	DegradedPriceSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_price_sync_degraded_total",
			Help: "Total number of price syncs completed from cached data only",
		},
		[]string{"network"},
	)

	// DBConnectionPoolUsage tracks the database connection pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "blockprice_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)

	// WarmRunsTotal tracks scheduled warm jobs by outcome
	WarmRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockprice_warm_runs_total",
			Help: "Total number of scheduled cache warm runs",
		},
		[]string{"partition", "result"},
	)
)
