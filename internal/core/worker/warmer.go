// Package worker runs background jobs that keep the caches warm.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/indexing/metrics"
)

// Warm outcomes reported to metrics.
const (
	ResultComplete   = "complete"
	ResultIncomplete = "incomplete"
	ResultFailed     = "failed"
)

// ErrWarmInProgress is returned by RunOnce while another run holds the warmer.
var ErrWarmInProgress = errors.New("warm run already in progress")

// Warmable is the part of the query service the warmer drives.
type Warmable interface {
	SyncBlocks(ctx context.Context, network domain.Network, start, end int64) (int, error)
	SyncPrices(ctx context.Context, network domain.Network, token string, start, end int64) (bool, error)
}

// Reporter receives the outcome of every warmed partition.
type Reporter interface {
	RecordWarm(partition string, complete bool, err error)
}

// Target is one watchlist entry.
type Target struct {
	Network domain.Network
	Token   string
}

// WarmerConfig configures the warm schedule.
type WarmerConfig struct {
	Schedule string
	Lookback time.Duration
	Targets  []Target
}

// Warmer syncs block and price partitions for a watchlist over a trailing
// window on a cron schedule. Runs never overlap.
type Warmer struct {
	service  Warmable
	reporter Reporter
	config   WarmerConfig
	cron     *cron.Cron
	running  sync.Mutex
	now      func() time.Time
	log      *slog.Logger
}

// NewWarmer creates a warmer. The schedule is validated here.
func NewWarmer(service Warmable, reporter Reporter, config WarmerConfig, log *slog.Logger) (*Warmer, error) {
	if log == nil {
		log = slog.Default()
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("invalid warm schedule %q: %w", config.Schedule, err)
	}
	if config.Lookback <= 0 {
		return nil, fmt.Errorf("invalid warm lookback %s", config.Lookback)
	}
	return &Warmer{
		service:  service,
		reporter: reporter,
		config:   config,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		now:      time.Now,
		log:      log.With("component", "warmer"),
	}, nil
}

// Start schedules warm runs until ctx is cancelled. It does not block.
func (w *Warmer) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.config.Schedule, func() {
		err := w.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrWarmInProgress) {
			w.log.Warn("Warm run finished with errors", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register warm job: %w", err)
	}
	w.cron.Start()
	w.log.Info("Warmer started", "schedule", w.config.Schedule, "targets", len(w.config.Targets))
	return nil
}

// Stop stops scheduling and waits for a running job to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info("Warmer stopped")
}

// RunOnce warms every block partition, then every price partition, of the
// watchlist. Failures of one partition do not stop the others. Only one run
// executes at a time, whether scheduled or started directly.
func (w *Warmer) RunOnce(ctx context.Context) error {
	if !w.running.TryLock() {
		w.log.Info("Skipping warm run, previous run still active")
		return ErrWarmInProgress
	}
	defer w.running.Unlock()

	end := w.now().Unix()
	start := end - int64(w.config.Lookback/time.Second)

	var errs []error
	seen := make(map[domain.Network]bool)
	for _, t := range w.config.Targets {
		if seen[t.Network] {
			continue
		}
		seen[t.Network] = true

		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := w.service.SyncBlocks(ctx, t.Network, start, end)
		w.report(domain.BlockPartition(t.Network).String(), err == nil, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s blocks: %w", t.Network, err))
		}
	}

	for _, t := range w.config.Targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		partition := string(t.Network) + "/" + t.Token
		if key, err := domain.PricePartition(t.Network, t.Token); err == nil {
			partition = key.String()
		}

		complete, err := w.service.SyncPrices(ctx, t.Network, t.Token, start, end)
		w.report(partition, complete, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", partition, err))
		}
	}

	return errors.Join(errs...)
}

func (w *Warmer) report(partition string, complete bool, err error) {
	result := ResultComplete
	switch {
	case err != nil:
		result = ResultFailed
		w.log.Error("Warm failed", "partition", partition, "error", err)
	case !complete:
		result = ResultIncomplete
		w.log.Warn("Warm incomplete", "partition", partition)
	default:
		w.log.Debug("Warm complete", "partition", partition)
	}
	metrics.WarmRunsTotal.WithLabelValues(partition, result).Inc()

	if w.reporter != nil {
		w.reporter.RecordWarm(partition, complete, err)
	}
}
