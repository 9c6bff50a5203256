package scheduler

import (
	"context"
	"time"

	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/go-co-op/gocron/v2"
)

const minInterval = time.Second

// PriceRefresher is satisfied by *pricefeed.Feed.
type PriceRefresher interface {
	Refresh(ctx context.Context) error
}

// WalletSyncer is satisfied by *network.Guard.
type WalletSyncer interface {
	Sync(ctx context.Context) error
}

// Poller is satisfied by *monitor.EventMonitor.
type Poller interface {
	Poll(ctx context.Context) error
}

// runJob is a named action on a fixed interval, bounded by its own deadline.
type runJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

func newRunJob(name string, interval time.Duration, run func(ctx context.Context) error) *runJob {
	if interval < minInterval {
		interval = minInterval
	}
	return &runJob{name: name, interval: interval, run: run}
}

func (j *runJob) GetName() string { return j.name }

func (j *runJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

func (j *runJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		logger.Warn("Job %s failed after %s: %v", j.name, time.Since(start).Round(time.Millisecond), err)
		return
	}
	logger.Debug("Job %s completed in %s", j.name, time.Since(start).Round(time.Millisecond))
}

// NewPriceRefreshJob keeps the fiat quote warm.
func NewPriceRefreshJob(feed PriceRefresher, interval time.Duration) Job {
	return newRunJob("price_refresh", interval, feed.Refresh)
}

// NewWalletSyncJob polls the wallet for account and chain changes the
// provider cannot push.
func NewWalletSyncJob(guard WalletSyncer, interval time.Duration) Job {
	return newRunJob("wallet_sync", interval, guard.Sync)
}

// NewActivityIndexJob indexes new contract events.
func NewActivityIndexJob(m Poller, interval time.Duration) Job {
	return newRunJob("activity_index", interval, m.Poll)
}
