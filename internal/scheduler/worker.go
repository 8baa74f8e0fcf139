package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/richxcame/fleet-engine/internal/forecast"
	"github.com/richxcame/fleet-engine/internal/rebalancing"
	"go.uber.org/zap"
)

// defaultInterval is used when the configured interval is not positive
const defaultInterval = 5 * time.Minute

// Reconciler fills in actual demand for forecast hours that have ended
type Reconciler interface {
	ReconcilePending(ctx context.Context, now time.Time) (int, error)
}

// Sweeper opens rebalancing tasks for out-of-balance stations
type Sweeper interface {
	SyncAll(ctx context.Context) (int, error)
}

var (
	_ Reconciler = (*forecast.Service)(nil)
	_ Sweeper    = (*rebalancing.Service)(nil)
)

// Worker runs forecast reconciliation and the rebalancing sweep on a ticker
type Worker struct {
	reconciler Reconciler
	sweeper    Sweeper
	logger     *zap.Logger
	interval   time.Duration
	now        func() time.Time
	done       chan struct{}
	stopOnce   sync.Once
}

// NewWorker creates a new scheduler worker. sweeper may be nil to disable
// the rebalancing sweep.
func NewWorker(reconciler Reconciler, sweeper Sweeper, logger *zap.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		reconciler: reconciler,
		sweeper:    sweeper,
		logger:     logger,
		interval:   interval,
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// Start runs a pass immediately and then on every tick until ctx is done or
// Stop is called
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting scheduler worker",
		zap.Duration("interval", w.interval),
		zap.Bool("sweep_enabled", w.sweeper != nil),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			w.logger.Info("Scheduler worker stopped")
			return
		case <-w.done:
			w.logger.Info("Scheduler worker shutdown requested")
			return
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Result reports what one pass did
type Result struct {
	Reconciled   int
	TasksCreated int
}

// RunOnce reconciles forecasts and then sweeps stations. Failures are logged
// and do not stop the other step.
func (w *Worker) RunOnce(ctx context.Context) Result {
	var res Result

	reconciled, err := w.reconciler.ReconcilePending(ctx, w.now())
	if err != nil {
		w.logger.Error("Failed to reconcile forecasts", zap.Error(err))
	} else if reconciled > 0 {
		w.logger.Info("Reconciled forecasts", zap.Int("count", reconciled))
	}
	res.Reconciled = reconciled

	if w.sweeper == nil {
		return res
	}

	created, err := w.sweeper.SyncAll(ctx)
	if err != nil {
		w.logger.Error("Failed to sweep stations", zap.Int("tasks_created", created), zap.Error(err))
	} else if created > 0 {
		w.logger.Info("Opened rebalancing tasks", zap.Int("count", created))
	} else {
		w.logger.Debug("No stations need rebalancing")
	}
	res.TasksCreated = created

	return res
}
