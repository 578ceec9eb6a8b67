package worker

import (
	"context"
	"time"

	"pos-backoffice/internal/service"

	"go.uber.org/zap"
)

// Sweeper runs one overdue-debt pass over every tenant.
type Sweeper interface {
	CheckOverdueDebts(ctx context.Context) ([]service.OverdueTenant, error)
}

// OverdueWorker periodically sweeps tenant ledgers for overdue debts.
type OverdueWorker struct {
	sweeper  Sweeper
	logger   *zap.Logger
	interval time.Duration
}

func NewOverdueWorker(sweeper Sweeper, logger *zap.Logger, interval time.Duration) *OverdueWorker {
	return &OverdueWorker{sweeper: sweeper, logger: logger, interval: interval}
}

// Start blocks until ctx is cancelled. The first sweep runs after one
// interval, not at startup.
func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("overdue worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and logs its outcome.
func (w *OverdueWorker) RunOnce(ctx context.Context) int {
	started := time.Now()
	overdue, err := w.sweeper.CheckOverdueDebts(ctx)
	if err != nil {
		w.logger.Error("overdue sweep failed", zap.Error(err), zap.Int("notified", len(overdue)))
		return len(overdue)
	}
	w.logger.Info("overdue sweep finished",
		zap.Int("overdue_tenants", len(overdue)),
		zap.Duration("took", time.Since(started)),
	)
	return len(overdue)
}
