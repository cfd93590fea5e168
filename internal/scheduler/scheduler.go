package scheduler

import (
	"context"
	"time"

	"competitoriq-engine/internal/logger"

	"go.uber.org/zap"
)

type Task func(ctx context.Context) error

// Every runs the task immediately and then on each tick until the context
// is done.
func Every(ctx context.Context, interval time.Duration, name string, log logger.Logger, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	go func() {
		if err := task(ctx); err != nil {
			log.Warn("scheduled task failed", zap.String("task", name), zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				log.Warn("scheduled task failed", zap.String("task", name), zap.Error(err))
			}
		}
	}
}

// EveryDynamic re-reads the interval before each wait, so a cadence change
// (say, the caller switching from daily to weekly digests) takes effect
// without a restart.
func EveryDynamic(ctx context.Context, interval func() time.Duration, name string, log logger.Logger, task Task) {
	for {
		d := interval()
		if d <= 0 {
			d = 24 * time.Hour
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
			if err := task(ctx); err != nil {
				log.Warn("scheduled task failed", zap.String("task", name), zap.Error(err))
			}
		}
	}
}
