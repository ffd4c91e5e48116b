package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reclaimBatch = 16

// Reclaimer periodically adopts entries left pending in the consumer's
// group by consumers that died before acknowledging, and runs them through
// the same processing path. Combined with the dedupe ledger this keeps
// redelivery at least once without double application.
type Reclaimer struct {
	consumer *Consumer
	minIdle  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewReclaimer schedules a pending-entry sweep every interval. An interval
// of zero disables the reclaimer entirely.
func NewReclaimer(consumer *Consumer, interval, minIdle time.Duration, logger *zap.Logger) *Reclaimer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if minIdle <= 0 {
		minIdle = time.Minute
	}

	r := &Reclaimer{
		consumer: consumer,
		minIdle:  minIdle,
		logger:   logger,
	}

	if interval > 0 {
		r.cron = cron.New()
		schedule := fmt.Sprintf("@every %s", interval)
		_, _ = r.cron.AddFunc(schedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			r.Sweep(ctx)
		})
	}

	return r
}

// Start launches the cron scheduler. A no-op when disabled.
func (r *Reclaimer) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("pending-entry reclaimer started",
		zap.String("group", r.consumer.opts.Group),
		zap.Duration("min_idle", r.minIdle),
	)
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (r *Reclaimer) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("pending-entry reclaimer stopped")
}

// Sweep claims and reprocesses pending entries older than minIdle. Entries
// already recorded in the dedupe ledger are acknowledged without reapplying.
func (r *Reclaimer) Sweep(ctx context.Context) {
	opts := r.consumer.opts
	start := "0-0"

	for {
		msgs, next, err := r.consumer.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   opts.Stream,
			Group:    opts.Group,
			Consumer: opts.Name,
			MinIdle:  r.minIdle,
			Start:    start,
			Count:    reclaimBatch,
		}).Result()
		if err != nil {
			r.logger.Warn("pending-entry claim failed", zap.String("group", opts.Group), zap.Error(err))
			return
		}

		for _, msg := range msgs {
			r.logger.Info("reclaimed pending entry",
				zap.String("group", opts.Group),
				zap.String("entry_id", msg.ID),
			)
			r.consumer.process(ctx, msg)
		}

		if next == "0-0" || len(msgs) == 0 {
			return
		}
		start = next
	}
}
