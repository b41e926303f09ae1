package jobs

import (
	"context"
	"time"

	"pierre/internal/logger"
	"pierre/internal/metrics"
)

// sweepTimeout bounds a single sweep.
const sweepTimeout = 5 * time.Minute

// Expirer cancels confirmed reservations of events that are over.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpiryJob runs the expiry sweep on a cron schedule.
type ExpiryJob struct {
	expirer Expirer
	*scheduler
}

func NewExpiryJob(expirer Expirer, schedule string) *ExpiryJob {
	return &ExpiryJob{
		expirer:   expirer,
		scheduler: newScheduler("expiry", schedule),
	}
}

// Start registers the sweep and runs it once immediately.
func (j *ExpiryJob) Start(ctx context.Context) error {
	return j.start(func() { j.Run(ctx) })
}

// Stop waits for a running sweep to finish or ctx to expire.
func (j *ExpiryJob) Stop(ctx context.Context) {
	j.stop(ctx)
}

// Run performs a single sweep.
func (j *ExpiryJob) Run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()
	ctx = logger.ContextWithRequestID(ctx, logger.NewRequestID())

	start := time.Now()
	expired, err := j.expirer.ExpireOverdue(ctx)
	metrics.ExpirySweep(expired, err)

	log := logger.WithContext(ctx).With("expired", expired, "duration", time.Since(start).String())
	if err != nil {
		log.Error("Reservation expiry sweep failed", "error", err)
		return
	}
	if expired == 0 {
		log.Debug("No overdue reservations")
		return
	}
	log.Info("Expired overdue reservations")
}
