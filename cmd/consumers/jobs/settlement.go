package jobs

import (
	"context"
	"time"

	"pierre/internal/logger"
	"pierre/internal/metrics"
)

// Resettler settles payments of final reservations older than cutoff.
type Resettler interface {
	Resettle(ctx context.Context, cutoff time.Time) (int, error)
}

// SettlementJob re-drives payment capture and release for reservations
// whose settlement event was lost. Reservations changed within grace are
// left to the event consumers.
type SettlementJob struct {
	resettler Resettler
	grace     time.Duration
	now       func() time.Time
	*scheduler
}

func NewSettlementJob(resettler Resettler, schedule string, grace time.Duration) *SettlementJob {
	return &SettlementJob{
		resettler: resettler,
		grace:     grace,
		now:       time.Now,
		scheduler: newScheduler("settlement", schedule),
	}
}

// Start registers the sweep and runs it once immediately.
func (j *SettlementJob) Start(ctx context.Context) error {
	return j.start(func() { j.Run(ctx) })
}

// Stop waits for a running sweep to finish or ctx to expire.
func (j *SettlementJob) Stop(ctx context.Context) {
	j.stop(ctx)
}

// Run performs a single sweep.
func (j *SettlementJob) Run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()
	ctx = logger.ContextWithRequestID(ctx, logger.NewRequestID())

	start := time.Now()
	settled, err := j.resettler.Resettle(ctx, j.now().Add(-j.grace))
	metrics.SettlementSweep(settled, err)

	log := logger.WithContext(ctx).With("settled", settled, "duration", time.Since(start).String())
	if err != nil {
		log.Error("Payment settlement sweep failed", "error", err)
		return
	}
	if settled == 0 {
		log.Debug("No unsettled payments")
		return
	}
	log.Warn("Settled payments missed by the event consumers")
}
