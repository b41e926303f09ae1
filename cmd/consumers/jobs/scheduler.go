package jobs

import (
	"context"
	"log/slog"

	"pierre/internal/logger"

	"github.com/robfig/cron/v3"
)

// scheduler runs one job on a cron schedule. Overlapping runs are skipped,
// including the run made at start.
type scheduler struct {
	name     string
	schedule string
	log      cronLogger
	cron     *cron.Cron
}

func newScheduler(name, schedule string) *scheduler {
	log := cronLogger{logger.WithFields("job", name)}
	return &scheduler{
		name:     name,
		schedule: schedule,
		log:      log,
		cron:     cron.New(cron.WithLogger(log)),
	}
}

// start registers run and fires it once right away through the same chain,
// so the first tick cannot overlap it.
func (s *scheduler) start(run func()) error {
	job := cron.NewChain(cron.Recover(s.log), cron.SkipIfStillRunning(s.log)).Then(cron.FuncJob(run))
	if _, err := s.cron.AddJob(s.schedule, job); err != nil {
		return err
	}

	slog.Info("Starting scheduled job", "job", s.name, "schedule", s.schedule)
	go job.Run()
	s.cron.Start()
	return nil
}

// stop waits for a running job to finish or ctx to expire.
func (s *scheduler) stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		slog.Info("Scheduled job stopped", "job", s.name)
	case <-ctx.Done():
		slog.Warn("Scheduled job did not stop in time", "job", s.name)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
