// Package scheduler runs periodic jobs on fixed intervals until shutdown.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	leaseDomain "github.com/allisson/marketsync/internal/lease/domain"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the job once before the first tick.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler runs each job on its own ticker. Runs of one job never overlap:
// ticks that fire while a run is in progress are dropped.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
}

// New creates an empty Scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a job. Jobs with a non-positive interval are disabled.
func (s *Scheduler) Add(job Job) {
	if job.Interval <= 0 {
		s.logger.Info("scheduled job disabled", slog.String("job", job.Name))
		return
	}
	s.jobs = append(s.jobs, job)
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name)
	}
	return names
}

// Start blocks until ctx is done and every running job has returned.
func (s *Scheduler) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Go(func() { s.loop(ctx, job) })
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	s.logger.Info("starting scheduled job",
		slog.String("job", job.Name),
		slog.Duration("interval", job.Interval),
	)

	if job.RunOnStart {
		s.run(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping scheduled job", slog.String("job", job.Name))
			return
		case <-ticker.C:
			s.run(ctx, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := job.Run(ctx)
	switch {
	case err == nil:
		s.logger.Debug("scheduled job finished",
			slog.String("job", job.Name),
			slog.Duration("duration", time.Since(start)),
		)
	case errors.Is(err, leaseDomain.ErrRunInProgress):
		s.logger.Info("scheduled job skipped, another instance is running it", slog.String("job", job.Name))
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		s.logger.Info("scheduled job interrupted by shutdown", slog.String("job", job.Name))
	default:
		s.logger.Error("scheduled job failed", slog.String("job", job.Name), slog.Any("error", err))
	}
}
