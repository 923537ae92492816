package gitstatus

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler wraps a gocron scheduler running the periodic refresh job.
type Scheduler struct {
	scheduler gocron.Scheduler
	job       gocron.Job
}

// NewScheduler starts a job calling tick every interval, the first call
// after initialDelay. tick runs on a gocron goroutine; overlapping ticks are
// skipped.
func NewScheduler(initialDelay, interval time.Duration, tick func()) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid refresh interval %s", interval)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	startAt := gocron.WithStartImmediately()
	if initialDelay > 0 {
		startAt = gocron.WithStartDateTime(time.Now().Add(initialDelay))
	}

	job, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(tick),
		gocron.WithName("git-status-refresh"),
		gocron.WithStartAt(startAt),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create refresh job: %w", err)
	}

	s.Start()
	return &Scheduler{scheduler: s, job: job}, nil
}

// NextRun returns when the refresh job fires next.
func (s *Scheduler) NextRun() (time.Time, error) {
	return s.job.NextRun()
}

// Stop shuts the scheduler down. No tick starts after Stop returns.
func (s *Scheduler) Stop() error {
	if s == nil || s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}
