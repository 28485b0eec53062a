package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "onevents/internal/log"
)

// Job is one rebuild. Its error is logged; the schedule keeps running.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron schedule, never two at once.
type Scheduler struct {
	cron *cron.Cron
	spec string
	job  Job

	mu      sync.Mutex
	running bool
}

// New parses spec (five fields, evaluated in loc).
func New(spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		spec: spec,
		job:  job,
	}, nil
}

// Run starts the schedule and blocks until ctx is cancelled. Rebuilds in
// flight are waited for before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.trigger(ctx) }); err != nil {
		return fmt.Errorf("add rebuild job: %w", err)
	}

	s.cron.Start()
	appLog.Info("scheduler started", "spec", s.spec)

	<-ctx.Done()

	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
	return nil
}

// Next reports when the job fires next after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, err := cron.ParseStandard(s.spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t.In(s.cron.Location()))
}

func (s *Scheduler) trigger(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		appLog.Info("previous rebuild still running, skipped")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if err := s.job(ctx); err != nil {
		appLog.Error("scheduled rebuild failed", err)
	}
}
