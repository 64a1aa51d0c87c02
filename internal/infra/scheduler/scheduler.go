// Package scheduler runs the daemon's periodic jobs on cron specs:
// outbox retries and the midnight day rollover.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	Spec string // cron spec with a seconds field
	Fn   func(ctx context.Context)
}

// Scheduler wraps a cron runner. Jobs receive the context given to Start
// and a job still running when its next tick fires is skipped.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	ctx  context.Context
	jobs []Job
}

// New creates a scheduler whose specs are read in loc. A nil loc means UTC.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ctx: context.Background(),
	}
}

// Register adds a job. An empty spec disables it.
func (s *Scheduler) Register(j Job) error {
	if j.Spec == "" {
		logger.Info("[scheduler] %s disabled", j.Name)
		return nil
	}
	if j.Fn == nil {
		return fmt.Errorf("register %s: nil func", j.Name)
	}
	fn := j.Fn
	if _, err := s.cron.AddFunc(j.Spec, func() {
		start := time.Now()
		fn(s.context())
		logger.Debug("[scheduler] %s finished in %s", j.Name, time.Since(start))
	}); err != nil {
		return fmt.Errorf("register %s (%q): %w", j.Name, j.Spec, err)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Jobs returns the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Start begins running jobs. ctx is handed to every job invocation.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	n := len(s.jobs)
	s.mu.Unlock()
	s.cron.Start()
	logger.Info("[scheduler] started with %d jobs", n)
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("[scheduler] stop timed out with jobs still running")
	}
	logger.Info("[scheduler] stopped")
}
