// Package health runs periodic checks over the game store, the persistence
// outbox and the candidate feed, and triggers recovery when one fails.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/metrics"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/outbox"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

// DefaultInterval is how often Run re-evaluates every check.
const DefaultInterval = 30 * time.Second

// checkTimeout bounds a single CheckFn call.
const checkTimeout = 10 * time.Second

// Check is one named health check. RecoverFn, when set, runs once the check has
// failed RecoverAfter times in a row (1 when zero).
type Check struct {
	Name         string
	CheckFn      func(ctx context.Context) error
	RecoverFn    func(ctx context.Context) error
	RecoverAfter int
}

// Status is the latest result of a check.
type Status struct {
	Name      string        `json:"name"`
	Healthy   bool          `json:"healthy"`
	Error     string        `json:"error,omitempty"`
	Failures  int           `json:"consecutive_failures"`
	Took      time.Duration `json:"took_ns"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Checker holds the registered checks and their last results.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses map[string]Status
	order    []string
	interval time.Duration
}

// Options selects the built-in checks. Only Store is required.
type Options struct {
	Store      domain.GameStore
	Outbox     *outbox.Outbox         // backlog check with a flush as recovery
	Feed       domain.CandidateSource // remote deck reachability
	DataDir    string                 // local store directory
	MaxBacklog int                    // deferred writes tolerated; 100 when zero
	Interval   time.Duration
}

// NewChecker builds a checker with a check per configured dependency.
func NewChecker(opts Options) *Checker {
	c := &Checker{interval: opts.Interval, statuses: make(map[string]Status)}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}

	c.Register(Check{Name: "store", CheckFn: opts.Store.Ping})
	if opts.Outbox != nil {
		c.Register(outboxCheck(opts.Outbox, opts.MaxBacklog))
	}
	if opts.Feed != nil {
		c.Register(Check{Name: "candidate_feed", CheckFn: feedCheck(opts.Feed)})
	}
	if opts.DataDir != "" {
		dir := opts.DataDir
		c.Register(Check{Name: "data_dir", CheckFn: func(context.Context) error { return checkDataDir(dir) }})
	}
	return c
}

// Register adds a check. Names must be unique; a repeated name replaces
// the earlier check.
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.checks {
		if existing.Name == check.Name {
			c.checks[i] = check
			return
		}
	}
	c.checks = append(c.checks, check)
	c.order = append(c.order, check.Name)
}

// Run evaluates every check now and then on each interval until ctx ends.
func (c *Checker) Run(ctx context.Context) {
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	c.mu.RLock()
	checks := make([]Check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	for _, check := range checks {
		s := c.evaluate(ctx, check)
		c.mu.Lock()
		c.statuses[check.Name] = s
		c.mu.Unlock()
	}
}

// evaluate runs one check and, past its failure threshold, its recovery.
func (c *Checker) evaluate(ctx context.Context, check Check) Status {
	c.mu.RLock()
	prev := c.statuses[check.Name]
	c.mu.RUnlock()

	cctx, cancel := context.WithTimeout(ctx, checkTimeout)
	start := time.Now()
	err := check.CheckFn(cctx)
	cancel()

	s := Status{Name: check.Name, Healthy: err == nil, Took: time.Since(start), CheckedAt: start}
	if err == nil {
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		if prev.Failures > 0 {
			logger.Info("[health] %s recovered after %d failed checks", check.Name, prev.Failures)
		}
		return s
	}

	s.Error = err.Error()
	s.Failures = prev.Failures + 1
	metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
	logger.Warn("[health] %s unhealthy (%d in a row): %v", check.Name, s.Failures, err)

	threshold := max(check.RecoverAfter, 1)
	if check.RecoverFn != nil && s.Failures >= threshold {
		metrics.HealthRecoveries.WithLabelValues(check.Name).Inc()
		if rerr := check.RecoverFn(ctx); rerr != nil {
			logger.Error("[health] %s recovery failed: %v", check.Name, rerr)
		}
	}
	return s
}

// Statuses returns the latest results in registration order. Checks that
// have not run yet are omitted.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Status, 0, len(c.statuses))
	for _, name := range c.order {
		if s, ok := c.statuses[name]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Status returns the latest result for one check.
func (c *Checker) Status(name string) (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.statuses[name]
	return s, ok
}

// IsHealthy reports whether every check that has run passed.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func outboxCheck(ob *outbox.Outbox, maxBacklog int) Check {
	if maxBacklog <= 0 {
		maxBacklog = 100
	}
	return Check{
		Name: "outbox",
		CheckFn: func(context.Context) error {
			if n := ob.Len(); n > maxBacklog {
				return fmt.Errorf("%d deferred writes (max %d)", n, maxBacklog)
			}
			return nil
		},
		RecoverFn: func(ctx context.Context) error {
			res := ob.FlushAll(ctx)
			logger.Info("[health] outbox flush: %d/%d written, %d dropped", res.Succeeded, res.Attempted, res.Dropped)
			return nil
		},
	}
}

var errEmptyFeed = errors.New("feed returned no candidates")

func feedCheck(src domain.CandidateSource) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		list, err := src.Candidates(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return errEmptyFeed
		}
		return nil
	}
}

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // created on first write
		}
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
