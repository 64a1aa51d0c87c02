// Package outbox decouples scoring from durability. Writes are attempted
// immediately; failures are parked in a min-heap ordered by next retry time
// and retried with exponential backoff.
//
// Writes sharing a Key coalesce: a newer write replaces a pending one, so a
// stale stats snapshot never lands after a fresher one.
package outbox

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/metrics"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

// RetryConfig configures the outbox behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum retry attempts before the write is dropped
	BaseDelay  time.Duration // Initial backoff delay (doubles each retry)
	MaxDelay   time.Duration // Cap on backoff delay
	MaxPending int           // Deferred writes allowed before Submit fails
	Timeout    time.Duration // Per-attempt deadline; 0 means none
}

// DefaultRetryConfig returns production retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 8,
		BaseDelay:  1 * time.Second,
		MaxDelay:   2 * time.Minute,
		MaxPending: 10000,
		Timeout:    5 * time.Second,
	}
}

// Write is one durable side effect.
type Write struct {
	Key    string // coalescing key, e.g. "stats:alice"
	Op     string // operation label for logs and metrics
	UserID string
	Fn     func(ctx context.Context) error
}

// Entry tracks a deferred write's retry state.
type Entry struct {
	ID        string
	Key       string
	Op        string
	UserID    string
	Attempt   int       // Retries scheduled so far (1 = first retry)
	NextRetry time.Time // Earliest time this can be retried
	FailedAt  time.Time // When the last failure occurred
	Error     string    // Last failure reason

	fn       func(ctx context.Context) error
	index    int  // heap position, -1 while in flight
	inflight bool // popped by Flush and running
	replaced bool // a newer write arrived while in flight
}

// Outbox schedules retries of failed writes.
type Outbox struct {
	mu      sync.Mutex
	flushMu sync.Mutex
	config  RetryConfig
	queue   retryHeap
	byKey   map[string]*Entry
	pub     domain.EventPublisher
	now     func() time.Time

	// Stats
	totalDeferred  int64
	totalRetries   int64
	totalExhausted int64
	totalCoalesced int64
}

// New creates an outbox. pub may be nil.
func New(cfg RetryConfig, pub domain.EventPublisher) *Outbox {
	if pub == nil {
		pub = domain.NopPublisher{}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRetryConfig().MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &Outbox{
		config: cfg,
		byKey:  make(map[string]*Entry),
		pub:    pub,
		now:    time.Now,
	}
}

// Submit runs w now unless a write with the same key is already deferred,
// in which case w replaces it. A failed write is deferred for retry.
// Submit returns an error only when the write could be neither applied nor
// deferred.
func (o *Outbox) Submit(ctx context.Context, w Write) error {
	if w.Fn == nil {
		return fmt.Errorf("outbox submit %s: %w", w.Op, domain.ErrInvalidInput)
	}
	if w.Key == "" {
		w.Key = uuid.NewString()
	}

	o.mu.Lock()
	if e, ok := o.byKey[w.Key]; ok {
		e.fn = w.Fn
		if e.inflight {
			e.replaced = true
		}
		o.totalCoalesced++
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	err := o.run(ctx, w.Op, w.Fn)
	if err == nil {
		return nil
	}
	return o.park(w, err)
}

func (o *Outbox) park(w Write, cause error) error {
	o.mu.Lock()
	if o.config.MaxPending > 0 && len(o.byKey) >= o.config.MaxPending {
		o.totalExhausted++
		o.mu.Unlock()
		metrics.OutboxDropped.WithLabelValues(w.Op).Inc()
		logger.Error("[outbox] %s for %s dropped, queue full: %v", w.Op, w.UserID, cause)
		return fmt.Errorf("%s: %w (cause: %v)", w.Op, domain.ErrOutboxFull, cause)
	}
	if e, ok := o.byKey[w.Key]; ok {
		// Another writer deferred the same key while we were running.
		e.fn = w.Fn
		o.totalCoalesced++
		o.mu.Unlock()
		return nil
	}

	now := o.now()
	e := &Entry{
		ID:        uuid.NewString(),
		Key:       w.Key,
		Op:        w.Op,
		UserID:    w.UserID,
		Attempt:   1,
		NextRetry: now.Add(o.backoff(1)),
		FailedAt:  now,
		Error:     cause.Error(),
		fn:        w.Fn,
	}
	o.byKey[e.Key] = e
	heap.Push(&o.queue, e)
	o.totalDeferred++
	pending := len(o.byKey)
	o.mu.Unlock()

	metrics.OutboxPending.Set(float64(pending))
	logger.Warn("[outbox] %s for %s deferred: %v", w.Op, w.UserID, cause)
	o.publishDeferred(e.UserID, e.Op, e.Attempt, cause)
	return nil
}

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (o *Outbox) backoff(attempt int) time.Duration {
	delay := o.config.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > o.config.MaxDelay {
			return o.config.MaxDelay
		}
	}
	return delay
}

func (o *Outbox) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

func (o *Outbox) publishDeferred(userID, op string, attempt int, cause error) {
	o.pub.Publish(domain.Event{
		Type:   domain.EventPersistenceDeferred,
		UserID: userID,
		At:     o.now(),
		Payload: domain.PersistenceDeferredPayload{
			Op:      op,
			Attempt: attempt,
			Error:   cause.Error(),
		},
	})
}

// FlushResult summarizes one Flush pass.
type FlushResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Dropped   int `json:"dropped"`
}

// Flush retries every entry whose backoff has elapsed.
func (o *Outbox) Flush(ctx context.Context) FlushResult {
	return o.flush(ctx, false)
}

// FlushAll retries every pending entry regardless of backoff. Used on
// shutdown and as the health-check recovery action.
func (o *Outbox) FlushAll(ctx context.Context) FlushResult {
	return o.flush(ctx, true)
}

func (o *Outbox) flush(ctx context.Context, force bool) FlushResult {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	var res FlushResult
	for _, e := range o.takeReady(force) {
		if ctx.Err() != nil {
			o.requeue(e)
			continue
		}
		o.mu.Lock()
		fn := e.fn
		o.mu.Unlock()

		res.Attempted++
		metrics.OutboxRetries.WithLabelValues(e.Op).Inc()
		err := o.run(ctx, e.Op, fn)

		o.mu.Lock()
		o.totalRetries++
		dropped := false
		switch {
		case e.replaced:
			// A newer write is waiting; run it on the next pass.
			e.replaced = false
			e.inflight = false
			e.NextRetry = o.now()
			heap.Push(&o.queue, e)
			if err == nil {
				res.Succeeded++
			}
		case err == nil:
			delete(o.byKey, e.Key)
			res.Succeeded++
		case e.Attempt >= o.config.MaxRetries:
			delete(o.byKey, e.Key)
			o.totalExhausted++
			res.Dropped++
			dropped = true
		default:
			e.Attempt++
			e.inflight = false
			e.FailedAt = o.now()
			e.NextRetry = e.FailedAt.Add(o.backoff(e.Attempt))
			e.Error = err.Error()
			heap.Push(&o.queue, e)
		}
		pending := len(o.byKey)
		attempt := e.Attempt
		o.mu.Unlock()
		metrics.OutboxPending.Set(float64(pending))

		switch {
		case dropped:
			metrics.OutboxDropped.WithLabelValues(e.Op).Inc()
			logger.Error("[outbox] %s for %s dropped after %d retries: %v", e.Op, e.UserID, attempt, err)
			o.publishDeferred(e.UserID, e.Op, attempt, fmt.Errorf("%w: %v", domain.ErrRetryExpired, err))
		case err != nil:
			logger.Debug("[outbox] %s for %s retry %d failed: %v", e.Op, e.UserID, attempt, err)
		}
	}
	return res
}

// takeReady pops due entries and marks them in flight. Entries stay in
// byKey so concurrent Submits coalesce into them.
func (o *Outbox) takeReady(force bool) []*Entry {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	var ready []*Entry
	for o.queue.Len() > 0 {
		next := o.queue[0]
		if !force && now.Before(next.NextRetry) {
			break
		}
		e := heap.Pop(&o.queue).(*Entry)
		e.inflight = true
		ready = append(ready, e)
	}
	return ready
}

func (o *Outbox) requeue(e *Entry) {
	o.mu.Lock()
	e.inflight = false
	e.replaced = false
	heap.Push(&o.queue, e)
	o.mu.Unlock()
}

// Len returns the number of deferred writes.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.byKey)
}

// Pending returns a snapshot of deferred entries ordered by next retry.
func (o *Outbox) Pending() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Entry, 0, len(o.queue))
	for _, e := range o.queue {
		out = append(out, Entry{
			ID: e.ID, Key: e.Key, Op: e.Op, UserID: e.UserID, Attempt: e.Attempt,
			NextRetry: e.NextRetry, FailedAt: e.FailedAt, Error: e.Error,
		})
	}
	sortByNextRetry(out)
	return out
}

// Stats holds outbox statistics.
type Stats struct {
	Pending        int   `json:"pending"`
	TotalDeferred  int64 `json:"total_deferred"`
	TotalRetries   int64 `json:"total_retries"`
	TotalExhausted int64 `json:"total_exhausted"` // Dropped after MaxRetries or queue full
	TotalCoalesced int64 `json:"total_coalesced"`
}

// Stats returns current outbox statistics.
func (o *Outbox) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		Pending:        len(o.byKey),
		TotalDeferred:  o.totalDeferred,
		TotalRetries:   o.totalRetries,
		TotalExhausted: o.totalExhausted,
		TotalCoalesced: o.totalCoalesced,
	}
}
