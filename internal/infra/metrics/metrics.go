// Package metrics provides Prometheus metrics for the pilot game engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pilot"

// ─── Swipes ─────────────────────────────────────────────────────────────────

// SwipesTotal counts recorded swipes by action and game mode.
var SwipesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "swipes_total",
	Help:      "Total swipes recorded.",
}, []string{"action", "mode"})

// SwipesRejected counts swipes refused before scoring.
var SwipesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "swipes_rejected_total",
	Help:      "Swipes rejected by validation.",
}, []string{"reason"})

// XPAwarded tracks XP granted per mode. Negative swipes are recorded as
// observed deltas in SwipeXP, not here.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "xp_awarded_total",
	Help:      "Total positive XP awarded.",
}, []string{"mode"})

// SwipeXP is the distribution of per-swipe XP deltas.
var SwipeXP = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "swipe_xp_delta",
	Help:      "XP delta produced by a single swipe.",
	Buckets:   []float64{-10, -5, 0, 5, 10, 15, 20, 30, 45},
})

// SwipeLatency tracks time spent handling one swipe, persistence included.
var SwipeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "swipe_latency_seconds",
	Help:      "Swipe handling duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
})

// ─── Sessions ───────────────────────────────────────────────────────────────

// SessionsActive tracks open game sessions.
var SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "sessions_active",
	Help:      "Number of open game sessions.",
})

// ─── Progression ────────────────────────────────────────────────────────────

// AchievementsUnlocked counts first-time unlocks by achievement id.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "achievements_unlocked_total",
	Help:      "Achievements unlocked.",
}, []string{"achievement"})

// ChallengesCompleted counts completed daily challenges by type.
var ChallengesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "challenges_completed_total",
	Help:      "Daily challenges completed.",
}, []string{"type"})

// LevelUps counts level transitions.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "level_ups_total",
	Help:      "Total level-ups.",
})

// ChallengeRunScore is the distribution of finished challenge-run scores.
var ChallengeRunScore = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "challenge_run_score",
	Help:      "Score of finished challenge runs.",
	Buckets:   prometheus.LinearBuckets(0, 10, 11),
})

// ─── Persistence ────────────────────────────────────────────────────────────

// StoreLatency tracks GameStore call duration by operation.
var StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "store_latency_seconds",
	Help:      "GameStore call duration in seconds.",
	Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
}, []string{"op"})

// OutboxPending tracks writes waiting for retry.
var OutboxPending = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "outbox_pending",
	Help:      "Deferred writes waiting for retry.",
})

// OutboxRetries counts retry attempts by operation.
var OutboxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "outbox_retries_total",
	Help:      "Deferred write retry attempts.",
}, []string{"op"})

// OutboxDropped counts writes abandoned after exhausting retries.
var OutboxDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "outbox_dropped_total",
	Help:      "Deferred writes dropped after max retries.",
}, []string{"op"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "http_requests_total",
	Help:      "API requests by route and status.",
}, []string{"route", "status"})

// EventSubscribers tracks connected websocket event listeners.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "event_subscribers",
	Help:      "Connected websocket event subscribers.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
