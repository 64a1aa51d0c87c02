// Package session owns per-user game state and runs the swipe pipeline:
// score, update stats, streak, level, achievements, daily challenge,
// challenge run, then persist through the outbox and publish events.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/deck"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/engagement"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/macro"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/scoring"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/metrics"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/outbox"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

// DefaultDailySuperLikes is the super-like allowance refilled each day.
const DefaultDailySuperLikes = 3

// Deps are the collaborators a Manager wires into every session.
type Deps struct {
	Store     domain.GameStore
	Outbox    *outbox.Outbox // nil builds one with default retry settings
	Macro     *macro.Provider
	Source    domain.CandidateSource
	Publisher domain.EventPublisher // nil discards events
}

// Config holds game rules that vary by deployment.
type Config struct {
	Location        *time.Location // day boundaries; nil means UTC
	DailySuperLikes int            // 0 means DefaultDailySuperLikes
	Now             func() time.Time
}

// Manager holds one GameSession per user.
type Manager struct {
	store        domain.GameStore
	outbox       *outbox.Outbox
	macro        *macro.Provider
	scorer       *scoring.Scorer
	source       domain.CandidateSource
	pub          domain.EventPublisher
	achievements *engagement.AchievementService
	challenges   *engagement.ChallengeService
	streaks      *engagement.StreakService

	loc       *time.Location
	allowance int
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*GameSession
}

// NewManager validates deps and returns a ready manager.
func NewManager(deps Deps, cfg Config) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("session: %w: store is required", domain.ErrInvalidInput)
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("session: %w: candidate source is required", domain.ErrInvalidInput)
	}
	if deps.Macro == nil {
		deps.Macro = macro.Builtin()
	}
	if deps.Publisher == nil {
		deps.Publisher = domain.NopPublisher{}
	}
	if deps.Outbox == nil {
		deps.Outbox = outbox.New(outbox.DefaultRetryConfig(), deps.Publisher)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DailySuperLikes <= 0 {
		cfg.DailySuperLikes = DefaultDailySuperLikes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{
		store:        deps.Store,
		outbox:       deps.Outbox,
		macro:        deps.Macro,
		scorer:       scoring.NewScorer(deps.Macro),
		source:       deps.Source,
		pub:          deps.Publisher,
		achievements: engagement.NewAchievementService(deps.Store),
		challenges:   engagement.NewChallengeService(deps.Store, nil),
		streaks:      engagement.NewStreakService(deps.Store),
		loc:          cfg.Location,
		allowance:    cfg.DailySuperLikes,
		now:          cfg.Now,
		sessions:     make(map[string]*GameSession),
	}, nil
}

// Now returns the current time in the game's location.
func (m *Manager) Now() time.Time {
	return m.now().In(m.loc)
}

// Location returns the location used for day boundaries.
func (m *Manager) Location() *time.Location { return m.loc }

// Outbox returns the persistence outbox.
func (m *Manager) Outbox() *outbox.Outbox { return m.outbox }

// Macro returns the scenario provider.
func (m *Manager) Macro() *macro.Provider { return m.macro }

// Start opens (or replaces) the user's session in mode with a fresh deck.
// Persisted stats, streak, achievements and today's challenge are loaded.
func (m *Manager) Start(ctx context.Context, userID string, mode domain.GameMode) (*GameSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	mode, err := domain.ParseGameMode(string(mode))
	if err != nil {
		return nil, err
	}

	candidates, err := m.source.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	d, err := deck.New(candidates)
	if err != nil {
		return nil, err
	}

	now := m.Now()
	stats, err := m.loadStats(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	log, err := m.store.ListInteractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	stats.CurrentStreak = engagement.CurrentStreak(log, now)
	stats.LongestStreak = max(stats.LongestStreak, engagement.LongestStreak(log, m.loc))

	// Catch up unlocks whose writes were lost before the last shutdown.
	if _, err := m.achievements.CheckAndUnlock(ctx, stats, now); err != nil {
		logger.Warn("[session] achievement reconcile for %s: %v", userID, err)
	}
	unlocked, err := m.achievements.UnlockedSet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}

	challenge, err := m.challenges.ForDate(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	s := &GameSession{
		m:         m,
		userID:    userID,
		mode:      mode,
		deck:      d,
		stats:     stats,
		challenge: challenge,
		unlocked:  unlocked,
		activity:  compactActivity(log, m.loc),
		startedAt: now,
	}
	if mode == domain.ModeChallengeRun {
		s.run = scoring.NewChallengeRun()
	}

	m.mu.Lock()
	m.sessions[userID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SessionsActive.Set(float64(n))

	logger.Info("[session] %s started %s with %d candidates", userID, mode, d.Len())
	return s, nil
}

func (m *Manager) loadStats(ctx context.Context, userID string, now time.Time) (domain.GameStats, error) {
	stored, err := m.store.LoadStats(ctx, userID)
	if err != nil {
		return domain.GameStats{}, fmt.Errorf("load stats: %w", err)
	}
	if stored == nil {
		return domain.GameStats{
			UserID:              userID,
			Level:               1,
			SuperLikesRemaining: m.allowance,
			AllowanceDay:        domain.DayKey(now),
		}, nil
	}
	stats := *stored
	if stats.Level < 1 {
		stats.Level = engagement.LevelForXP(stats.TotalXP)
	}
	if stats.AllowanceDay != domain.DayKey(now) {
		stats.SuperLikesRemaining = m.allowance
		stats.AllowanceDay = domain.DayKey(now)
	}
	return stats, nil
}

// Get returns the user's open session.
func (m *Manager) Get(userID string) (*GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, userID)
	}
	return s, nil
}

// End closes the user's session. Persisted state is unaffected.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	delete(m.sessions, userID)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.SessionsActive.Set(float64(n))
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Rollover applies the day boundary to every open session: the super-like
// allowance refills and a new daily challenge is selected.
func (m *Manager) Rollover(ctx context.Context) int {
	m.mu.RLock()
	open := make([]*GameSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()

	now := m.Now()
	rolled := 0
	for _, s := range open {
		s.mu.Lock()
		if s.rollover(ctx, now) {
			rolled++
		}
		s.mu.Unlock()
	}
	if rolled > 0 {
		logger.Info("[session] day rollover applied to %d sessions", rolled)
	}
	return rolled
}

// ─── Read models ────────────────────────────────────────────────────────────

// ScenarioForDate returns the macro scenario active on date's day in the
// game's location.
func (m *Manager) ScenarioForDate(date time.Time) domain.MacroScenario {
	return m.macro.ScenarioForDate(date.In(m.loc))
}

// Leaderboard returns the top users by XP.
func (m *Manager) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return m.store.Leaderboard(ctx, limit)
}

// AchievementStatus pairs a definition with the user's unlock state.
type AchievementStatus struct {
	domain.AchievementDef
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Achievements lists every definition with the user's unlock state.
func (m *Manager) Achievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	unlocked, err := m.achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	at := make(map[string]time.Time, len(unlocked))
	for _, u := range unlocked {
		at[u.ID] = u.UnlockedAt
	}

	defs := m.achievements.Definitions()
	out := make([]AchievementStatus, len(defs))
	for i, def := range defs {
		out[i] = AchievementStatus{AchievementDef: def}
		if t, ok := at[def.ID]; ok {
			out[i].Unlocked = true
			out[i].UnlockedAt = &t
		}
	}
	return out, nil
}

// Profile is a user's persisted progress, readable without a session.
type Profile struct {
	Stats     domain.GameStats      `json:"stats"`
	Level     domain.UserLevel      `json:"level"`
	Longest   int                   `json:"longest_streak"`
	Challenge domain.DailyChallenge `json:"challenge"`
	Unlocked  int                   `json:"achievements_unlocked"`
	Total     int                   `json:"achievements_total"`
}

// Profile loads a user's progress from the store.
func (m *Manager) Profile(ctx context.Context, userID string) (Profile, error) {
	now := m.Now()
	stats, err := m.loadStats(ctx, userID, now)
	if err != nil {
		return Profile{}, err
	}
	current, longest, err := m.streaks.Streak(ctx, userID, now)
	if err != nil {
		return Profile{}, err
	}
	stats.CurrentStreak = current

	ch, err := m.challenges.ForDate(ctx, userID, now)
	if err != nil {
		return Profile{}, err
	}
	unlocked, err := m.achievements.UnlockedSet(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Stats:     stats,
		Level:     engagement.LevelProgress(stats.TotalXP),
		Longest:   max(longest, stats.LongestStreak),
		Challenge: ch,
		Unlocked:  len(unlocked),
		Total:     m.achievements.TotalCount(),
	}, nil
}

// compactActivity keeps the first log entry of each active day; streak
// math only needs day membership.
func compactActivity(log []domain.InteractionLogEntry, loc *time.Location) []domain.InteractionLogEntry {
	seen := make(map[string]bool)
	var out []domain.InteractionLogEntry
	for _, e := range log {
		day := domain.DayKey(e.Timestamp.In(loc))
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, e)
	}
	return out
}
