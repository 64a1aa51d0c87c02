package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/deck"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/engagement"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/scoring"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/metrics"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/outbox"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/logger"
)

// GameSession is one user's in-progress game. It owns the deck, the stats
// snapshot, today's challenge and the optional challenge run. All methods
// are safe for concurrent use.
type GameSession struct {
	m *Manager

	mu        sync.Mutex
	userID    string
	mode      domain.GameMode
	deck      *deck.Deck
	stats     domain.GameStats
	challenge domain.DailyChallenge
	run       *scoring.ChallengeRun // challenge-run mode only
	unlocked  map[string]bool
	activity  []domain.InteractionLogEntry // one entry per active day
	startedAt time.Time
}

// SwipeInput is one user decision plus the mode UI state that goes with it.
type SwipeInput struct {
	CandidateID string             // empty means the card under the cursor
	Action      domain.SwipeAction
	ThesisCount int                // thesis-builder: tags selected
	Horizon     domain.Horizon     // time-horizon: chosen horizon
}

// SwipeResult is everything that changed because of one swipe.
type SwipeResult struct {
	Candidate          domain.Candidate          `json:"candidate"`
	Action             domain.SwipeAction        `json:"action"`
	Score              scoring.Score             `json:"score"`
	XPDelta            int64                     `json:"xp_delta"` // applied change incl. rewards
	Scenario           string                    `json:"scenario"`
	Stats              domain.GameStats          `json:"stats"`
	Level              domain.UserLevel          `json:"level"`
	LevelUp            *domain.LevelUpPayload    `json:"level_up,omitempty"`
	Challenge          domain.DailyChallenge     `json:"challenge"`
	ChallengeCompleted bool                      `json:"challenge_completed"`
	Achievements       []domain.AchievementDef   `json:"achievements,omitempty"`
	Run                *RunState                 `json:"run,omitempty"`
	RunResult          *scoring.RunResult        `json:"run_result,omitempty"`
	Deck               deck.Snapshot             `json:"deck"`
}

// RunState is the progress of a challenge run.
type RunState struct {
	Swipes    int  `json:"swipes"`
	Remaining int  `json:"remaining"`
	Score     int  `json:"score"`
	Finished  bool `json:"finished"`
}

// State is a read-only view of the session.
type State struct {
	UserID    string                `json:"user_id"`
	Mode      domain.GameMode       `json:"mode"`
	Scenario  domain.MacroScenario  `json:"scenario"`
	Deck      deck.Snapshot         `json:"deck"`
	Stats     domain.GameStats      `json:"stats"`
	Level     domain.UserLevel      `json:"level"`
	Challenge domain.DailyChallenge `json:"challenge"`
	Run       *RunState             `json:"run,omitempty"`
	StartedAt time.Time             `json:"started_at"`
}

// UserID returns the session owner.
func (s *GameSession) UserID() string { return s.userID }

// Mode returns the session's game mode.
func (s *GameSession) Mode() domain.GameMode { return s.mode }

// Swipe runs the full pipeline for one decision. In-memory state is updated
// first; persistence goes through the outbox and never rolls it back.
func (s *GameSession) Swipe(ctx context.Context, in SwipeInput) (SwipeResult, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	action, err := domain.ParseSwipeAction(string(in.Action))
	if err != nil {
		metrics.SwipesRejected.WithLabelValues("invalid_action").Inc()
		return SwipeResult{}, err
	}
	horizon, err := domain.ParseHorizon(string(in.Horizon))
	if err != nil {
		metrics.SwipesRejected.WithLabelValues("invalid_horizon").Inc()
		return SwipeResult{}, err
	}

	now := s.m.Now()
	s.rollover(ctx, now)

	c, err := s.target(in.CandidateID)
	if err != nil {
		metrics.SwipesRejected.WithLabelValues("candidate").Inc()
		return SwipeResult{}, err
	}
	// One scored decision per candidate per round; Reset starts a new round.
	if s.deck.IsSwiped(c.ID) {
		metrics.SwipesRejected.WithLabelValues("already_swiped").Inc()
		return SwipeResult{}, fmt.Errorf("%w: %s", domain.ErrAlreadySwiped, c.ID)
	}
	if action == domain.ActionSuperLike && s.stats.SuperLikesRemaining <= 0 {
		metrics.SwipesRejected.WithLabelValues("no_super_likes").Inc()
		return SwipeResult{}, domain.ErrNoSuperLikes
	}
	if s.run != nil && s.run.Finished() {
		metrics.SwipesRejected.WithLabelValues("run_finished").Inc()
		return SwipeResult{}, domain.ErrRunFinished
	}

	scenario := s.m.macro.ScenarioForDate(now)
	score, err := s.m.scorer.Score(action, s.mode, c, scoring.ModeState{
		ScenarioID:          scenario.ID,
		SelectedThesisCount: in.ThesisCount,
		Horizon:             horizon,
	})
	if err != nil {
		return SwipeResult{}, err
	}
	if err := s.deck.RecordSwipe(c.ID, action); err != nil {
		return SwipeResult{}, err
	}

	// ── Stats ──
	before := s.stats
	s.countAction(action)
	s.addXP(score.TotalXP)

	entry := domain.InteractionLogEntry{
		ID:          uuid.NewString(),
		UserID:      s.userID,
		CandidateID: c.ID,
		Action:      action,
		Mode:        s.mode,
		XPDelta:     score.TotalXP,
		Timestamp:   now,
	}
	s.recordActivity(entry)
	s.stats.CurrentStreak = engagement.CurrentStreak(s.activity, now)
	s.stats.LongestStreak = max(s.stats.LongestStreak, s.stats.CurrentStreak)

	res := SwipeResult{Candidate: c, Action: action, Score: score, Scenario: scenario.ID}
	var events []domain.Event
	events = append(events, s.event(now, domain.EventSwipeScored, domain.SwipeScoredPayload{
		CandidateID: c.ID,
		Action:      action,
		BaseXP:      score.BaseXP,
		ModeBonus:   score.ModeBonus,
		TotalXP:     score.TotalXP,
	}))

	// ── Challenge run ──
	if s.run != nil {
		result, done, err := s.run.Record(c, action)
		if err != nil {
			return SwipeResult{}, err
		}
		if done {
			s.addXP(result.RewardXP)
			s.stats.Coins += result.RewardCoins
			res.RunResult = &result
			metrics.ChallengeRunScore.Observe(float64(result.FinalScore))
			events = append(events, s.event(now, domain.EventRunFinished, domain.RunFinishedPayload{
				FinalScore:  result.FinalScore,
				RewardXP:    result.RewardXP,
				RewardCoins: result.RewardCoins,
			}))
		}
	}

	// ── Daily challenge ──
	progress := engagement.RecordProgress(s.challenge, c, action)
	s.challenge = progress.Challenge
	if progress.JustCompleted {
		s.addXP(progress.XPReward)
		s.stats.ChallengesCompleted++
		res.ChallengeCompleted = true
		metrics.ChallengesCompleted.WithLabelValues(string(s.challenge.Type)).Inc()
		events = append(events, s.event(now, domain.EventChallengeCompleted, s.challenge))
	}

	// ── Level ──
	if lvl := engagement.LevelForXP(s.stats.TotalXP); lvl > s.stats.Level {
		res.LevelUp = &domain.LevelUpPayload{From: s.stats.Level, To: lvl}
		s.stats.Level = lvl
		metrics.LevelUps.Inc()
		events = append(events, s.event(now, domain.EventLevelUp, *res.LevelUp))
	}

	// ── Achievements ──
	for _, def := range engagement.Evaluate(s.m.achievements.Definitions(), s.stats, s.unlocked) {
		s.unlocked[def.ID] = true
		res.Achievements = append(res.Achievements, def)
		s.persistUnlock(ctx, def.ID, now)
		metrics.AchievementsUnlocked.WithLabelValues(def.ID).Inc()
		events = append(events, s.event(now, domain.EventAchievementUnlocked, def))
	}

	// ── Persist ──
	s.persist(ctx, entry)

	for _, e := range events {
		s.m.pub.Publish(e)
	}

	res.XPDelta = s.stats.TotalXP - before.TotalXP
	res.Stats = s.stats
	res.Level = engagement.LevelProgress(s.stats.TotalXP)
	res.Challenge = s.challenge
	res.Run = s.runState()
	res.Deck = s.deck.Snapshot()

	metrics.SwipesTotal.WithLabelValues(string(action), string(s.mode)).Inc()
	metrics.SwipeXP.Observe(float64(score.TotalXP))
	if res.XPDelta > 0 {
		metrics.XPAwarded.WithLabelValues(string(s.mode)).Add(float64(res.XPDelta))
	}
	metrics.SwipeLatency.Observe(time.Since(start).Seconds())
	return res, nil
}

func (s *GameSession) target(id string) (domain.Candidate, error) {
	if id == "" {
		c, ok := s.deck.Current()
		if !ok {
			return domain.Candidate{}, domain.ErrDeckExhausted
		}
		return c, nil
	}
	c, ok := s.deck.Candidate(id)
	if !ok {
		return domain.Candidate{}, fmt.Errorf("%w: %s", domain.ErrUnknownCandidate, id)
	}
	return c, nil
}

// countAction bumps the counters. Every action, skip included, is a swipe;
// never counts as a pass. Swipe rejects repeats, so each candidate counts
// once per round.
func (s *GameSession) countAction(a domain.SwipeAction) {
	s.stats.SwipeCount++
	switch a {
	case domain.ActionLike:
		s.stats.LikeCount++
	case domain.ActionSuperLike:
		s.stats.SuperLikeCount++
		s.stats.SuperLikesRemaining--
	case domain.ActionPass, domain.ActionNever:
		s.stats.PassCount++
	}
}

// addXP applies delta with TotalXP floored at zero.
func (s *GameSession) addXP(delta int64) {
	s.stats.TotalXP = max(0, s.stats.TotalXP+delta)
}

func (s *GameSession) recordActivity(e domain.InteractionLogEntry) {
	day := domain.DayKey(e.Timestamp.In(s.m.loc))
	for i := len(s.activity) - 1; i >= 0; i-- {
		if domain.DayKey(s.activity[i].Timestamp.In(s.m.loc)) == day {
			return
		}
	}
	s.activity = append(s.activity, e)
}

// rollover refreshes day-scoped state when now is on a new day. Caller
// holds s.mu. Reports whether anything changed.
func (s *GameSession) rollover(ctx context.Context, now time.Time) bool {
	today := domain.DayKey(now)
	changed := false
	if s.stats.AllowanceDay != today {
		s.stats.SuperLikesRemaining = s.m.allowance
		s.stats.AllowanceDay = today
		s.stats.CurrentStreak = engagement.CurrentStreak(s.activity, now)
		changed = true
	}
	if s.challenge.Day != today {
		ch, err := s.m.challenges.ForDate(ctx, s.userID, now)
		if err != nil {
			// Store unavailable: select locally and let the outbox save it.
			logger.Warn("[session] load challenge for %s: %v", s.userID, err)
			ch, err = engagement.SelectForDate(now, s.m.challenges.Catalog())
			if err != nil {
				logger.Error("[session] select challenge: %v", err)
				return changed
			}
			ch.UserID = s.userID
			s.persistChallenge(ctx, ch)
		}
		s.challenge = ch
		changed = true
	}
	return changed
}

func (s *GameSession) event(at time.Time, typ domain.EventType, payload any) domain.Event {
	return domain.Event{Type: typ, UserID: s.userID, At: at, Payload: payload}
}

// ─── Persistence ────────────────────────────────────────────────────────────

func (s *GameSession) persist(ctx context.Context, entry domain.InteractionLogEntry) {
	store := s.m.store
	s.submit(ctx, outbox.Write{
		Key: "interaction:" + entry.ID, Op: "append_interaction", UserID: s.userID,
		Fn: func(ctx context.Context) error { return store.AppendInteraction(ctx, entry) },
	})
	stats := s.stats
	s.submit(ctx, outbox.Write{
		Key: "stats:" + s.userID, Op: "save_stats", UserID: s.userID,
		Fn: func(ctx context.Context) error { return store.SaveStats(ctx, stats) },
	})
	s.persistChallenge(ctx, s.challenge)
}

func (s *GameSession) persistChallenge(ctx context.Context, ch domain.DailyChallenge) {
	store := s.m.store
	s.submit(ctx, outbox.Write{
		Key: "challenge:" + s.userID + ":" + ch.Day, Op: "save_challenge", UserID: s.userID,
		Fn: func(ctx context.Context) error { return store.SaveChallenge(ctx, ch) },
	})
}

func (s *GameSession) persistUnlock(ctx context.Context, id string, at time.Time) {
	store := s.m.store
	u := domain.UnlockedAchievement{UserID: s.userID, ID: id, UnlockedAt: at}
	s.submit(ctx, outbox.Write{
		Key: "achievement:" + s.userID + ":" + id, Op: "unlock_achievement", UserID: s.userID,
		Fn: func(ctx context.Context) error {
			_, err := store.UnlockAchievement(ctx, u)
			return err
		},
	})
}

func (s *GameSession) submit(ctx context.Context, w outbox.Write) {
	if err := s.m.outbox.Submit(ctx, w); err != nil {
		logger.Error("[session] %s for %s lost: %v", w.Op, s.userID, err)
	}
}

// ─── Deck navigation ────────────────────────────────────────────────────────

// Rewind moves the cursor back one card. Scores already awarded stand.
func (s *GameSession) Rewind() deck.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck.Rewind()
	return s.deck.Snapshot()
}

// Advance moves the cursor past the current card without scoring it. It is
// how a client moves on after a skip, which leaves the cursor in place.
func (s *GameSession) Advance() deck.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck.Advance()
	return s.deck.Snapshot()
}

// Reset restarts the deck from the first card. Matches are kept. In
// challenge-run mode a new run begins.
func (s *GameSession) Reset() deck.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deck.Reset()
	if s.run != nil {
		s.run = scoring.NewChallengeRun()
	}
	return s.deck.Snapshot()
}

// ─── Read views ─────────────────────────────────────────────────────────────

// State returns a snapshot of the session.
func (s *GameSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.m.Now()
	return State{
		UserID:    s.userID,
		Mode:      s.mode,
		Scenario:  s.m.macro.ScenarioForDate(now),
		Deck:      s.deck.Snapshot(),
		Stats:     s.stats,
		Level:     engagement.LevelProgress(s.stats.TotalXP),
		Challenge: s.challenge,
		Run:       s.runState(),
		StartedAt: s.startedAt,
	}
}

// Stats returns the current stats snapshot.
func (s *GameSession) Stats() domain.GameStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Challenge returns today's challenge, rolling over first if the day changed.
func (s *GameSession) Challenge(ctx context.Context) domain.DailyChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(ctx, s.m.Now())
	return s.challenge
}

// Current returns the card under the cursor.
func (s *GameSession) Current() (domain.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deck.Current()
}

// Matched returns the matched candidates in match order.
func (s *GameSession) Matched() []domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.deck.Matched()
	out := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.deck.Candidate(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *GameSession) runState() *RunState {
	if s.run == nil {
		return nil
	}
	return &RunState{
		Swipes:    s.run.Swipes(),
		Remaining: s.run.Remaining(),
		Score:     s.run.Score(),
		Finished:  s.run.Finished(),
	}
}
