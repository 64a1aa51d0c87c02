package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/feed"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/memory"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/infra/outbox"
)

// ─── Fixtures ───────────────────────────────────────────────────────────────

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(e domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// flakyStore fails SaveStats while down is set.
type flakyStore struct {
	*memory.Store
	down atomic.Bool
}

func (f *flakyStore) SaveStats(ctx context.Context, s domain.GameStats) error {
	if f.down.Load() {
		return errors.New("disk unavailable")
	}
	return f.Store.SaveStats(ctx, s)
}

func testCandidates() []domain.Candidate {
	return []domain.Candidate{
		{ID: "BIG", Name: "Big Bank", Sector: "Financials", MarketCap: decimal.New(50, 9), PERatio: 10, DividendYield: 3},
		{ID: "TECH", Name: "Mega Tech", Sector: "Technology", MarketCap: decimal.New(500, 9), PERatio: 30},
		{ID: "TINY", Name: "Tiny Energy", Sector: "Energy", MarketCap: decimal.New(500, 6)},
	}
}

// series builds n distinct candidates from one template, ids prefix01..prefixNN.
func series(prefix string, n int, tmpl domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		c := tmpl
		c.ID = fmt.Sprintf("%s%02d", prefix, i+1)
		c.Name = fmt.Sprintf("%s %d", tmpl.Name, i+1)
		out[i] = c
	}
	return out
}

// 2025-01-01: day of year 1, so the rising_rates scenario and the
// dividend_hunter challenge are active.
var jan1 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	m     *Manager
	store domain.GameStore
	ob    *outbox.Outbox
	rec   *recorder
	clock *clock
}

func newHarness(t *testing.T, store domain.GameStore) *harness {
	t.Helper()
	return newHarnessWith(t, store, testCandidates())
}

func newHarnessWith(t *testing.T, store domain.GameStore, candidates []domain.Candidate) *harness {
	t.Helper()
	if store == nil {
		store = memory.NewStore()
	}
	rec := &recorder{}
	clk := &clock{t: jan1}
	ob := outbox.New(outbox.RetryConfig{MaxRetries: 3, BaseDelay: time.Minute, MaxDelay: time.Hour}, rec)
	m, err := NewManager(Deps{
		Store:     store,
		Outbox:    ob,
		Source:    feed.NewStaticSource(candidates),
		Publisher: rec,
	}, Config{Now: clk.now})
	require.NoError(t, err)
	return &harness{m: m, store: store, ob: ob, rec: rec, clock: clk}
}

func (h *harness) start(t *testing.T, mode domain.GameMode) *GameSession {
	t.Helper()
	s, err := h.m.Start(context.Background(), "alice", mode)
	require.NoError(t, err)
	return s
}

func swipe(t *testing.T, s *GameSession, id string, a domain.SwipeAction) SwipeResult {
	t.Helper()
	res, err := s.Swipe(context.Background(), SwipeInput{CandidateID: id, Action: a})
	require.NoError(t, err)
	return res
}

// ═══════════════════════════════════════════════════════════════════════════
// Manager
// ═══════════════════════════════════════════════════════════════════════════

func TestNewManager_RequiresStoreAndSource(t *testing.T) {
	_, err := NewManager(Deps{Source: feed.NewStaticSource(nil)}, Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = NewManager(Deps{Store: memory.NewStore()}, Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStart_Validation(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.m.Start(context.Background(), "  ", domain.ModeClassic)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = h.m.Start(context.Background(), "alice", "blitz")
	assert.ErrorIs(t, err, domain.ErrInvalidMode)
}

func TestStart_FreshUser(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, "")

	st := s.State()
	assert.Equal(t, domain.ModeClassic, st.Mode)
	assert.Equal(t, "rising_rates", st.Scenario.ID)
	assert.Equal(t, 3, st.Deck.Length)
	assert.Equal(t, 1, st.Stats.Level)
	assert.Equal(t, DefaultDailySuperLikes, st.Stats.SuperLikesRemaining)
	assert.Equal(t, domain.ChallengeDividendHunter, st.Challenge.Type)
	assert.Equal(t, "2025-01-01", st.Challenge.Day)
	assert.Nil(t, st.Run)

	persisted, err := h.store.LoadChallenge(context.Background(), "alice", "2025-01-01")
	require.NoError(t, err)
	require.NotNil(t, persisted, "today's challenge is persisted on start")
}

func TestManager_GetAndEnd(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.m.Get("alice")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	s := h.start(t, domain.ModeClassic)
	got, err := h.m.Get("alice")
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, h.m.Len())

	h.m.End("alice")
	assert.Equal(t, 0, h.m.Len())
}

// ═══════════════════════════════════════════════════════════════════════════
// Swipe pipeline
// ═══════════════════════════════════════════════════════════════════════════

func TestSwipe_ClassicLike(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)

	res := swipe(t, s, "BIG", domain.ActionLike)

	assert.Equal(t, int64(10), res.Score.TotalXP)
	assert.Equal(t, int64(10), res.XPDelta)
	assert.Equal(t, int64(1), res.Stats.SwipeCount)
	assert.Equal(t, int64(1), res.Stats.LikeCount)
	assert.Equal(t, 1, res.Stats.CurrentStreak)
	assert.Equal(t, 1, res.Challenge.Progress, "dividend payer like counts for dividend_hunter")
	assert.Equal(t, []string{"BIG"}, res.Deck.Matched)
	assert.Equal(t, 1, res.Deck.Cursor)

	ids := make([]string, 0, len(res.Achievements))
	for _, a := range res.Achievements {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"first_swipe", "first_match"}, ids)

	assert.Equal(t, []domain.EventType{
		domain.EventSwipeScored,
		domain.EventAchievementUnlocked,
		domain.EventAchievementUnlocked,
	}, h.rec.types())

	ctx := context.Background()
	stats, err := h.store.LoadStats(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(10), stats.TotalXP)

	log, err := h.store.ListInteractions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "BIG", log[0].CandidateID)
	assert.Equal(t, int64(10), log[0].XPDelta)

	unlocked, err := h.store.ListAchievements(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, unlocked, 2)

	ch, err := h.store.LoadChallenge(ctx, "alice", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1, ch.Progress)
}

func TestSwipe_DefaultsToCurrentCard(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)

	res, err := s.Swipe(context.Background(), SwipeInput{Action: domain.ActionPass})
	require.NoError(t, err)
	assert.Equal(t, "BIG", res.Candidate.ID)

	next, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "TECH", next.ID)
}

func TestSwipe_Rejections(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)
	ctx := context.Background()

	_, err := s.Swipe(ctx, SwipeInput{CandidateID: "BIG", Action: "love"})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	_, err = s.Swipe(ctx, SwipeInput{CandidateID: "NOPE", Action: domain.ActionLike})
	assert.ErrorIs(t, err, domain.ErrUnknownCandidate)

	_, err = s.Swipe(ctx, SwipeInput{CandidateID: "BIG", Action: domain.ActionLike, Horizon: "forever"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	for n := 0; n < 3; n++ {
		swipe(t, s, "", domain.ActionPass)
	}
	_, err = s.Swipe(ctx, SwipeInput{Action: domain.ActionPass})
	assert.ErrorIs(t, err, domain.ErrDeckExhausted)

	_, err = s.Swipe(ctx, SwipeInput{CandidateID: "BIG", Action: domain.ActionLike})
	assert.ErrorIs(t, err, domain.ErrAlreadySwiped)

	assert.Equal(t, int64(3), s.Stats().SwipeCount, "rejected swipes change nothing")
}

func TestSwipe_RepeatIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)
	ctx := context.Background()

	swipe(t, s, "BIG", domain.ActionLike)
	h.rec.reset()
	for n := 0; n < 4; n++ {
		_, err := s.Swipe(ctx, SwipeInput{CandidateID: "BIG", Action: domain.ActionLike})
		require.ErrorIs(t, err, domain.ErrAlreadySwiped)
	}

	stats := s.Stats()
	assert.Equal(t, int64(10), stats.TotalXP)
	assert.Equal(t, int64(1), stats.SwipeCount)
	assert.Equal(t, int64(1), stats.LikeCount)
	ch := s.Challenge(ctx)
	assert.Equal(t, 1, ch.Progress, "one company counts once toward dividend_hunter")
	assert.False(t, ch.Completed)
	assert.Empty(t, h.rec.types(), "a rejected repeat publishes nothing")

	// Rewinding onto a decided card does not reopen it.
	s.Rewind()
	_, err := s.Swipe(ctx, SwipeInput{Action: domain.ActionSuperLike})
	assert.ErrorIs(t, err, domain.ErrAlreadySwiped)
	assert.Equal(t, DefaultDailySuperLikes, s.Stats().SuperLikesRemaining)

	// A reset starts a new round.
	s.Reset()
	res := swipe(t, s, "BIG", domain.ActionLike)
	assert.Equal(t, int64(2), res.Stats.LikeCount)
}

func TestSwipe_SkipCountsOncePerCard(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)
	ctx := context.Background()

	res := swipe(t, s, "", domain.ActionSkip)
	assert.Equal(t, "BIG", res.Candidate.ID)
	assert.Equal(t, 0, res.Deck.Cursor, "skip leaves the cursor in place")
	assert.Equal(t, []string{"BIG"}, res.Deck.Swiped)

	for n := 0; n < 49; n++ {
		_, err := s.Swipe(ctx, SwipeInput{Action: domain.ActionSkip})
		require.ErrorIs(t, err, domain.ErrAlreadySwiped)
	}
	assert.Equal(t, int64(1), s.Stats().SwipeCount)

	snap := s.Advance()
	assert.Equal(t, 1, snap.Cursor)
	res = swipe(t, s, "", domain.ActionSkip)
	assert.Equal(t, "TECH", res.Candidate.ID)
	assert.Equal(t, int64(2), res.Stats.SwipeCount)
	assert.Empty(t, res.Deck.Matched)
}

func TestSwipe_XPNeverNegative(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)

	res := swipe(t, s, "TINY", domain.ActionNever)
	assert.Equal(t, int64(-5), res.Score.TotalXP)
	assert.Equal(t, int64(0), res.Stats.TotalXP)
	assert.Equal(t, int64(0), res.XPDelta)
	assert.Equal(t, int64(1), res.Stats.PassCount)
}

func TestSwipe_MacroAware(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeMacroAware)

	// rising_rates: technology negative, financials positive.
	assert.Equal(t, int64(5), swipe(t, s, "TECH", domain.ActionLike).Score.TotalXP)
	assert.Equal(t, int64(25), swipe(t, s, "BIG", domain.ActionLike).Score.TotalXP)
	assert.Equal(t, int64(5), swipe(t, s, "TINY", domain.ActionPass).Score.TotalXP, "energy is neutral")

	s = h.start(t, domain.ModeMacroAware)
	assert.Equal(t, int64(20), swipe(t, s, "TECH", domain.ActionPass).Score.TotalXP)
}

func TestSwipe_ThesisAndHorizonResetPerSwipe(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	s := h.start(t, domain.ModeThesisBuilder)
	res, err := s.Swipe(ctx, SwipeInput{CandidateID: "BIG", Action: domain.ActionLike, ThesisCount: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(19), res.Score.ModeBonus)
	res = swipe(t, s, "TECH", domain.ActionLike)
	assert.Equal(t, int64(0), res.Score.ModeBonus, "thesis selection does not carry over")

	// rising_rates is not long-term favorable, so a short horizon aligns.
	s = h.start(t, domain.ModeTimeHorizon)
	res, err = s.Swipe(ctx, SwipeInput{CandidateID: "BIG", Action: domain.ActionLike, Horizon: domain.HorizonShort})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.Score.ModeBonus)
	res, err = s.Swipe(ctx, SwipeInput{CandidateID: "TECH", Action: domain.ActionLike, Horizon: domain.HorizonLong})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Score.ModeBonus)
}

func TestSwipe_SuperLikeAllowanceRefillsNextDay(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)

	for _, id := range []string{"BIG", "TECH", "TINY"} {
		swipe(t, s, id, domain.ActionSuperLike)
	}
	s.Reset()
	_, err := s.Swipe(context.Background(), SwipeInput{CandidateID: "BIG", Action: domain.ActionSuperLike})
	assert.ErrorIs(t, err, domain.ErrNoSuperLikes)

	h.clock.advance(24 * time.Hour)
	res := swipe(t, s, "BIG", domain.ActionSuperLike)
	assert.Equal(t, DefaultDailySuperLikes-1, res.Stats.SuperLikesRemaining)
	assert.Equal(t, "2025-01-02", res.Stats.AllowanceDay)
	assert.Equal(t, "2025-01-02", res.Challenge.Day)
	assert.Equal(t, domain.ChallengeTechSwiper, res.Challenge.Type)
	assert.Equal(t, 2, res.Stats.CurrentStreak)
}

func TestSwipe_DailyChallengeCompletesOnce(t *testing.T) {
	payers := series("DIV", 7, domain.Candidate{Name: "Payer", Sector: "Utilities", MarketCap: decimal.New(20, 9), DividendYield: 4})
	h := newHarnessWith(t, nil, payers)
	s := h.start(t, domain.ModeClassic)

	var completed int
	var xpFromChallenge int64
	for _, c := range payers {
		res := swipe(t, s, c.ID, domain.ActionLike)
		if res.ChallengeCompleted {
			completed++
			xpFromChallenge = res.XPDelta - res.Score.TotalXP
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, int64(75), xpFromChallenge)

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.ChallengesCompleted)
	assert.Equal(t, int64(7*10+75), stats.TotalXP)

	ch := s.Challenge(context.Background())
	assert.True(t, ch.Completed)
	assert.Equal(t, 5, ch.Progress)
	assert.Contains(t, h.rec.types(), domain.EventChallengeCompleted)
}

func TestSwipe_LevelUp(t *testing.T) {
	h := newHarnessWith(t, nil, series("GRW", 8, domain.Candidate{Name: "Grower", Sector: "Technology", MarketCap: decimal.New(80, 9)}))
	s := h.start(t, domain.ModeClassic)

	// 3 super likes and 5 likes make 125 XP, past the 120 XP level-2 threshold.
	var levelUp *domain.LevelUpPayload
	for i := 0; i < 8; i++ {
		action := domain.ActionLike
		if i < 3 {
			action = domain.ActionSuperLike
		}
		if res := swipe(t, s, "", action); res.LevelUp != nil {
			levelUp = res.LevelUp
		}
	}
	require.NotNil(t, levelUp)
	assert.Equal(t, 1, levelUp.From)
	assert.Equal(t, 2, levelUp.To)
	assert.Contains(t, h.rec.types(), domain.EventLevelUp)
}

func TestSwipe_ChallengeRun(t *testing.T) {
	h := newHarnessWith(t, nil, series("CAP", 11, domain.Candidate{Name: "Large Cap", Sector: "Industrials", MarketCap: decimal.New(500, 9)}))
	s := h.start(t, domain.ModeChallengeRun)

	var final SwipeResult
	for i := 0; i < 10; i++ {
		if i < 6 {
			final = swipe(t, s, "", domain.ActionLike) // big cap like: good
		} else {
			final = swipe(t, s, "", domain.ActionPass) // big cap pass: not good
		}
		if i < 9 {
			assert.Nil(t, final.RunResult)
		}
	}
	require.NotNil(t, final.RunResult)
	assert.Equal(t, 60, final.RunResult.FinalScore)
	assert.Equal(t, int64(30), final.RunResult.RewardXP)
	assert.Equal(t, int64(6), final.RunResult.RewardCoins)
	assert.Equal(t, int64(6), final.Stats.Coins)
	assert.True(t, final.Run.Finished)
	assert.Contains(t, h.rec.types(), domain.EventRunFinished)

	_, err := s.Swipe(context.Background(), SwipeInput{CandidateID: "CAP11", Action: domain.ActionLike})
	assert.ErrorIs(t, err, domain.ErrRunFinished)

	s.Reset()
	st := s.State()
	require.NotNil(t, st.Run)
	assert.Equal(t, 0, st.Run.Swipes, "reset starts a new run")
}

func TestSwipe_StreakFromHistory(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	for i, day := range []time.Time{jan1.AddDate(0, 0, -2), jan1.AddDate(0, 0, -1)} {
		require.NoError(t, store.AppendInteraction(ctx, domain.InteractionLogEntry{
			ID: string(rune('a' + i)), UserID: "alice", CandidateID: "BIG",
			Action: domain.ActionPass, Mode: domain.ModeClassic, Timestamp: day,
		}))
	}
	h := newHarness(t, store)
	s := h.start(t, domain.ModeClassic)
	assert.Equal(t, 2, s.Stats().CurrentStreak, "yesterday keeps the streak alive")

	res := swipe(t, s, "TINY", domain.ActionPass)
	assert.Equal(t, 3, res.Stats.CurrentStreak)
	assert.Equal(t, 3, res.Stats.LongestStreak)

	var ids []string
	for _, a := range res.Achievements {
		ids = append(ids, a.ID)
	}
	assert.Contains(t, ids, "hot_streak_3")
}

// ═══════════════════════════════════════════════════════════════════════════
// Persistence failures
// ═══════════════════════════════════════════════════════════════════════════

func TestSwipe_PersistenceFailureIsDeferred(t *testing.T) {
	store := &flakyStore{Store: memory.NewStore()}
	h := newHarness(t, store)
	s := h.start(t, domain.ModeClassic)
	h.rec.reset()

	store.down.Store(true)
	res := swipe(t, s, "BIG", domain.ActionLike)
	assert.Equal(t, int64(10), res.Stats.TotalXP, "in-memory state is updated regardless")
	assert.Contains(t, h.rec.types(), domain.EventPersistenceDeferred)
	assert.Equal(t, 1, h.ob.Len())

	// A second swipe coalesces into the pending stats write.
	swipe(t, s, "TECH", domain.ActionLike)
	assert.Equal(t, 1, h.ob.Len())

	store.down.Store(false)
	flushed := h.ob.FlushAll(context.Background())
	assert.Equal(t, 1, flushed.Succeeded)

	stats, err := store.LoadStats(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(20), stats.TotalXP, "latest snapshot wins")
}

// ═══════════════════════════════════════════════════════════════════════════
// Navigation, rollover, read models
// ═══════════════════════════════════════════════════════════════════════════

func TestRewindAndReset(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)

	swipe(t, s, "", domain.ActionLike)
	swipe(t, s, "", domain.ActionPass)

	snap := s.Rewind()
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, int64(2), s.Stats().SwipeCount, "rewind does not undo scoring")

	snap = s.Reset()
	assert.Equal(t, 0, snap.Cursor)
	assert.Empty(t, snap.Swiped)
	assert.Equal(t, []string{"BIG"}, snap.Matched, "matches survive a reset")

	matched := s.Matched()
	require.Len(t, matched, 1)
	assert.Equal(t, "Big Bank", matched[0].Name)
}

func TestManager_Rollover(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)
	swipe(t, s, "BIG", domain.ActionSuperLike)

	assert.Equal(t, 0, h.m.Rollover(context.Background()), "same day: nothing to do")

	h.clock.advance(24 * time.Hour)
	assert.Equal(t, 1, h.m.Rollover(context.Background()))

	st := s.State()
	assert.Equal(t, DefaultDailySuperLikes, st.Stats.SuperLikesRemaining)
	assert.Equal(t, "2025-01-02", st.Challenge.Day)

	prev, err := h.store.LoadChallenge(context.Background(), "alice", "2025-01-01")
	require.NoError(t, err)
	require.NotNil(t, prev, "yesterday's challenge is kept")
}

func TestManager_ProfileAndAchievements(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)
	swipe(t, s, "BIG", domain.ActionLike)
	ctx := context.Background()

	p, err := h.m.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Stats.TotalXP)
	assert.Equal(t, 1, p.Stats.CurrentStreak)
	assert.Equal(t, 1, p.Level.Level)
	assert.Equal(t, 2, p.Unlocked)
	assert.Equal(t, 12, p.Total)

	list, err := h.m.Achievements(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 12)
	unlocked := 0
	for _, a := range list {
		if a.Unlocked {
			unlocked++
			assert.NotNil(t, a.UnlockedAt)
		}
	}
	assert.Equal(t, 2, unlocked)

	board, err := h.m.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "alice", board[0].UserID)
}

func TestStart_ReloadsPersistedState(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)
	swipe(t, s, "BIG", domain.ActionSuperLike)

	again := h.start(t, domain.ModeMacroAware)
	st := again.Stats()
	assert.Equal(t, int64(25), st.TotalXP)
	assert.Equal(t, DefaultDailySuperLikes-1, st.SuperLikesRemaining, "allowance is per day, not per session")

	res := swipe(t, again, "BIG", domain.ActionLike)
	for _, a := range res.Achievements {
		assert.NotEqual(t, "first_swipe", a.ID, "achievements are never re-awarded")
	}
}

func TestSwipe_ConcurrentSameUser(t *testing.T) {
	h := newHarness(t, nil)
	s := h.start(t, domain.ModeClassic)

	var wg sync.WaitGroup
	var accepted, repeated atomic.Int32
	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Swipe(context.Background(), SwipeInput{CandidateID: "TINY", Action: domain.ActionPass})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domain.ErrAlreadySwiped):
				repeated.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load(), "only the first decision on a card is scored")
	assert.Equal(t, int32(19), repeated.Load())
	assert.Equal(t, int64(1), s.Stats().SwipeCount)
	log, err := h.store.ListInteractions(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, log, 1)
}
