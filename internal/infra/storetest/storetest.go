// Package storetest holds a behavioural test suite shared by every
// domain.GameStore implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// Factory returns a fresh, empty store. The suite does not close it.
type Factory func(t *testing.T) domain.GameStore

// Run exercises the full GameStore contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(context.Background()))
	})
	t.Run("InteractionsOrderedAndIdempotent", func(t *testing.T) { testInteractions(t, newStore(t)) })
	t.Run("StatsRoundTrip", func(t *testing.T) { testStats(t, newStore(t)) })
	t.Run("AchievementsIdempotent", func(t *testing.T) { testAchievements(t, newStore(t)) })
	t.Run("ChallengesByDay", func(t *testing.T) { testChallenges(t, newStore(t)) })
	t.Run("ChallengeProgressNeverRegresses", func(t *testing.T) { testChallengeMonotonic(t, newStore(t)) })
	t.Run("Leaderboard", func(t *testing.T) { testLeaderboard(t, newStore(t)) })
}

func testInteractions(t *testing.T, s domain.GameStore) {
	ctx := context.Background()
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.InteractionLogEntry{
		{ID: "e2", UserID: "alice", CandidateID: "MSFT", Action: domain.ActionPass, Mode: domain.ModeClassic, XPDelta: 5, Timestamp: base.Add(time.Minute)},
		{ID: "e1", UserID: "alice", CandidateID: "AAPL", Action: domain.ActionLike, Mode: domain.ModeClassic, XPDelta: 10, Timestamp: base},
		{ID: "e3", UserID: "bob", CandidateID: "AAPL", Action: domain.ActionNever, Mode: domain.ModeMacroAware, XPDelta: -5, Timestamp: base},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendInteraction(ctx, e))
	}
	// Retried write with the same id does not duplicate.
	require.NoError(t, s.AppendInteraction(ctx, entries[0]))

	got, err := s.ListInteractions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "e2", got[1].ID)
	assert.Equal(t, domain.ActionLike, got[0].Action)
	assert.Equal(t, int64(10), got[0].XPDelta)
	assert.True(t, got[0].Timestamp.Equal(base), "timestamp = %v", got[0].Timestamp)

	none, err := s.ListInteractions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testStats(t *testing.T, s domain.GameStore) {
	ctx := context.Background()

	missing, err := s.LoadStats(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, missing)

	want := domain.GameStats{
		UserID: "alice", TotalXP: 120, Level: 2, SwipeCount: 9, LikeCount: 4, SuperLikeCount: 1,
		PassCount: 3, CurrentStreak: 2, LongestStreak: 5, SuperLikesRemaining: 2, Coins: 6,
		ChallengesCompleted: 1, AllowanceDay: "2025-07-01",
	}
	require.NoError(t, s.SaveStats(ctx, want))

	got, err := s.LoadStats(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	want.TotalXP = 200
	want.SwipeCount = 15
	require.NoError(t, s.SaveStats(ctx, want))
	got, err = s.LoadStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.TotalXP)
	assert.Equal(t, int64(15), got.SwipeCount)
}

func testAchievements(t *testing.T, s domain.GameStore) {
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	isNew, err := s.UnlockAchievement(ctx, domain.UnlockedAchievement{UserID: "alice", ID: "explorer", UnlockedAt: at})
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = s.UnlockAchievement(ctx, domain.UnlockedAchievement{UserID: "alice", ID: "explorer", UnlockedAt: at.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, isNew, "second unlock must not be new")

	isNew, err = s.UnlockAchievement(ctx, domain.UnlockedAchievement{UserID: "bob", ID: "explorer", UnlockedAt: at})
	require.NoError(t, err)
	assert.True(t, isNew, "unlocks are per user")

	list, err := s.ListAchievements(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "explorer", list[0].ID)
	assert.Equal(t, at.Unix(), list[0].UnlockedAt.Unix(), "first unlock time is kept")
}

func testChallenges(t *testing.T, s domain.GameStore) {
	ctx := context.Background()

	missing, err := s.LoadChallenge(ctx, "alice", "2025-07-01")
	require.NoError(t, err)
	assert.Nil(t, missing)

	day1 := domain.DailyChallenge{
		ID: "challenge-speed_swiper-2025-07-01", UserID: "alice", Day: "2025-07-01",
		Type: domain.ChallengeSpeedSwiper, Name: "Speed Swiper", Target: 20, Progress: 3, XPReward: 50, Category: "volume",
	}
	day2 := day1
	day2.Day = "2025-07-02"
	day2.ID = "challenge-speed_swiper-2025-07-02"
	day2.Progress = 0

	require.NoError(t, s.SaveChallenge(ctx, day1))
	require.NoError(t, s.SaveChallenge(ctx, day2))

	got, err := s.LoadChallenge(ctx, "alice", "2025-07-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, day1, *got, "earlier day is superseded, not deleted")

	got, err = s.LoadChallenge(ctx, "alice", "2025-07-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Progress)
}

func testChallengeMonotonic(t *testing.T, s domain.GameStore) {
	ctx := context.Background()
	c := domain.DailyChallenge{
		ID: "c", UserID: "alice", Day: "2025-07-01", Type: domain.ChallengeSuperScout,
		Name: "Super Scout", Target: 3, Progress: 3, Completed: true, XPReward: 60,
	}
	require.NoError(t, s.SaveChallenge(ctx, c))

	stale := c
	stale.Progress = 1
	stale.Completed = false
	require.NoError(t, s.SaveChallenge(ctx, stale))

	got, err := s.LoadChallenge(ctx, "alice", "2025-07-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Progress)
	assert.True(t, got.Completed)
}

func testLeaderboard(t *testing.T, s domain.GameStore) {
	ctx := context.Background()
	for _, st := range []domain.GameStats{
		{UserID: "carol", TotalXP: 300, Level: 3, SwipeCount: 30},
		{UserID: "alice", TotalXP: 500, Level: 4, SwipeCount: 40},
		{UserID: "bob", TotalXP: 300, Level: 3, SwipeCount: 20},
		{UserID: "dave", TotalXP: 10, Level: 1, SwipeCount: 1},
	} {
		require.NoError(t, s.SaveStats(ctx, st))
	}

	top, err := s.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, domain.LeaderboardEntry{Rank: 1, UserID: "alice", TotalXP: 500, Level: 4, SwipeCount: 40}, top[0])
	assert.Equal(t, "bob", top[1].UserID, "ties break on user id")
	assert.Equal(t, 2, top[1].Rank)
	assert.Equal(t, "carol", top[2].UserID)
}
