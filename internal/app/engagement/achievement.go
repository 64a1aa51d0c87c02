package engagement

import (
	"context"
	"time"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// AchievementService unlocks achievements from a stats snapshot.
// Each rule is an independent predicate; no rule reads another's state.
type AchievementService struct {
	store       domain.GameStore
	definitions []domain.AchievementDef
}

// NewAchievementService creates an achievement service with all definitions.
func NewAchievementService(store domain.GameStore) *AchievementService {
	return &AchievementService{
		store:       store,
		definitions: AllAchievements(),
	}
}

// Evaluate returns the definitions whose predicate holds and whose id is not
// in unlocked. It does not mutate unlocked.
func Evaluate(defs []domain.AchievementDef, stats domain.GameStats, unlocked map[string]bool) []domain.AchievementDef {
	var out []domain.AchievementDef
	for _, def := range defs {
		if unlocked[def.ID] {
			continue
		}
		if def.Predicate != nil && def.Predicate(stats) {
			out = append(out, def)
		}
	}
	return out
}

// CheckAndUnlock evaluates all achievements against current stats and
// records new unlocks. Returns only newly unlocked achievements; the store's
// idempotent unlock guarantees an id is never reported twice.
func (a *AchievementService) CheckAndUnlock(ctx context.Context, stats domain.GameStats, at time.Time) ([]domain.AchievementDef, error) {
	have, err := a.UnlockedSet(ctx, stats.UserID)
	if err != nil {
		return nil, err
	}

	var newlyUnlocked []domain.AchievementDef
	for _, def := range Evaluate(a.definitions, stats, have) {
		isNew, err := a.store.UnlockAchievement(ctx, domain.UnlockedAchievement{
			UserID:     stats.UserID,
			ID:         def.ID,
			UnlockedAt: at,
		})
		if err != nil {
			return newlyUnlocked, err
		}
		if isNew {
			newlyUnlocked = append(newlyUnlocked, def)
		}
	}
	return newlyUnlocked, nil
}

// UnlockedSet returns the ids a user has already unlocked.
func (a *AchievementService) UnlockedSet(ctx context.Context, userID string) (map[string]bool, error) {
	list, err := a.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(list))
	for _, u := range list {
		set[u.ID] = true
	}
	return set, nil
}

// ListUnlocked returns all achievements the user has earned.
func (a *AchievementService) ListUnlocked(ctx context.Context, userID string) ([]domain.UnlockedAchievement, error) {
	return a.store.ListAchievements(ctx, userID)
}

// TotalCount returns the total number of defined achievements.
func (a *AchievementService) TotalCount() int {
	return len(a.definitions)
}

// Definitions returns all achievement definitions (for display).
func (a *AchievementService) Definitions() []domain.AchievementDef {
	return a.definitions
}

// Definition looks up one achievement by id.
func (a *AchievementService) Definition(id string) (domain.AchievementDef, bool) {
	for _, d := range a.definitions {
		if d.ID == id {
			return d, true
		}
	}
	return domain.AchievementDef{}, false
}

// ─── Achievement Definitions ────────────────────────────────────────────────

// AllAchievements returns the full achievement catalog.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		// ── Getting Started ────────────────────────────────────────────
		{
			ID: "first_swipe", Name: "First Look", Category: domain.CatGettingStarted,
			Icon: "👀", Description: "Swipe on your first company",
			Predicate: func(s domain.GameStats) bool { return s.SwipeCount >= 1 },
		},
		{
			ID: "first_match", Name: "It's a Match", Category: domain.CatGettingStarted,
			Icon: "💘", Description: "Like or super like a company",
			Predicate: func(s domain.GameStats) bool { return s.LikeCount+s.SuperLikeCount >= 1 },
		},

		// ── Deal Flow ──────────────────────────────────────────────────
		{
			ID: "explorer", Name: "Explorer", Category: domain.CatDealFlow,
			Icon: "🧭", Description: "Swipe on 50 companies",
			Predicate: func(s domain.GameStats) bool { return s.SwipeCount >= 50 },
		},
		{
			ID: "match_maker", Name: "Match Maker", Category: domain.CatDealFlow,
			Icon: "💞", Description: "Like 25 companies",
			Predicate: func(s domain.GameStats) bool { return s.LikeCount >= 25 },
		},
		{
			ID: "picky_investor", Name: "Picky Investor", Category: domain.CatDealFlow,
			Icon: "🧐", Description: "Swipe on 50 companies but like 10 or fewer",
			Predicate: func(s domain.GameStats) bool { return s.SwipeCount >= 50 && s.LikeCount <= 10 },
		},
		{
			ID: "super_fan", Name: "Super Fan", Category: domain.CatDealFlow,
			Icon: "⭐", Description: "Use 10 super likes",
			Predicate: func(s domain.GameStats) bool { return s.SuperLikeCount >= 10 },
		},
		{
			ID: "deal_veteran", Name: "Deal Veteran", Category: domain.CatDealFlow,
			Icon: "🗂️", Description: "Swipe on 200 companies",
			Predicate: func(s domain.GameStats) bool { return s.SwipeCount >= 200 },
		},

		// ── Streaks ────────────────────────────────────────────────────
		{
			ID: "hot_streak_3", Name: "Warming Up", Category: domain.CatStreaks,
			Icon: "🌡️", Description: "Play 3 days in a row",
			Predicate: func(s domain.GameStats) bool { return s.CurrentStreak >= 3 },
		},
		{
			ID: "hot_streak_7", Name: "Hot Streak", Category: domain.CatStreaks,
			Icon: "🔥", Description: "Play 7 days in a row",
			Predicate: func(s domain.GameStats) bool { return s.CurrentStreak >= 7 },
		},

		// ── Mastery ────────────────────────────────────────────────────
		{
			ID: "xp_1000", Name: "Four Figures", Category: domain.CatMastery,
			Icon: "💰", Description: "Earn 1,000 XP",
			Predicate: func(s domain.GameStats) bool { return s.TotalXP >= 1000 },
		},
		{
			ID: "level_5", Name: "Analyst", Category: domain.CatMastery,
			Icon: "📊", Description: "Reach level 5",
			Predicate: func(s domain.GameStats) bool { return s.Level >= 5 },
		},
		{
			ID: "challenge_champ", Name: "Challenge Champ", Category: domain.CatMastery,
			Icon: "🏆", Description: "Complete 5 daily challenges",
			Predicate: func(s domain.GameStats) bool { return s.ChallengesCompleted >= 5 },
		},
	}
}
