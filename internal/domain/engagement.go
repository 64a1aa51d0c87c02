package domain

import (
	"strings"
	"time"
)

// DayLayout is the calendar-day key format used for streaks and daily challenges.
const DayLayout = "2006-01-02"

// DayKey returns the calendar day of t in t's own location.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ─── Stats ──────────────────────────────────────────────────────────────────

// GameStats is the cumulative scoreboard for one user.
// Counters only grow; SuperLikesRemaining and CurrentStreak can reset.
type GameStats struct {
	UserID              string `json:"user_id"`
	TotalXP             int64  `json:"total_xp"`
	Level               int    `json:"level"`
	SwipeCount          int64  `json:"swipe_count"`
	LikeCount           int64  `json:"like_count"`
	SuperLikeCount      int64  `json:"super_like_count"`
	PassCount           int64  `json:"pass_count"`
	CurrentStreak       int    `json:"current_streak"`
	LongestStreak       int    `json:"longest_streak"`
	SuperLikesRemaining int    `json:"super_likes_remaining"`
	Coins               int64  `json:"coins"`
	ChallengesCompleted int64  `json:"challenges_completed"`
	AllowanceDay        string `json:"allowance_day"` // day the super-like allowance was last refilled
}

// ─── Level / XP Types ───────────────────────────────────────────────────────

// UserLevel represents the user's current level and XP progress.
type UserLevel struct {
	Level       int     `json:"level"`
	CurrentXP   int64   `json:"current_xp"`
	NextLevelXP int64   `json:"next_level_xp"`
	ProgressPct float64 `json:"progress_pct"`
}

// ─── Achievement Types ──────────────────────────────────────────────────────

// AchievementCategory groups achievements by theme.
type AchievementCategory string

const (
	CatGettingStarted AchievementCategory = "getting_started"
	CatDealFlow       AchievementCategory = "deal_flow"
	CatStreaks        AchievementCategory = "streaks"
	CatMastery        AchievementCategory = "mastery"
)

// AchievementDef defines a single achievement's requirements.
type AchievementDef struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Category    AchievementCategory  `json:"category"`
	Icon        string               `json:"icon"`
	Predicate   func(GameStats) bool `json:"-"`
}

// UnlockedAchievement records when an achievement was earned.
type UnlockedAchievement struct {
	UserID     string    `json:"user_id"`
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// ─── Daily Challenges ───────────────────────────────────────────────────────

// ChallengeType is the closed set of daily challenge variants.
type ChallengeType string

const (
	ChallengeSpeedSwiper      ChallengeType = "speed_swiper"
	ChallengeDividendHunter   ChallengeType = "dividend_hunter"
	ChallengeTechSwiper       ChallengeType = "tech_swiper"
	ChallengeValueSeeker      ChallengeType = "value_seeker"
	ChallengeSuperScout       ChallengeType = "super_scout"
	ChallengeBlueChipBeliever ChallengeType = "blue_chip_believer"
)

// Eligible reports whether a swipe counts toward a challenge of this type.
// Unknown types never match.
func (t ChallengeType) Eligible(c Candidate, a SwipeAction) bool {
	switch t {
	case ChallengeSpeedSwiper:
		return true
	case ChallengeDividendHunter:
		return a == ActionLike && c.DividendYield > 0
	case ChallengeTechSwiper:
		return strings.Contains(strings.ToLower(c.Sector), "tech")
	case ChallengeValueSeeker:
		return a == ActionLike && c.PERatio > 0 && c.PERatio < 20
	case ChallengeSuperScout:
		return a == ActionSuperLike
	case ChallengeBlueChipBeliever:
		return a.IsMatch() && c.MarketCap.GreaterThan(LargeCapMin)
	}
	return false
}

// ChallengeTemplate is a catalog entry from which daily instances are made.
type ChallengeTemplate struct {
	Type        ChallengeType `json:"type"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Target      int           `json:"target"`
	XPReward    int64         `json:"xp_reward"`
	Category    string        `json:"category"`
}

// DailyChallenge is one user's instance of a template for one calendar day.
// Invariant: 0 <= Progress <= Target and Completed == (Progress >= Target).
type DailyChallenge struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Day         string        `json:"day"`
	Type        ChallengeType `json:"type"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Target      int           `json:"target"`
	Progress    int           `json:"progress"`
	Completed   bool          `json:"completed"`
	XPReward    int64         `json:"xp_reward"`
	Category    string        `json:"category"`
}

// ProgressPct returns completion percentage (0-100).
func (c DailyChallenge) ProgressPct() float64 {
	if c.Target <= 0 {
		return 100.0
	}
	pct := float64(c.Progress) / float64(c.Target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// ─── Interaction Log ────────────────────────────────────────────────────────

// InteractionLogEntry is one append-only record of a swipe.
type InteractionLogEntry struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	CandidateID string      `json:"candidate_id"`
	Action      SwipeAction `json:"action"`
	Mode        GameMode    `json:"mode"`
	XPDelta     int64       `json:"xp_delta"`
	Timestamp   time.Time   `json:"timestamp"`
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	TotalXP    int64  `json:"total_xp"`
	Level      int    `json:"level"`
	SwipeCount int64  `json:"swipe_count"`
}
