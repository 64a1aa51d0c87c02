package engagement

import (
	"math"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// MaxLevel caps the level curve.
const MaxLevel = 100

// XPForLevel returns the cumulative XP required to reach a given level.
// Uses an exponential curve: 100 * 1.2^(level-1) for level >= 2.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(100 * math.Pow(1.2, float64(level-1)))
}

// LevelForXP returns the level for a given XP amount.
// Iterates upward until cumulative XP exceeds the target.
func LevelForXP(xp int64) int {
	level := 1
	for level < MaxLevel {
		required := XPForLevel(level + 1)
		if xp < required {
			return level
		}
		level++
	}
	return MaxLevel
}

// LevelProgress describes where xp sits on the curve.
func LevelProgress(xp int64) domain.UserLevel {
	ul := domain.UserLevel{CurrentXP: xp, Level: LevelForXP(xp)}
	if ul.Level >= MaxLevel {
		ul.NextLevelXP = XPForLevel(MaxLevel)
		ul.ProgressPct = 100.0
		return ul
	}
	thisLevel := XPForLevel(ul.Level)
	nextLevel := XPForLevel(ul.Level + 1)
	ul.NextLevelXP = nextLevel
	span := nextLevel - thisLevel
	if span <= 0 {
		ul.ProgressPct = 100.0
		return ul
	}
	progress := float64(xp-thisLevel) / float64(span) * 100.0
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	ul.ProgressPct = progress
	return ul
}

// UnlocksForLevel returns the game features that open up at a level.
func UnlocksForLevel(level int) []string {
	unlocks := map[int][]string{
		1:  {"Classic mode", "Daily challenge"},
		2:  {"Macro-aware mode"},
		3:  {"Thesis-builder mode"},
		4:  {"Time-horizon mode"},
		5:  {"Challenge runs"},
		10: {"Leaderboard badge"},
	}
	if u, ok := unlocks[level]; ok {
		return u
	}
	return nil
}
