// Package engagement implements the retention mechanics around the deck:
// play streaks, XP levels, achievements and the daily challenge.
package engagement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// CurrentStreak counts consecutive active calendar days ending today, or
// ending yesterday if today has no activity yet. Days are taken in
// today's location. Activity only two or more days ago yields 0.
func CurrentStreak(log []domain.InteractionLogEntry, today time.Time) int {
	days := activeDays(log, today.Location())
	if len(days) == 0 {
		return 0
	}

	day := startOfDay(today)
	if !days[domain.DayKey(day)] {
		day = day.AddDate(0, 0, -1)
		if !days[domain.DayKey(day)] {
			return 0
		}
	}

	streak := 0
	for days[domain.DayKey(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak returns the longest run of consecutive active days in log.
func LongestStreak(log []domain.InteractionLogEntry, loc *time.Location) int {
	days := activeDays(log, loc)
	if len(days) == 0 {
		return 0
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	longest, run := 1, 1
	prev, _ := time.ParseInLocation(domain.DayLayout, keys[0], loc)
	for _, k := range keys[1:] {
		d, _ := time.ParseInLocation(domain.DayLayout, k, loc)
		if domain.DayKey(prev.AddDate(0, 0, 1)) == k {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d
	}
	return longest
}

// StreakService computes streaks from the persisted interaction log.
type StreakService struct {
	store domain.GameStore
}

// NewStreakService creates a streak service.
func NewStreakService(store domain.GameStore) *StreakService {
	return &StreakService{store: store}
}

// Streak loads a user's log and returns (current, longest).
func (s *StreakService) Streak(ctx context.Context, userID string, today time.Time) (int, int, error) {
	log, err := s.store.ListInteractions(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("list interactions: %w", err)
	}
	return CurrentStreak(log, today), LongestStreak(log, today.Location()), nil
}

func activeDays(log []domain.InteractionLogEntry, loc *time.Location) map[string]bool {
	days := make(map[string]bool, len(log))
	for _, e := range log {
		days[domain.DayKey(e.Timestamp.In(loc))] = true
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
