// Package memory is an in-process domain.GameStore for tests and for
// running without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

type challengeKey struct {
	userID string
	day    string
}

// Store keeps all player state in maps guarded by one RWMutex.
type Store struct {
	mu           sync.RWMutex
	closed       bool
	interactions map[string][]domain.InteractionLogEntry // keyed by user
	seen         map[string]struct{}                     // interaction ids
	stats        map[string]domain.GameStats
	achievements map[string][]domain.UnlockedAchievement
	challenges   map[challengeKey]domain.DailyChallenge
}

var _ domain.GameStore = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		interactions: make(map[string][]domain.InteractionLogEntry),
		seen:         make(map[string]struct{}),
		stats:        make(map[string]domain.GameStats),
		achievements: make(map[string][]domain.UnlockedAchievement),
		challenges:   make(map[challengeKey]domain.DailyChallenge),
	}
}

// AppendInteraction appends e; a repeated id is ignored.
func (s *Store) AppendInteraction(_ context.Context, e domain.InteractionLogEntry) error {
	if e.ID == "" || e.UserID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	if _, dup := s.seen[e.ID]; dup {
		return nil
	}
	s.seen[e.ID] = struct{}{}
	s.interactions[e.UserID] = append(s.interactions[e.UserID], e)
	return nil
}

// ListInteractions returns a copy of the user's log ordered by timestamp.
func (s *Store) ListInteractions(_ context.Context, userID string) ([]domain.InteractionLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	out := make([]domain.InteractionLogEntry, len(s.interactions[userID]))
	copy(out, s.interactions[userID])
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// LoadStats returns nil if the user has no stats.
func (s *Store) LoadStats(_ context.Context, userID string) (*domain.GameStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	st, ok := s.stats[userID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// SaveStats replaces the user's stats.
func (s *Store) SaveStats(_ context.Context, st domain.GameStats) error {
	if st.UserID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	s.stats[st.UserID] = st
	return nil
}

// UnlockAchievement returns true only for the first unlock of an id.
func (s *Store) UnlockAchievement(_ context.Context, u domain.UnlockedAchievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, domain.ErrStoreClosed
	}
	for _, have := range s.achievements[u.UserID] {
		if have.ID == u.ID {
			return false, nil
		}
	}
	s.achievements[u.UserID] = append(s.achievements[u.UserID], u)
	return true, nil
}

// ListAchievements returns a user's unlocks in unlock order.
func (s *Store) ListAchievements(_ context.Context, userID string) ([]domain.UnlockedAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	out := make([]domain.UnlockedAchievement, len(s.achievements[userID]))
	copy(out, s.achievements[userID])
	return out, nil
}

// LoadChallenge returns nil if no challenge exists for that day.
func (s *Store) LoadChallenge(_ context.Context, userID, day string) (*domain.DailyChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	c, ok := s.challenges[challengeKey{userID, day}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// SaveChallenge upserts a challenge; progress and completion never regress.
func (s *Store) SaveChallenge(_ context.Context, c domain.DailyChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	c.Progress = min(c.Progress, c.Target)
	key := challengeKey{c.UserID, c.Day}
	if prev, ok := s.challenges[key]; ok {
		prev.Progress = max(prev.Progress, c.Progress)
		prev.Completed = prev.Completed || c.Completed
		s.challenges[key] = prev
		return nil
	}
	s.challenges[key] = c
	return nil
}

// Leaderboard ranks users by XP, breaking ties on user id.
func (s *Store) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	all := make([]domain.GameStats, 0, len(s.stats))
	for _, st := range s.stats {
		all = append(all, st)
	}
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, domain.ErrStoreClosed
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalXP != all[j].TotalXP {
			return all[i].TotalXP > all[j].TotalXP
		}
		return all[i].UserID < all[j].UserID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]domain.LeaderboardEntry, len(all))
	for i, st := range all {
		out[i] = domain.LeaderboardEntry{
			Rank: i + 1, UserID: st.UserID, TotalXP: st.TotalXP, Level: st.Level, SwipeCount: st.SwipeCount,
		}
	}
	return out, nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed; later calls return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
