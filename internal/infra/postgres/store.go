package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// Store implements domain.GameStore using PostgreSQL.
type Store struct {
	pool *Pool
}

// NewStore creates a Store over an already migrated pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var _ domain.GameStore = (*Store)(nil)

// Ping verifies the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// AppendInteraction inserts a log entry. A duplicate id means the write
// already landed and is not an error.
func (s *Store) AppendInteraction(ctx context.Context, e domain.InteractionLogEntry) error {
	query := `
		INSERT INTO interactions (id, user_id, candidate_id, action, mode, xp_delta, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.UserID, e.CandidateID, string(e.Action), string(e.Mode), e.XPDelta, e.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// ListInteractions returns a user's log ordered by ts ASC, id ASC.
func (s *Store) ListInteractions(ctx context.Context, userID string) ([]domain.InteractionLogEntry, error) {
	query := `
		SELECT id, user_id, candidate_id, action, mode, xp_delta, ts
		FROM interactions
		WHERE user_id = $1
		ORDER BY ts ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.InteractionLogEntry
	for rows.Next() {
		var e domain.InteractionLogEntry
		var action, mode string
		if err := rows.Scan(&e.ID, &e.UserID, &e.CandidateID, &action, &mode, &e.XPDelta, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		e.Action = domain.SwipeAction(action)
		e.Mode = domain.GameMode(mode)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LoadStats returns nil if the user has never played.
func (s *Store) LoadStats(ctx context.Context, userID string) (*domain.GameStats, error) {
	query := `
		SELECT user_id, total_xp, level, swipe_count, like_count, super_like_count, pass_count,
		       current_streak, longest_streak, super_likes_remaining, coins, challenges_completed, allowance_day
		FROM stats
		WHERE user_id = $1
	`
	var st domain.GameStats
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&st.UserID, &st.TotalXP, &st.Level, &st.SwipeCount, &st.LikeCount, &st.SuperLikeCount,
		&st.PassCount, &st.CurrentStreak, &st.LongestStreak, &st.SuperLikesRemaining, &st.Coins,
		&st.ChallengesCompleted, &st.AllowanceDay,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return &st, nil
}

// SaveStats upserts the full stats row.
func (s *Store) SaveStats(ctx context.Context, st domain.GameStats) error {
	query := `
		INSERT INTO stats (
			user_id, total_xp, level, swipe_count, like_count, super_like_count, pass_count,
			current_streak, longest_streak, super_likes_remaining, coins, challenges_completed, allowance_day
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			total_xp = EXCLUDED.total_xp,
			level = EXCLUDED.level,
			swipe_count = EXCLUDED.swipe_count,
			like_count = EXCLUDED.like_count,
			super_like_count = EXCLUDED.super_like_count,
			pass_count = EXCLUDED.pass_count,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			super_likes_remaining = EXCLUDED.super_likes_remaining,
			coins = EXCLUDED.coins,
			challenges_completed = EXCLUDED.challenges_completed,
			allowance_day = EXCLUDED.allowance_day,
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query,
		st.UserID, st.TotalXP, st.Level, st.SwipeCount, st.LikeCount, st.SuperLikeCount, st.PassCount,
		st.CurrentStreak, st.LongestStreak, st.SuperLikesRemaining, st.Coins, st.ChallengesCompleted,
		st.AllowanceDay,
	)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// Leaderboard returns the top users by XP. Ties break on user id.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT user_id, total_xp, level, swipe_count
		FROM stats
		ORDER BY total_xp DESC, user_id ASC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.TotalXP, &e.Level, &e.SwipeCount); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// UnlockAchievement returns false when the achievement was already unlocked.
func (s *Store) UnlockAchievement(ctx context.Context, u domain.UnlockedAchievement) (bool, error) {
	query := `INSERT INTO achievements (user_id, id, unlocked_at) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, u.UserID, u.ID, u.UnlockedAt); err != nil {
		if isDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	return true, nil
}

// ListAchievements returns a user's unlocks, oldest first.
func (s *Store) ListAchievements(ctx context.Context, userID string) ([]domain.UnlockedAchievement, error) {
	query := `
		SELECT user_id, id, unlocked_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY unlocked_at ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var out []domain.UnlockedAchievement
	for rows.Next() {
		var a domain.UnlockedAchievement
		if err := rows.Scan(&a.UserID, &a.ID, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LoadChallenge returns nil if no challenge exists for that user and day.
func (s *Store) LoadChallenge(ctx context.Context, userID, day string) (*domain.DailyChallenge, error) {
	query := `
		SELECT user_id, day, id, type, name, description, icon, target, progress, completed, xp_reward, category
		FROM daily_challenges
		WHERE user_id = $1 AND day = $2
	`
	c, err := scanChallenge(s.pool.QueryRow(ctx, query, userID, day))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	return c, nil
}

// SaveChallenge upserts a challenge. Progress and completion only move forward.
func (s *Store) SaveChallenge(ctx context.Context, c domain.DailyChallenge) error {
	query := `
		INSERT INTO daily_challenges (
			user_id, day, id, type, name, description, icon, target, progress, completed, xp_reward, category
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, LEAST($9::INTEGER, $8::INTEGER), $10, $11, $12)
		ON CONFLICT (user_id, day) DO UPDATE SET
			progress = GREATEST(daily_challenges.progress, EXCLUDED.progress),
			completed = daily_challenges.completed OR EXCLUDED.completed
	`
	_, err := s.pool.Exec(ctx, query,
		c.UserID, c.Day, c.ID, string(c.Type), c.Name, c.Description, c.Icon, c.Target,
		c.Progress, c.Completed, c.XPReward, c.Category,
	)
	if err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func scanChallenge(row pgx.Row) (*domain.DailyChallenge, error) {
	var c domain.DailyChallenge
	var typ string
	err := row.Scan(&c.UserID, &c.Day, &c.ID, &typ, &c.Name, &c.Description, &c.Icon,
		&c.Target, &c.Progress, &c.Completed, &c.XPReward, &c.Category)
	if err != nil {
		return nil, err
	}
	c.Type = domain.ChallengeType(typ)
	return &c, nil
}
