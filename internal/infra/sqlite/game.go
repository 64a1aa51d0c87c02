package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// ─── Interaction Log ────────────────────────────────────────────────────────

// AppendInteraction inserts a log entry. Re-appending the same id is a no-op
// so retried writes do not duplicate history.
func (d *DB) AppendInteraction(ctx context.Context, e domain.InteractionLogEntry) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO interactions (id, user_id, candidate_id, action, mode, xp_delta, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.CandidateID, string(e.Action), string(e.Mode), e.XPDelta, e.Timestamp.UnixMilli(),
	)
	return err
}

// ListInteractions returns a user's log, oldest first.
func (d *DB) ListInteractions(ctx context.Context, userID string) ([]domain.InteractionLogEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, candidate_id, action, mode, xp_delta, ts
		 FROM interactions WHERE user_id = ? ORDER BY ts ASC, id ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.InteractionLogEntry
	for rows.Next() {
		var e domain.InteractionLogEntry
		var action, mode string
		var ts int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.CandidateID, &action, &mode, &e.XPDelta, &ts); err != nil {
			return nil, err
		}
		e.Action = domain.SwipeAction(action)
		e.Mode = domain.GameMode(mode)
		e.Timestamp = time.UnixMilli(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─── Stats ──────────────────────────────────────────────────────────────────

// LoadStats returns nil if the user has never played.
func (d *DB) LoadStats(ctx context.Context, userID string) (*domain.GameStats, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT user_id, total_xp, level, swipe_count, like_count, super_like_count, pass_count,
		        current_streak, longest_streak, super_likes_remaining, coins, challenges_completed, allowance_day
		 FROM stats WHERE user_id = ?`, userID,
	)
	return scanStats(row)
}

// SaveStats upserts the full stats row.
func (d *DB) SaveStats(ctx context.Context, s domain.GameStats) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO stats (user_id, total_xp, level, swipe_count, like_count, super_like_count, pass_count,
		                    current_streak, longest_streak, super_likes_remaining, coins, challenges_completed,
		                    allowance_day, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_xp=excluded.total_xp,
			level=excluded.level,
			swipe_count=excluded.swipe_count,
			like_count=excluded.like_count,
			super_like_count=excluded.super_like_count,
			pass_count=excluded.pass_count,
			current_streak=excluded.current_streak,
			longest_streak=excluded.longest_streak,
			super_likes_remaining=excluded.super_likes_remaining,
			coins=excluded.coins,
			challenges_completed=excluded.challenges_completed,
			allowance_day=excluded.allowance_day,
			updated_at=excluded.updated_at`,
		s.UserID, s.TotalXP, s.Level, s.SwipeCount, s.LikeCount, s.SuperLikeCount, s.PassCount,
		s.CurrentStreak, s.LongestStreak, s.SuperLikesRemaining, s.Coins, s.ChallengesCompleted,
		s.AllowanceDay, time.Now().Unix(),
	)
	return err
}

// Leaderboard returns the top users by XP. Ties break on user id.
func (d *DB) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id, total_xp, level, swipe_count FROM stats
		 ORDER BY total_xp DESC, user_id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.TotalXP, &e.Level, &e.SwipeCount); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Achievements ───────────────────────────────────────────────────────────

// UnlockAchievement records an achievement as unlocked.
// Returns false if already unlocked (idempotent).
func (d *DB) UnlockAchievement(ctx context.Context, u domain.UnlockedAchievement) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO achievements (user_id, id, unlocked_at) VALUES (?, ?, ?)`,
		u.UserID, u.ID, u.UnlockedAt.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil // true = newly unlocked
}

// ListAchievements returns a user's unlocked achievements, oldest first.
func (d *DB) ListAchievements(ctx context.Context, userID string) ([]domain.UnlockedAchievement, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id, id, unlocked_at FROM achievements WHERE user_id = ? ORDER BY unlocked_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []domain.UnlockedAchievement
	for rows.Next() {
		var a domain.UnlockedAchievement
		var unlockedAt int64
		if err := rows.Scan(&a.UserID, &a.ID, &unlockedAt); err != nil {
			return nil, err
		}
		a.UnlockedAt = time.Unix(unlockedAt, 0)
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// ─── Daily Challenges ───────────────────────────────────────────────────────

// LoadChallenge returns nil if no challenge exists for that user and day.
func (d *DB) LoadChallenge(ctx context.Context, userID, day string) (*domain.DailyChallenge, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT user_id, day, id, type, name, description, icon, target, progress, completed, xp_reward, category
		 FROM daily_challenges WHERE user_id = ? AND day = ?`, userID, day,
	)
	return scanChallenge(row)
}

// SaveChallenge upserts a challenge. Progress and completion only move
// forward, so a stale write can never undo newer progress.
func (d *DB) SaveChallenge(ctx context.Context, c domain.DailyChallenge) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO daily_challenges (user_id, day, id, type, name, description, icon, target, progress, completed, xp_reward, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, MIN(?, ?), ?, ?, ?)
		 ON CONFLICT(user_id, day) DO UPDATE SET
			progress=MAX(daily_challenges.progress, excluded.progress),
			completed=MAX(daily_challenges.completed, excluded.completed)`,
		c.UserID, c.Day, c.ID, string(c.Type), c.Name, c.Description, c.Icon, c.Target,
		c.Progress, c.Target, c.Completed, c.XPReward, c.Category,
	)
	return err
}

func scanStats(s scanner) (*domain.GameStats, error) {
	var st domain.GameStats
	err := s.Scan(&st.UserID, &st.TotalXP, &st.Level, &st.SwipeCount, &st.LikeCount, &st.SuperLikeCount,
		&st.PassCount, &st.CurrentStreak, &st.LongestStreak, &st.SuperLikesRemaining, &st.Coins,
		&st.ChallengesCompleted, &st.AllowanceDay)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func scanChallenge(s scanner) (*domain.DailyChallenge, error) {
	var c domain.DailyChallenge
	var typ string
	err := s.Scan(&c.UserID, &c.Day, &c.ID, &typ, &c.Name, &c.Description, &c.Icon,
		&c.Target, &c.Progress, &c.Completed, &c.XPReward, &c.Category)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Type = domain.ChallengeType(typ)
	return &c, nil
}
