package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// GameStore is the durable persistence port for player state.
// Implemented by infra/sqlite, infra/postgres and infra/memory.
type GameStore interface {
	// AppendInteraction adds one entry to the append-only interaction log.
	AppendInteraction(ctx context.Context, e InteractionLogEntry) error

	// ListInteractions returns a user's log ordered by timestamp ascending.
	ListInteractions(ctx context.Context, userID string) ([]InteractionLogEntry, error)

	// LoadStats returns nil, nil when the user has no stats yet.
	LoadStats(ctx context.Context, userID string) (*GameStats, error)
	SaveStats(ctx context.Context, stats GameStats) error

	// UnlockAchievement returns true only the first time an id is unlocked for a user.
	UnlockAchievement(ctx context.Context, u UnlockedAchievement) (bool, error)
	ListAchievements(ctx context.Context, userID string) ([]UnlockedAchievement, error)

	// LoadChallenge returns nil, nil when no challenge exists for that day.
	LoadChallenge(ctx context.Context, userID, day string) (*DailyChallenge, error)
	SaveChallenge(ctx context.Context, c DailyChallenge) error

	// Leaderboard returns the top users by total XP.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)

	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher is the presentation port. Implementations must not block
// the caller for long; slow consumers drop events.
type EventPublisher interface {
	Publish(e Event)
}

// CandidateSource supplies the ordered candidate list for a new deck.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}
