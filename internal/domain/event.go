package domain

import "time"

// EventType names a presentation event.
type EventType string

const (
	EventSwipeScored         EventType = "swipe_scored"
	EventChallengeCompleted  EventType = "challenge_completed"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventLevelUp             EventType = "level_up"
	EventRunFinished         EventType = "challenge_run_finished"
	EventPersistenceDeferred EventType = "persistence_deferred"
)

// Event is pushed to the presentation layer after engine state changes.
type Event struct {
	Type    EventType `json:"type"`
	UserID  string    `json:"user_id"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// SwipeScoredPayload accompanies EventSwipeScored.
type SwipeScoredPayload struct {
	CandidateID string      `json:"candidate_id"`
	Action      SwipeAction `json:"action"`
	BaseXP      int64       `json:"base_xp"`
	ModeBonus   int64       `json:"mode_bonus"`
	TotalXP     int64       `json:"total_xp"`
}

// LevelUpPayload accompanies EventLevelUp.
type LevelUpPayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// RunFinishedPayload accompanies EventRunFinished.
type RunFinishedPayload struct {
	FinalScore  int   `json:"final_score"`
	RewardXP    int64 `json:"reward_xp"`
	RewardCoins int64 `json:"reward_coins"`
}

// PersistenceDeferredPayload accompanies EventPersistenceDeferred.
type PersistenceDeferredPayload struct {
	Op      string `json:"op"`
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(Event) {}

// MultiPublisher fans an event out to several publishers.
type MultiPublisher []EventPublisher

// Publish implements EventPublisher.
func (m MultiPublisher) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
