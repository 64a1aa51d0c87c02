package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Input errors
	ErrInvalidAction    = errors.New("invalid swipe action")
	ErrInvalidMode      = errors.New("invalid game mode")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidCandidate = errors.New("invalid candidate")

	// Deck errors
	ErrUnknownCandidate = errors.New("candidate not in deck")
	ErrDeckExhausted    = errors.New("deck exhausted")
	ErrEmptyDeck        = errors.New("deck has no candidates")
	ErrAlreadySwiped    = errors.New("candidate already swiped this round")

	// Session errors
	ErrSessionNotFound = errors.New("game session not found")
	ErrNoSuperLikes    = errors.New("no super likes remaining today")
	ErrRunFinished     = errors.New("challenge run already finished")

	// Catalog errors
	ErrEmptyCatalog    = errors.New("catalog is empty")
	ErrUnknownScenario = errors.New("unknown macro scenario")

	// Persistence errors
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrOutboxFull   = errors.New("outbox is full")
	ErrRetryExpired = errors.New("persistence retries exhausted")
)
