// Package domain contains the pure types of the Deal Deck game engine.
// Nothing in this package touches storage, transport, or the clock.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ─── Candidates ─────────────────────────────────────────────────────────────

// Candidate is one company card in the swipe deck. Immutable for a session.
type Candidate struct {
	ID            string          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Ticker        string          `json:"ticker" yaml:"ticker"`
	Sector        string          `json:"sector" yaml:"sector"`
	MarketCap     decimal.Decimal `json:"market_cap" yaml:"market_cap"` // USD
	PERatio       float64         `json:"pe_ratio" yaml:"pe_ratio"`
	DividendYield float64         `json:"dividend_yield" yaml:"dividend_yield"` // percent, 0 = none
	Blurb         string          `json:"blurb,omitempty" yaml:"blurb"`
}

// Market-cap thresholds in USD.
var (
	MegaCapMin  = decimal.New(200, 9)
	LargeCapMin = decimal.New(10, 9)
	MidCapMin   = decimal.New(2, 9)
	SmallCapMin = decimal.New(300, 6)
)

// CapClass is a coarse market-capitalisation bucket.
type CapClass string

const (
	CapMega  CapClass = "mega"
	CapLarge CapClass = "large"
	CapMid   CapClass = "mid"
	CapSmall CapClass = "small"
	CapMicro CapClass = "micro"
)

// CapClass buckets the candidate by market cap.
func (c Candidate) CapClass() CapClass {
	switch {
	case c.MarketCap.GreaterThanOrEqual(MegaCapMin):
		return CapMega
	case c.MarketCap.GreaterThanOrEqual(LargeCapMin):
		return CapLarge
	case c.MarketCap.GreaterThanOrEqual(MidCapMin):
		return CapMid
	case c.MarketCap.GreaterThanOrEqual(SmallCapMin):
		return CapSmall
	default:
		return CapMicro
	}
}

// PaysDividend reports whether the candidate has a positive dividend yield.
func (c Candidate) PaysDividend() bool {
	return c.DividendYield > 0
}

// Validate rejects candidates that cannot be placed in a deck.
// Missing sector or zero metrics are allowed; they only degrade scoring.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCandidate)
	}
	if c.MarketCap.IsNegative() {
		return fmt.Errorf("%w: %s has negative market cap", ErrInvalidCandidate, c.ID)
	}
	return nil
}

// ─── Swipe Actions ──────────────────────────────────────────────────────────

// SwipeAction is the user's decision on a candidate.
type SwipeAction string

const (
	ActionPass      SwipeAction = "pass"
	ActionLike      SwipeAction = "like"
	ActionSuperLike SwipeAction = "super_like"
	ActionSkip      SwipeAction = "skip"
	ActionNever     SwipeAction = "never"
)

// AllActions lists every valid action in display order.
var AllActions = []SwipeAction{ActionPass, ActionLike, ActionSuperLike, ActionSkip, ActionNever}

// ParseSwipeAction converts raw input into a SwipeAction.
func ParseSwipeAction(s string) (SwipeAction, error) {
	a := SwipeAction(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionPass, ActionLike, ActionSuperLike, ActionSkip, ActionNever:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// IsMatch reports whether the action adds the candidate to the user's matches.
func (a SwipeAction) IsMatch() bool {
	return a == ActionLike || a == ActionSuperLike
}

// ─── Game Modes ─────────────────────────────────────────────────────────────

// GameMode selects the scoring rules layered on top of the base XP.
type GameMode string

const (
	ModeClassic       GameMode = "classic"
	ModeMacroAware    GameMode = "macro-aware"
	ModeThesisBuilder GameMode = "thesis-builder"
	ModeTimeHorizon   GameMode = "time-horizon"
	ModeChallengeRun  GameMode = "challenge-run"
)

// ParseGameMode converts raw input into a GameMode. Empty input means classic.
func ParseGameMode(s string) (GameMode, error) {
	m := GameMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeClassic, nil
	case ModeClassic, ModeMacroAware, ModeThesisBuilder, ModeTimeHorizon, ModeChallengeRun:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Horizon is the investment horizon chosen in time-horizon mode.
type Horizon string

const (
	HorizonNone  Horizon = ""
	HorizonShort Horizon = "short"
	HorizonLong  Horizon = "long"
)

// ParseHorizon accepts "", "short" or "long".
func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(strings.ToLower(strings.TrimSpace(s)))
	switch h {
	case HorizonNone, HorizonShort, HorizonLong:
		return h, nil
	}
	return "", fmt.Errorf("%w: horizon %q", ErrInvalidInput, s)
}
