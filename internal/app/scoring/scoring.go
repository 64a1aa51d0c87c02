// Package scoring converts a swipe into XP.
//
// A score is the fixed base XP for the action plus a bonus that depends on
// the game mode. Scores may be negative; aggregating them into player stats
// (and any floor at zero) is the caller's concern.
package scoring

import (
	"fmt"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// Base XP per action.
var baseXP = map[domain.SwipeAction]int64{
	domain.ActionPass:      5,
	domain.ActionLike:      10,
	domain.ActionSuperLike: 25,
	domain.ActionSkip:      0,
	domain.ActionNever:     -5,
}

// Mode bonuses.
const (
	MacroAlignedBonus   int64 = 15
	MacroContraryBonus  int64 = -5
	ThesisBaseBonus     int64 = 10
	ThesisPerTagBonus   int64 = 3
	ThesisMinTags             = 2
	ThesisMaxTags             = 3
	HorizonAlignedBonus int64 = 12
)

// MacroContext answers scenario questions for the macro-aware and
// time-horizon modes. Implemented by macro.Provider.
type MacroContext interface {
	SectorBias(scenarioID, sector string) domain.Bias
	LongTermFavorable(scenarioID string) bool
}

// ModeState is the per-swipe UI state some modes read. The session clears
// thesis and horizon selections after every swipe.
type ModeState struct {
	ScenarioID          string         `json:"scenario_id"`
	SelectedThesisCount int            `json:"selected_thesis_count"`
	Horizon             domain.Horizon `json:"horizon"`
}

// Score is the result of scoring one swipe.
type Score struct {
	BaseXP    int64 `json:"base_xp"`
	ModeBonus int64 `json:"mode_bonus"`
	TotalXP   int64 `json:"total_xp"`
}

// Scorer is stateless apart from its macro context.
type Scorer struct {
	macro MacroContext
}

// NewScorer creates a scorer. A nil context makes every sector neutral.
func NewScorer(m MacroContext) *Scorer {
	return &Scorer{macro: m}
}

// BaseXP returns the fixed XP for an action.
func BaseXP(a domain.SwipeAction) (int64, error) {
	xp, ok := baseXP[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAction, a)
	}
	return xp, nil
}

// Score computes base XP plus the mode bonus.
func (s *Scorer) Score(a domain.SwipeAction, mode domain.GameMode, c domain.Candidate, st ModeState) (Score, error) {
	base, err := BaseXP(a)
	if err != nil {
		return Score{}, err
	}

	var bonus int64
	switch mode {
	case domain.ModeClassic, domain.ModeChallengeRun:
		bonus = 0
	case domain.ModeMacroAware:
		bonus = s.macroBonus(a, c, st)
	case domain.ModeThesisBuilder:
		bonus = ThesisBonus(st.SelectedThesisCount)
	case domain.ModeTimeHorizon:
		bonus = s.horizonBonus(st)
	default:
		return Score{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}

	return Score{BaseXP: base, ModeBonus: bonus, TotalXP: base + bonus}, nil
}

func (s *Scorer) macroBonus(a domain.SwipeAction, c domain.Candidate, st ModeState) int64 {
	bias := domain.BiasNeutral
	if s.macro != nil {
		bias = s.macro.SectorBias(st.ScenarioID, c.Sector)
	}
	switch {
	case a == domain.ActionLike && bias == domain.BiasPositive:
		return MacroAlignedBonus
	case a == domain.ActionPass && bias == domain.BiasNegative:
		return MacroAlignedBonus
	case a == domain.ActionLike && bias == domain.BiasNegative:
		return MacroContraryBonus
	}
	return 0
}

// ThesisBonus returns the thesis-builder bonus for n selected tags.
// Selections beyond the UI cap are clamped.
func ThesisBonus(n int) int64 {
	if n < ThesisMinTags {
		return 0
	}
	if n > ThesisMaxTags {
		n = ThesisMaxTags
	}
	return ThesisBaseBonus + ThesisPerTagBonus*int64(n)
}

func (s *Scorer) horizonBonus(st ModeState) int64 {
	if st.Horizon == domain.HorizonNone {
		return 0
	}
	favorable := s.macro != nil && s.macro.LongTermFavorable(st.ScenarioID)
	if (st.Horizon == domain.HorizonLong && favorable) || (st.Horizon == domain.HorizonShort && !favorable) {
		return HorizonAlignedBonus
	}
	return 0
}
