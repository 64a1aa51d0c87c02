package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// Challenge-run rules.
const (
	RunLength       = 10
	GoodDecisionPts = 10
)

var (
	runBigCap   = decimal.New(10, 9) // like above this is a good call
	runSmallCap = decimal.New(1, 9)  // pass below this is a good call
)

// RunResult is the reward for a finished challenge run.
type RunResult struct {
	FinalScore  int   `json:"final_score"`
	RewardXP    int64 `json:"reward_xp"`
	RewardCoins int64 `json:"reward_coins"`
}

// ChallengeRun tracks a fixed-length run of swipes.
type ChallengeRun struct {
	length int
	swipes int
	score  int
	result *RunResult
}

// NewChallengeRun starts a run of RunLength swipes.
func NewChallengeRun() *ChallengeRun {
	return &ChallengeRun{length: RunLength}
}

// IsGoodDecision is the run heuristic: like a big company or pass on a small one.
func IsGoodDecision(c domain.Candidate, a domain.SwipeAction) bool {
	switch a {
	case domain.ActionLike:
		return c.MarketCap.GreaterThan(runBigCap)
	case domain.ActionPass:
		return c.MarketCap.LessThan(runSmallCap)
	}
	return false
}

// Record counts one swipe. On the final swipe it returns the result and true.
// Recording after the run finished returns ErrRunFinished.
func (r *ChallengeRun) Record(c domain.Candidate, a domain.SwipeAction) (RunResult, bool, error) {
	if r.result != nil {
		return RunResult{}, false, domain.ErrRunFinished
	}
	r.swipes++
	if IsGoodDecision(c, a) {
		r.score += GoodDecisionPts
	}
	if r.swipes < r.length {
		return RunResult{}, false, nil
	}
	res := Reward(r.score)
	r.result = &res
	return res, true, nil
}

// Reward derives both currencies from a final score.
func Reward(finalScore int) RunResult {
	xp := int64(finalScore / 2)
	return RunResult{
		FinalScore:  finalScore,
		RewardXP:    xp,
		RewardCoins: xp / 5,
	}
}

// Swipes returns how many swipes have been recorded.
func (r *ChallengeRun) Swipes() int { return r.swipes }

// Score returns the running score.
func (r *ChallengeRun) Score() int { return r.score }

// Remaining returns swipes left in the run.
func (r *ChallengeRun) Remaining() int { return r.length - r.swipes }

// Finished reports whether the run has ended.
func (r *ChallengeRun) Finished() bool { return r.result != nil }

// Result returns the final result once finished.
func (r *ChallengeRun) Result() (RunResult, bool) {
	if r.result == nil {
		return RunResult{}, false
	}
	return *r.result, true
}
