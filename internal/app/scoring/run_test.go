package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/scoring"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

func TestIsGoodDecision(t *testing.T) {
	tests := []struct {
		name string
		cap  int64
		a    domain.SwipeAction
		want bool
	}{
		{"like mega", 50_000_000_000, domain.ActionLike, true},
		{"like exactly 10B", 10_000_000_000, domain.ActionLike, false},
		{"like small", 500_000_000, domain.ActionLike, false},
		{"pass small", 500_000_000, domain.ActionPass, true},
		{"pass exactly 1B", 1_000_000_000, domain.ActionPass, false},
		{"pass mega", 50_000_000_000, domain.ActionPass, false},
		{"skip small", 500_000_000, domain.ActionSkip, false},
		{"never small", 500_000_000, domain.ActionNever, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoring.IsGoodDecision(tech(tt.cap), tt.a))
		})
	}
}

func TestChallengeRun_SixGoodDecisions(t *testing.T) {
	run := scoring.NewChallengeRun()

	// 4 good likes, 2 good passes, 4 neutral swipes.
	swipes := []struct {
		cap int64
		a   domain.SwipeAction
	}{
		{50_000_000_000, domain.ActionLike},
		{20_000_000_000, domain.ActionLike},
		{300_000_000, domain.ActionPass},
		{5_000_000_000, domain.ActionLike},
		{90_000_000_000, domain.ActionLike},
		{800_000_000, domain.ActionPass},
		{5_000_000_000, domain.ActionPass},
		{400_000_000, domain.ActionSkip},
		{11_000_000_000, domain.ActionLike},
		{50_000_000_000, domain.ActionNever},
	}

	var (
		res  scoring.RunResult
		done bool
		err  error
	)
	for i, sw := range swipes {
		res, done, err = run.Record(tech(sw.cap), sw.a)
		require.NoError(t, err)
		if i < len(swipes)-1 {
			assert.False(t, done, "run ended early at swipe %d", i+1)
		}
	}

	require.True(t, done)
	assert.Equal(t, scoring.RunResult{FinalScore: 60, RewardXP: 30, RewardCoins: 6}, res)
	assert.True(t, run.Finished())
	assert.Equal(t, 0, run.Remaining())

	got, ok := run.Result()
	require.True(t, ok)
	assert.Equal(t, res, got)

	_, _, err = run.Record(tech(50_000_000_000), domain.ActionLike)
	assert.ErrorIs(t, err, domain.ErrRunFinished)
	assert.Equal(t, 10, run.Swipes())
}

func TestReward_Floors(t *testing.T) {
	assert.Equal(t, scoring.RunResult{FinalScore: 0}, scoring.Reward(0))
	assert.Equal(t, scoring.RunResult{FinalScore: 90, RewardXP: 45, RewardCoins: 9}, scoring.Reward(90))
	assert.Equal(t, scoring.RunResult{FinalScore: 100, RewardXP: 50, RewardCoins: 10}, scoring.Reward(100))
}
