package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/session"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1).
			Width(60)

	scenarioStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(0, 1).
			Width(60)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	xpStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	rewardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)
)

var (
	billion  = decimal.New(1, 9)
	trillion = decimal.New(1, 12)
	million  = decimal.New(1, 6)
)

// humanCap formats a USD market cap as $1.2T / $45.0B / $800M.
func humanCap(v decimal.Decimal) string {
	switch {
	case v.GreaterThanOrEqual(trillion):
		return "$" + v.Div(trillion).StringFixed(1) + "T"
	case v.GreaterThanOrEqual(billion):
		return "$" + v.Div(billion).StringFixed(1) + "B"
	case v.GreaterThanOrEqual(million):
		return "$" + v.Div(million).StringFixed(0) + "M"
	}
	return "$" + v.StringFixed(0)
}

func renderCard(c domain.Candidate, pos, total int) string {
	var b strings.Builder
	name := c.Name
	if c.Ticker != "" {
		name += " (" + c.Ticker + ")"
	}
	b.WriteString(titleStyle.Render(name))
	b.WriteString(dimStyle.Render(fmt.Sprintf("   %d/%d", pos, total)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sector: %s   Size: %s (%s)\n", c.Sector, c.CapClass(), humanCap(c.MarketCap))
	pe := "n/a"
	if c.PERatio > 0 {
		pe = fmt.Sprintf("%.1fx", c.PERatio)
	}
	div := "none"
	if c.PaysDividend() {
		div = fmt.Sprintf("%.2f%%", c.DividendYield)
	}
	fmt.Fprintf(&b, "P/E: %s   Dividend: %s", pe, div)
	if c.Blurb != "" {
		b.WriteString("\n\n" + c.Blurb)
	}
	return cardStyle.Render(b.String())
}

func renderScenario(s domain.MacroScenario) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.TrimSpace(s.Icon+" "+s.Name)) + "\n")
	b.WriteString(s.Summary + "\n")
	if n := strings.TrimSpace(s.Narrative); n != "" {
		b.WriteString(dimStyle.Render(n) + "\n")
	}
	for _, ind := range s.Indicators {
		fmt.Fprintf(&b, "  • %s: %s (%s)\n", ind.Name, ind.Value, ind.Direction)
	}
	if s.TendsToWin != "" {
		b.WriteString(xpStyle.Render("Tends to win: ") + s.TendsToWin + "\n")
	}
	if s.TendsToLose != "" {
		b.WriteString(lossStyle.Render("Tends to lose: ") + s.TendsToLose)
	}
	return scenarioStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderChallenge(c domain.DailyChallenge) string {
	status := fmt.Sprintf("%d/%d", c.Progress, c.Target)
	if c.Completed {
		status = xpStyle.Render("done")
	}
	return fmt.Sprintf("%s %s: %s [%s] +%d XP", c.Icon, titleStyle.Render(c.Name), c.Description, status, c.XPReward)
}

func renderStats(s domain.GameStats, lvl domain.UserLevel) string {
	return fmt.Sprintf("Level %d (%d/%d XP, %.0f%%)   Streak %d (best %d)   Swipes %d   Super likes left %d   Coins %d",
		lvl.Level, lvl.CurrentXP, lvl.NextLevelXP, lvl.ProgressPct,
		s.CurrentStreak, s.LongestStreak, s.SwipeCount, s.SuperLikesRemaining, s.Coins)
}

func renderSwipe(res session.SwipeResult) string {
	xp := fmt.Sprintf("%+d XP", res.Score.TotalXP)
	style := xpStyle
	if res.Score.TotalXP < 0 {
		style = lossStyle
	}
	line := fmt.Sprintf("%s %s", res.Action, style.Render(xp))
	if res.Score.ModeBonus != 0 {
		line += dimStyle.Render(fmt.Sprintf(" (base %d, bonus %+d)", res.Score.BaseXP, res.Score.ModeBonus))
	}
	return line
}

// consoleRenderer prints engine events to a terminal.
type consoleRenderer struct {
	w io.Writer
}

var _ domain.EventPublisher = consoleRenderer{}

// Publish implements domain.EventPublisher.
func (r consoleRenderer) Publish(e domain.Event) {
	switch p := e.Payload.(type) {
	case domain.LevelUpPayload:
		fmt.Fprintln(r.w, rewardStyle.Render(fmt.Sprintf("⬆ Level up! %d → %d", p.From, p.To)))
	case domain.AchievementDef:
		fmt.Fprintln(r.w, rewardStyle.Render(fmt.Sprintf("%s Achievement unlocked: %s", p.Icon, p.Name)), dimStyle.Render(p.Description))
	case domain.DailyChallenge:
		if e.Type == domain.EventChallengeCompleted {
			fmt.Fprintln(r.w, rewardStyle.Render(fmt.Sprintf("%s Daily challenge complete: %s (+%d XP)", p.Icon, p.Name, p.XPReward)))
		}
	case domain.RunFinishedPayload:
		fmt.Fprintln(r.w, rewardStyle.Render(fmt.Sprintf("🏁 Run finished: score %d, +%d XP, +%d coins", p.FinalScore, p.RewardXP, p.RewardCoins)))
	case domain.PersistenceDeferredPayload:
		fmt.Fprintln(r.w, lossStyle.Render(fmt.Sprintf("progress not saved yet (%s, attempt %d): %s", p.Op, p.Attempt, p.Error)))
	}
}
