package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/app/engagement"
	"github.com/BigPhill11/pilot-program-learn-sub001/internal/daemon"
)

func init() {
	statsCmd.Flags().StringVarP(&statsUser, "user", "u", "", "Player name")
	_ = statsCmd.MarkFlagRequired("user")
	challengeCmd.Flags().StringVarP(&statsUser, "user", "u", "", "Player name")
	_ = challengeCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(statsCmd, challengeCmd)
}

var statsUser string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a player's level, streak and achievements",
	RunE:  runStats,
}

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Show today's daily challenge for a player",
	RunE:  runChallenge,
}

func runStats(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()
	ctx := context.Background()

	p, err := d.Sessions.Profile(ctx, statsUser)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(statsUser))
	fmt.Fprintln(out, renderStats(p.Stats, p.Level))
	fmt.Fprintf(out, "Likes %d   Super likes %d   Passes %d   Challenges completed %d\n",
		p.Stats.LikeCount, p.Stats.SuperLikeCount, p.Stats.PassCount, p.Stats.ChallengesCompleted)
	if next := engagement.UnlocksForLevel(p.Level.Level + 1); len(next) > 0 {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("Next level unlocks: %v", next)))
	}

	list, err := d.Sessions.Achievements(ctx, statsUser)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nAchievements %d/%d\n", p.Unlocked, p.Total)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range list {
		mark := "  "
		if a.Unlocked {
			mark = "✔ "
		}
		fmt.Fprintf(w, "%s%s %s\t%s\t%s\n", mark, a.Icon, a.Name, a.Category, a.Description)
	}
	return w.Flush()
}

func runChallenge(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Sessions.Profile(context.Background(), statsUser)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderChallenge(p.Challenge))
	return nil
}
