package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/daemon"
)

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 10, "Number of players to show")
	rootCmd.AddCommand(leaderboardCmd)
}

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"top"},
	Short:   "List the top players by XP",
	RunE:    runLeaderboard,
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.Sessions.Leaderboard(context.Background(), leaderboardLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No players yet. Run 'pilot play' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tLEVEL\tXP\tSWIPES")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", e.Rank, e.UserID, e.Level, e.TotalXP, e.SwipeCount)
	}
	return w.Flush()
}
