package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/daemon"
)

func init() {
	scenarioCmd.Flags().StringVar(&scenarioDate, "date", "", "Day to show (YYYY-MM-DD, default today)")
	scenarioCmd.Flags().BoolVar(&scenarioAll, "all", false, "List the whole rotation")
	rootCmd.AddCommand(scenarioCmd)
}

var (
	scenarioDate string
	scenarioAll  bool
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Show the macro scenario for a day",
	RunE:  runScenario,
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	provider, err := daemon.LoadScenarios(cfg.Game)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if scenarioAll {
		for _, s := range provider.Catalog() {
			fmt.Fprintln(out, renderScenario(s))
		}
		return nil
	}

	loc := cfg.Location()
	date := time.Now().In(loc)
	if scenarioDate != "" {
		date, err = time.ParseInLocation(time.DateOnly, scenarioDate, loc)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
	}
	fmt.Fprintln(out, dimStyle.Render(date.Format("Monday, 2 January 2006")))
	fmt.Fprintln(out, renderScenario(provider.ScenarioForDate(date)))
	return nil
}
