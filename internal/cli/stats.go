package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/phrazzld/scry-engine/internal/api"
	"github.com/spf13/cobra"
)

// StatsCmd returns the command that prints an owner's statistics.
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review statistics",
		Args:  cobra.NoArgs,
	}
	owner := addOwnerFlag(cmd)
	cmd.Flags().Int("window", api.DefaultRetentionWindowDays, "retention window in days")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetInt("window")
		if window <= 0 {
			return fmt.Errorf("--window must be positive")
		}

		ctx := cmd.Context()
		app, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.cleanup()

		s, err := app.stats.Summary(ctx, owner.id, window)
		if err != nil {
			return fmt.Errorf("failed to compute statistics: %w", err)
		}

		out := cmd.OutOrStdout()
		heading := color.New(color.Bold)
		fmt.Fprintln(out, heading.Sprint("Retention"))
		fmt.Fprintf(out, "  last %d days: %.1f%% (%d of %d)\n",
			s.Retention.WindowDays, s.Retention.Rate*100, s.Retention.Successful, s.Retention.Total)
		fmt.Fprintln(out, heading.Sprint("Mastery"))
		fmt.Fprintf(out, "  learning:  %d\n", s.Mastery.Learning)
		fmt.Fprintf(out, "  reviewing: %d\n", s.Mastery.Reviewing)
		fmt.Fprintf(out, "  mastered:  %s\n", color.New(color.FgGreen).Sprint(s.Mastery.Mastered))
		fmt.Fprintln(out, heading.Sprint("Schedule"))
		fmt.Fprintf(out, "  streak:    %d day(s)\n", s.StreakDays)
		fmt.Fprintf(out, "  due today: %d\n", s.DueToday)
		overdue := fmt.Sprint(s.Overdue)
		if s.Overdue > 0 {
			overdue = color.New(color.FgRed).Sprint(s.Overdue)
		}
		fmt.Fprintf(out, "  overdue:   %s\n", overdue)
		return nil
	}
	return cmd
}
