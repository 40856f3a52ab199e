package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/phrazzld/scry-engine/internal/platform/migrations"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the schema migration command.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|reset]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version", "reset"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openDatabase(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			m, err := migrations.New(db, cfg.Database.Driver, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ok := color.New(color.FgGreen).Sprint("OK")
			switch action {
			case "up":
				n, err := m.Up(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s applied %d migration(s)\n", ok, n)
			case "down":
				if err := m.Down(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s rolled back one migration\n", ok)
			case "reset":
				if err := m.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s rolled back all migrations\n", ok)
			case "version":
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "version %d\n", v)
			case "status":
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
				for _, s := range statuses {
					state := color.New(color.FgYellow).Sprint("pending")
					appliedAt := "-"
					if s.Applied {
						state = color.New(color.FgGreen).Sprint("applied")
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, state, appliedAt, s.Path)
				}
				w.Flush()
			}
			return nil
		},
	}
}
