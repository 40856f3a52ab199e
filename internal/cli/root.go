// Package cli implements the scry command line: the HTTP server, schema
// migrations and a local review loop over the same services.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-engine/internal/config"
	"github.com/phrazzld/scry-engine/internal/platform/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global flag names.
const (
	flagConfig  = "config"
	flagMigrate = "migrate"
	flagAt      = "at"
	flagOwner   = "owner"
)

// RootCmd returns the scry command with every subcommand attached.
func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "scry",
		Short: "Spaced repetition scheduling engine",
		Long: `scry schedules flashcard reviews with the SM-2 algorithm.
It serves the review API over HTTP and can run review sessions locally.`,
		SilenceUsage: true,
	}
	AddGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(MigrateCmd())
	rootCmd.AddCommand(EnrollCmd())
	rootCmd.AddCommand(DueCmd())
	rootCmd.AddCommand(ReviewCmd())
	rootCmd.AddCommand(StatsCmd())
	rootCmd.AddCommand(TokenCmd())
	return rootCmd
}

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(fs *pflag.FlagSet) {
	fs.String(flagConfig, "", "path to a config file (default ./config.yaml if present)")
	fs.Bool(flagMigrate, false, "apply pending migrations before running")
	fs.String(flagAt, "", "act as if the current time were this RFC 3339 timestamp")
}

// ownerValue is a pflag.Value holding an owner ID.
type ownerValue struct {
	id uuid.UUID
}

var _ pflag.Value = (*ownerValue)(nil)

func (v *ownerValue) String() string {
	if v.id == uuid.Nil {
		return ""
	}
	return v.id.String()
}

func (v *ownerValue) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	if id == uuid.Nil {
		return fmt.Errorf("owner id cannot be the nil uuid")
	}
	v.id = id
	return nil
}

func (v *ownerValue) Type() string { return "uuid" }

// addOwnerFlag registers the required --owner flag on cmd.
func addOwnerFlag(cmd *cobra.Command) *ownerValue {
	owner := &ownerValue{}
	cmd.Flags().Var(owner, flagOwner, "owner id (uuid)")
	_ = cmd.MarkFlagRequired(flagOwner)
	return owner
}

// loadConfig reads configuration from --config or the default locations.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// setup loads configuration, logs to stderr and builds the application.
// The caller must call cleanup on the result.
func setup(ctx context.Context, cmd *cobra.Command) (*application, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.SetupWithWriter(cfg.Server, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	migrate, err := cmd.Flags().GetBool(flagMigrate)
	if err != nil {
		return nil, err
	}
	now, err := clockFlag(cmd)
	if err != nil {
		return nil, err
	}
	return newApplication(ctx, cfg, log, appOptions{migrate: migrate, now: now})
}

// clockFlag returns a fixed clock for --at, or nil when it is not set.
func clockFlag(cmd *cobra.Command) (func() time.Time, error) {
	raw, err := cmd.Flags().GetString(flagAt)
	if err != nil || raw == "" {
		return nil, err
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flagAt, err)
	}
	return func() time.Time { return at }, nil
}
