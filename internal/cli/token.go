package cli

import (
	"fmt"

	"github.com/phrazzld/scry-engine/internal/platform/token"
	"github.com/spf13/cobra"
)

// TokenCmd returns the command that mints a bearer token for an owner.
func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Long: `Print a signed bearer token whose subject is the given owner. Requires
auth.jwt_secret. Intended for development and scripting.`,
		Args: cobra.NoArgs,
	}
	owner := addOwnerFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tokens, err := token.NewService(cfg.Auth)
		if err != nil {
			return fmt.Errorf("failed to initialize token service: %w", err)
		}
		signed, err := tokens.Issue(cmd.Context(), owner.id)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	}
	return cmd
}
