package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ozonedb/internal/auth"
)

// NewTokenCommand returns the "token" command group, whose "issue"
// subcommand mints a bearer JWT against the instance's configured
// network.jwt_secret for use against the HTTP surface (package httpapi).
func NewTokenCommand(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens for the HTTP API",
	}

	var role string
	issue := &cobra.Command{
		Use:   "issue <username>",
		Short: "Issue a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := resolveHome(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openConfigStore(cmd, home)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := cmd.Context()
			opts, err := loadOrDefaultOptions(ctx, store)
			if err != nil {
				return err
			}
			if opts.Network.JWTSecret == "" {
				return fmt.Errorf("network.jwt_secret is not set; configure it before issuing tokens")
			}
			hours := opts.Network.TokenDurationHours
			if hours <= 0 {
				hours = 24
			}
			tokens := auth.NewTokenService([]byte(opts.Network.JWTSecret), time.Duration(hours)*time.Hour)

			token, expiresAt, err := tokens.Issue(args[0], role)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires_at=%s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	issue.Flags().StringVar(&role, "role", "admin", "role recorded in the issued token's claims")
	root.AddCommand(issue)
	return root
}
