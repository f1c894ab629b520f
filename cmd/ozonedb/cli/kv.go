package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewGetCommand returns the "get" command.
func NewGetCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch the value stored under key",
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
			database, err := openDB(ctx, logger, home, opts)
			if err != nil {
				return err
			}
			defer database.Close()

			value, meta, err := database.Get(ctx, []byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", value)
			fmt.Fprintf(cmd.ErrOrStderr(), "written_at=%d.%09d\n", meta.TimestampSecs, meta.TimestampNanos)
			return nil
		},
	}
}

// NewPutCommand returns the "put" command.
func NewPutCommand(logger *slog.Logger) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store value under key",
		Args:  cobra.ExactArgs(2),
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
			database, err := openDB(ctx, logger, home, opts)
			if err != nil {
				return err
			}
			defer database.Close()

			chunks, err := database.Insert(ctx, []byte(args[0]), []byte(args[1]), []byte(userID))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok (%d chunk(s))\n", chunks)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID recorded in the entry's metadata")
	return cmd
}

// NewDeleteCommand returns the "delete" command.
func NewDeleteCommand(logger *slog.Logger) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete the value stored under key",
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
			database, err := openDB(ctx, logger, home, opts)
			if err != nil {
				return err
			}
			defer database.Close()

			deleted, err := database.Delete(ctx, []byte(args[0]), []byte(userID))
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "not found")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID recorded in the tombstone's metadata")
	return cmd
}
