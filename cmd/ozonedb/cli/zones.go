package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewZonesCommand returns the "zones" command, reporting per-zone state.
func NewZonesCommand(logger *slog.Logger) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "zones",
		Short: "Print per-zone state",
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

			states := database.ZoneStates()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(states)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ZONE\tLIVE_FILE\tCACHE_BYTES\tPENDING")
			for _, s := range states {
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", s.Index, s.LiveFileNumber, s.CacheSizeBytes, s.PendingMessages)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print zone states as JSON")
	return cmd
}
