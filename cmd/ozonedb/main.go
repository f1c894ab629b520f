// Command ozonedb runs and administers an ozonedb instance.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ozonedb/cmd/ozonedb/cli"
	"ozonedb/internal/logging"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "ozonedb",
		Short: "Embedded zone-partitioned key-value storage engine",
	}
	rootCmd.PersistentFlags().String("home", "", "home directory holding zone data and config (default: ./ozonedb-data)")
	rootCmd.PersistentFlags().String("config-type", "file", "config store type: file, sqlite, or memory")

	rootCmd.AddCommand(
		cli.NewServerCommand(logger),
		cli.NewGetCommand(logger),
		cli.NewPutCommand(logger),
		cli.NewDeleteCommand(logger),
		cli.NewZonesCommand(logger),
		cli.NewTokenCommand(logger),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
