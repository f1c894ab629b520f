// Package cli implements the ozonedb command-line subcommands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ozonedb/internal/coldstore"
	"ozonedb/internal/config"
	configfile "ozonedb/internal/config/file"
	configmem "ozonedb/internal/config/memory"
	configsqlite "ozonedb/internal/config/sqlite"
	"ozonedb/internal/db"
)

func resolveHome(cmd *cobra.Command) (string, error) {
	home, _ := cmd.Flags().GetString("home")
	if home == "" {
		home = "./ozonedb-data"
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", fmt.Errorf("create home directory: %w", err)
	}
	return home, nil
}

// openConfigStore opens the config.Store named by the --config-type flag,
// rooted at home.
func openConfigStore(cmd *cobra.Command, home string) (config.Store, func() error, error) {
	configType, _ := cmd.Flags().GetString("config-type")
	switch configType {
	case "memory":
		return configmem.NewStore(), func() error { return nil }, nil
	case "sqlite":
		s, err := configsqlite.NewStore(filepath.Join(home, "config.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "file", "":
		s := configfile.NewStore(filepath.Join(home, "config.json"))
		return s, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown config type %q", configType)
	}
}

// loadOrDefaultOptions loads persisted options, falling back to (and
// persisting) config.Default() when none have been saved yet.
func loadOrDefaultOptions(ctx context.Context, store config.Store) (*config.Options, error) {
	opts, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts != nil {
		return opts, nil
	}
	defaults := config.Default()
	if err := store.Save(ctx, &defaults); err != nil {
		return nil, fmt.Errorf("save default config: %w", err)
	}
	return &defaults, nil
}

// zoneRoot resolves the on-disk directory for zone i, honoring any
// configured override.
func zoneRoot(home string, opts *config.Options, i int) string {
	for _, ov := range opts.ZoneOverrides {
		if ov.ZoneIndex == i && ov.Root != "" {
			return ov.Root
		}
	}
	return filepath.Join(home, "zones", fmt.Sprintf("%02d", i))
}

// openDB builds a db.DB from opts, creating zone directories under home.
func openDB(ctx context.Context, logger *slog.Logger, home string, opts *config.Options) (*db.DB, error) {
	roots := make([]string, opts.NumZones)
	for i := range roots {
		roots[i] = zoneRoot(home, opts, i)
		if err := os.MkdirAll(roots[i], 0o755); err != nil {
			return nil, fmt.Errorf("create zone directory: %w", err)
		}
	}

	cold, err := coldstore.New(ctx, opts.ColdStore)
	if err != nil {
		return nil, fmt.Errorf("build cold store: %w", err)
	}

	return db.Open(ctx, db.Config{
		NumZones:              opts.NumZones,
		ZoneRoots:              roots,
		DataFileMaxBytes:       opts.DataFileMaxBytes,
		CacheSizeLimitBytes:    opts.CacheSizeLimitBytes,
		BytesBeforeHashing:     opts.BytesBeforeHashing,
		NumCacheShardsPerZone:  opts.NumCbotsPerZone,
		NumReaderBotsPerZone:   opts.NumRbotsPerZone,
		NumGCBotsPerZone:       opts.NumIgbotsPerZone,
		GCStaleThreshold:       opts.GCStaleThreshold,
		GCEnabled:              opts.GCEnabled,
		InitLoadCaches:         opts.InitLoadCaches,
		ZoneStateUpdateEvery:   time.Duration(opts.ZoneStateUpdateSecs) * time.Second,
		ChunkThreshold:         opts.RestChunkThreshold,
		ChunkSize:              opts.RestChunkBytes,
		ColdStore:              cold,
		Logger:                 logger,
	})
}
