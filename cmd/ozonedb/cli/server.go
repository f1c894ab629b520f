package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ozonedb/internal/auth"
	"ozonedb/internal/cert"
	"ozonedb/internal/httpapi"
)

// NewServerCommand returns the "server" command, which opens the engine
// and serves it over the HTTP network surface until interrupted.
func NewServerCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the ozonedb HTTP server",
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

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			opts, err := loadOrDefaultOptions(ctx, store)
			if err != nil {
				return err
			}

			database, err := openDB(ctx, logger, home, opts)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer database.Close()

			var tokens *auth.TokenService
			if !opts.Network.NoAuth {
				secret := opts.Network.JWTSecret
				if secret == "" {
					return fmt.Errorf("network.jwt_secret must be set (or pass --no-auth)")
				}
				hours := opts.Network.TokenDurationHours
				if hours <= 0 {
					hours = 24
				}
				tokens = auth.NewTokenService([]byte(secret), time.Duration(hours)*time.Hour)
			}

			// certManager stays nil (the interface, not just the pointer)
			// when no cert files are configured: assigning a nil *cert.Manager
			// to httpapi.Config.CertManager would make it non-nil as an
			// interface and crash the first TLS handshake.
			var certManager httpapi.CertManager
			if opts.Network.TLSCertFile != "" && opts.Network.TLSKeyFile != "" {
				mgr := cert.New(cert.Config{Logger: logger})
				if err := mgr.LoadFromConfig("default", map[string]cert.CertSource{
					"default": {CertFile: opts.Network.TLSCertFile, KeyFile: opts.Network.TLSKeyFile},
				}); err != nil {
					return fmt.Errorf("load TLS certificate: %w", err)
				}
				certManager = mgr
			}

			srv := httpapi.New(database, httpapi.Config{
				Logger:      logger,
				Tokens:      tokens,
				NoAuth:      opts.Network.NoAuth,
				CertManager: certManager,
			})

			addr := opts.Network.ListenAddr
			if addr == "" {
				addr = ":4564"
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ServeTCP(addr) }()
			logger.Info("ozonedb server listening", "addr", addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			return srv.Stop(stopCtx, true)
		},
	}
	return cmd
}
