package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/marketdesk/internal/backup"
	"github.com/HerbHall/marketdesk/internal/config"
	"github.com/HerbHall/marketdesk/internal/event"
	"github.com/HerbHall/marketdesk/internal/sandbox"
	"github.com/HerbHall/marketdesk/internal/server"
	"github.com/HerbHall/marketdesk/internal/store"
)

const shutdownTimeout = 10 * time.Second

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run the local sandbox admin API",
	Long: `Serve every admin resource from a local SQLite database seeded with sample
data. The sandbox speaks the same envelopes as the production API, including
login and the live update websocket.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSandbox(ctx, settings.Sandbox)
	},
}

func runSandbox(ctx context.Context, cfg config.SandboxSettings) error {
	log := logger.Named("sandbox")

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	repo, err := sandbox.NewRepository(ctx, db)
	if err != nil {
		return err
	}
	schema, err := db.Version(ctx, sandbox.SchemaComponent)
	if err != nil {
		return err
	}

	var seedData []byte
	if cfg.SeedFile != "" {
		if seedData, err = os.ReadFile(cfg.SeedFile); err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
	}
	seed, err := sandbox.ParseSeed(seedData)
	if err != nil {
		return err
	}
	if _, err := sandbox.Seed(ctx, repo, seed, log); err != nil {
		return err
	}

	var auth *sandbox.Auth
	if !cfg.NoAuth {
		if auth, err = sandboxAuth(ctx, repo, cfg, log); err != nil {
			return err
		}
	} else {
		log.Warn("authentication disabled")
	}

	bus := event.NewBus(log.Named("bus"))
	sb := sandbox.New(repo, auth, bus, sandbox.WithLogger(log))
	srv := server.New(cfg.Addr, logger.Named("http"), prometheus.DefaultGatherer, sb)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()
	log.Info("sandbox ready",
		zap.String("addr", cfg.Addr),
		zap.String("db", db.Path()),
		zap.Int("schema", schema),
	)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("sandbox stopped")
	return nil
}

// sandboxAuth creates the authenticator and the configured admin. A missing
// secret or password is generated and logged for this run only.
func sandboxAuth(ctx context.Context, repo *sandbox.Repository, cfg config.SandboxSettings, log *zap.Logger) (*sandbox.Auth, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = rand.Text() + rand.Text()
		log.Warn("no sandbox.jwt_secret set, tokens will not survive a restart")
	}
	auth, err := sandbox.NewAuth(repo, []byte(secret), sandbox.DefaultTokenTTL)
	if err != nil {
		return nil, err
	}

	password := cfg.AdminPassword
	if password == "" {
		password = rand.Text()
		log.Warn("generated admin password, used only if the account is new",
			zap.String("email", cfg.AdminEmail),
			zap.String("password", password),
		)
	}
	if err := auth.EnsureAdmin(ctx, cfg.AdminEmail, "Sandbox Admin", password); err != nil {
		return nil, err
	}
	return auth, nil
}

var backupConfigFile string

var sandboxBackupCmd = &cobra.Command{
	Use:   "backup <archive.tar.gz>",
	Short: "Archive the sandbox database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := backupConfigFile
		if cfg == "" {
			cfg = cfgFile
		}
		m, err := backup.Backup(cmd.Context(), settings.Sandbox.DBPath, cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", m.Path, strings.Join(m.Entries, ", "))
		return nil
	},
}

var sandboxRestoreCmd = &cobra.Command{
	Use:   "restore <archive.tar.gz>",
	Short: "Replace the sandbox database from an archive",
	Long:  "Replace sandbox.db_path with the database in the archive. Stop the sandbox first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := backup.Restore(args[0], settings.Sandbox.DBPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", settings.Sandbox.DBPath)
		return nil
	},
}

func init() {
	sandboxBackupCmd.Flags().StringVar(&backupConfigFile, "include-config", "", "config file to add to the archive (default --config)")
	sandboxCmd.AddCommand(sandboxBackupCmd, sandboxRestoreCmd)
	rootCmd.AddCommand(sandboxCmd)
}
