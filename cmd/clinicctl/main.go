package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/internal/repository"
	"github.com/noah-isme/clinic-api/internal/service"
	"github.com/noah-isme/clinic-api/pkg/cache"
	"github.com/noah-isme/clinic-api/pkg/config"
	"github.com/noah-isme/clinic-api/pkg/database"
	"github.com/noah-isme/clinic-api/pkg/logger"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Operational tasks for the clinic API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile-slots",
		Short: "Repair the doctor slot registry against live appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			noLock, _ := cmd.Flags().GetBool("no-lock")

			cfg, logr, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck
			defer db.Close()

			var lock service.SweepLock
			if cfg.Redis.Enabled && !noLock {
				client, err := cache.NewRedis(cfg.Redis)
				if err != nil {
					return fmt.Errorf("connect redis: %w", err)
				}
				defer client.Close()
				lock = repository.NewLockRepository(client, "clinic:lock:")
			}
			if workers <= 0 {
				workers = cfg.Reconcile.Workers
			}

			reconciler := service.NewSlotReconciler(
				repository.NewDoctorRepository(db),
				repository.NewAppointmentRepository(db),
				lock,
				service.NewMetricsService(),
				repository.NewAuditRepository(db),
				logr,
				service.ReconcilerConfig{Workers: workers, LockTTL: cfg.Reconcile.LockTTL},
			)
			summary, err := reconciler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
	cmd.Flags().Int("workers", 0, "Concurrent doctors to reconcile (defaults to RECONCILE_WORKERS)")
	cmd.Flags().Bool("no-lock", false, "Skip the Redis sweep lock")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations and record them in goose_db_version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrations(cmd, goose.UpContext)
		},
	}
	cmd.PersistentFlags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrations(cmd, goose.StatusContext)
		},
	})
	return cmd
}

type migrationFunc func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error

func withMigrations(cmd *cobra.Command, run migrationFunc) error {
	dir, _ := cmd.Flags().GetString("dir")

	_, logr, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck
	defer db.Close()

	goose.SetLogger(gooseLogger{logr.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return run(cmd.Context(), db.DB, dir)
}

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.Infof(strings.TrimSpace(format), v...)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func bootstrap() (*config.Config, *zap.Logger, *sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return cfg, logr, db, nil
}
