package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/causabona/donare/internal/audit"
	"github.com/causabona/donare/internal/charge"
	"github.com/causabona/donare/internal/clock"
	"github.com/causabona/donare/internal/config"
	"github.com/causabona/donare/internal/donor"
	"github.com/causabona/donare/internal/intake"
	"github.com/causabona/donare/internal/migration"
	"github.com/causabona/donare/internal/observability"
	"github.com/causabona/donare/internal/payment"
	"github.com/causabona/donare/internal/scheduler"
	"github.com/causabona/donare/internal/server"
	"github.com/causabona/donare/internal/subscription"
	"github.com/causabona/donare/internal/webhook"
	"github.com/causabona/donare/internal/wompi"
	"github.com/causabona/donare/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "donare",
		Short:   "Donare donation platform CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newChargeCmd(), newSchedulerCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the donation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newChargeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "charge",
		Short: "Run the recurring-charge job once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCharge()
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the recurring-charge job on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

// domainModules is everything between the gorm handle and the HTTP or job
// surfaces. Every command that touches business logic loads the full set;
// fx only constructs what the command actually reaches.
func domainModules() fx.Option {
	return fx.Options(
		wompi.Module,
		donor.Module,
		subscription.Module,
		payment.Module,
		audit.Module,
		intake.Module,
		webhook.Module,
		charge.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		domainModules(),
		server.Module,
	)
	app.Run()
}

func runCharge() error {
	var svc *charge.Service
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		domainModules(),
		fx.Populate(&svc),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("charge job setup failed: %w", err)
	}
	defer app.Stop(context.Background()) //nolint:errcheck

	summary, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("charge job failed: %w", err)
	}
	fmt.Printf("charge job done: due=%d charged=%d skipped=%d failed=%d\n",
		summary.Due, summary.Charged, summary.Skipped, summary.Failed)
	return nil
}

func runScheduler() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		domainModules(),
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}
