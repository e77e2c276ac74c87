package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/robalyx/guildpulse/internal/database"
	"github.com/robalyx/guildpulse/internal/database/migrations"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrNameRequired = errors.New("NAME argument required")

// dependencies holds what every database command needs.
type dependencies struct {
	db       database.Client
	migrator *migrate.Migrator
	logger   *zap.Logger
}

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	deps, err := setupDependencies(context.Background())
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.db.Close()

	app := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Initialize migration tables",
				Action: deps.handleInit,
			},
			{
				Name:   "migrate",
				Usage:  "Run pending migrations",
				Action: deps.handleMigrate,
			},
			{
				Name:   "rollback",
				Usage:  "Rollback the last migration group",
				Action: deps.handleRollback,
			},
			{
				Name:   "status",
				Usage:  "Show migration status",
				Action: deps.handleStatus,
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action:    deps.handleCreate,
			},
			{
				Name:  "reset-counters",
				Usage: "Zero the daily guild message counters",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "weekly",
						Usage: "Also zero the weekly counters",
					},
				},
				Action: deps.handleResetCounters,
			},
			{
				Name:   "stats",
				Usage:  "Show platform totals",
				Action: deps.handleStats,
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func (d *dependencies) handleInit(ctx context.Context, _ *cli.Command) error {
	return d.migrator.Init(ctx)
}

func (d *dependencies) handleMigrate(ctx context.Context, _ *cli.Command) error {
	if err := d.migrator.Lock(ctx); err != nil {
		return err
	}
	defer d.migrator.Unlock(ctx) //nolint:errcheck // -

	group, err := d.migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		d.logger.Info("No new migrations to run (database is up to date)")
		return nil
	}

	d.logger.Info("Successfully migrated", zap.String("group", group.String()))

	return nil
}

func (d *dependencies) handleRollback(ctx context.Context, _ *cli.Command) error {
	if err := d.migrator.Lock(ctx); err != nil {
		return err
	}
	defer d.migrator.Unlock(ctx) //nolint:errcheck // -

	group, err := d.migrator.Rollback(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		d.logger.Info("No groups to roll back")
		return nil
	}

	d.logger.Info("Successfully rolled back", zap.String("group", group.String()))

	return nil
}

func (d *dependencies) handleStatus(ctx context.Context, _ *cli.Command) error {
	ms, err := d.migrator.MigrationsWithStatus(ctx)
	if err != nil {
		return err
	}

	d.logger.Info("Migration status",
		zap.String("migrations", ms.String()),
		zap.String("unapplied", ms.Unapplied().String()),
		zap.String("last_group", ms.LastGroup().String()),
	)

	return nil
}

func (d *dependencies) handleCreate(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return ErrNameRequired
	}

	mf, err := d.migrator.CreateGoMigration(ctx, c.Args().First())
	if err != nil {
		return err
	}

	d.logger.Info("Created Go migration",
		zap.String("name", mf.Name),
		zap.String("path", mf.Path),
	)

	return nil
}

func (d *dependencies) handleResetCounters(ctx context.Context, c *cli.Command) error {
	return d.db.Gateway().ResetMessageCounters(ctx, c.Bool("weekly"))
}

func (d *dependencies) handleStats(ctx context.Context, _ *cli.Command) error {
	stats, err := d.db.Gateway().GetPlatformStats(ctx)
	if err != nil {
		return err
	}

	d.logger.Info("Platform stats",
		zap.Int("guilds", stats.TotalGuilds),
		zap.Int64("members", stats.TotalMembers),
		zap.Int64("messages", stats.TotalMessages),
		zap.Int64("daily_messages", stats.DailyMessages),
		zap.Int64("analyzed_messages", stats.AnalyzedMessages),
		zap.Float64("avg_health", stats.AvgHealthScore),
		zap.Float64("avg_toxicity", stats.AvgToxicity),
	)

	return nil
}

// setupDependencies initializes the database connection and migrator.
func setupDependencies(ctx context.Context) (*dependencies, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, logger, false)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &dependencies{
		db:       db,
		migrator: migrate.NewMigrator(db.DB(), migrations.Migrations),
		logger:   logger,
	}, nil
}
