package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/guildpulse/internal/scheduler"
	"github.com/robalyx/guildpulse/internal/setup"
	"github.com/robalyx/guildpulse/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// AnalyzeCommand runs one analysis pass for a guild.
	AnalyzeCommand = "analyze"

	// SchedulerWorker runs the hourly tick without the gateway.
	SchedulerWorker = "scheduler"
)

var ErrGuildRequired = errors.New("--guild is required")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the guildpulse worker",
		Commands: []*cli.Command{
			{
				Name:  AnalyzeCommand,
				Usage: "Analyze a single guild now",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:    "guild",
						Aliases: []string{"g"},
						Usage:   "Discord guild ID",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					guildID := c.Uint("guild")
					if guildID == 0 {
						return ErrGuildRequired
					}
					return runAnalyze(ctx, guildID)
				},
			},
			{
				Name:  SchedulerWorker,
				Usage: "Start the hourly analysis scheduler",
				Action: func(ctx context.Context, _ *cli.Command) error {
					runScheduler(ctx)
					return nil
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// runAnalyze runs one analysis pass and prints the resulting record.
func runAnalyze(ctx context.Context, guildID uint64) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	logger := app.LogManager.GetWorkerLogger(fmt.Sprintf("analyze_%d", guildID))

	sched, err := app.NewScheduler(app.NewPipeline(logger), AnalyzeCommand, logger)
	if err != nil {
		return err
	}

	health, err := sched.RunNow(ctx, guildID)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	log.Printf("Guild %d: health=%.3f activity=%s toxicity=%.3f engagement=%.3f sentiment=%.3f analyzed=%d failed=%d insufficient=%t",
		guildID, health.HealthScore, health.ActivityLevel, health.ToxicityLevel, health.EngagementScore,
		health.SentimentScore, health.Analyzed, health.Failed, health.Insufficient)

	return nil
}

// runScheduler runs the hourly scheduler until interrupted.
func runScheduler(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(context.Background())

	if delay := app.Config.Worker.StartupDelay; delay > 0 {
		time.Sleep(time.Duration(delay) * time.Millisecond)
	}

	logger := app.LogManager.GetWorkerLogger("scheduler_worker")

	sched, err := app.NewScheduler(app.NewPipeline(logger), SchedulerWorker, logger)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	log.Println("Scheduler worker started")
	runWorker(ctx, sched, logger)
	log.Println("Scheduler worker has finished. Exiting.")
}

// runWorker runs the scheduler in a loop with panic recovery.
func runWorker(ctx context.Context, sched *scheduler.Scheduler, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, stopping worker")
			return
		default:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("Worker execution failed", zap.Any("panic", r))
						logger.Info("Restarting worker in 5 seconds...")
						time.Sleep(5 * time.Second)
					}
				}()

				logger.Info("Starting worker")
				sched.Start(ctx)
			}()

			if ctx.Err() == nil {
				logger.Warn("Worker stopped unexpectedly")
				time.Sleep(5 * time.Second)
			}
		}
	}
}
