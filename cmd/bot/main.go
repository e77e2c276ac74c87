package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/guildpulse/internal/bot"
	"github.com/robalyx/guildpulse/internal/setup"
	"github.com/robalyx/guildpulse/internal/setup/telemetry"
	"go.uber.org/zap"
)

const (
	// BotLogDir specifies where bot log files are stored.
	BotLogDir = "logs/bot_logs"

	// ShutdownTimeout bounds how long in-flight analysis runs may take to finish.
	ShutdownTimeout = 2 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, telemetry.ServiceBot, BotLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(context.Background())

	// Scheduler drives both the hourly tick and message-count triggers
	pipeline := app.NewPipeline(app.Logger)

	sched, err := app.NewScheduler(pipeline, "bot", app.Logger)
	if err != nil {
		app.Logger.Error("Failed to create scheduler", zap.Error(err))
		return
	}

	// Create bot instance
	discordBot, err := bot.New(&app.Config.Bot.Discord, app.DB.Gateway(), sched,
		app.Config.Worker.Analysis.SaturationCount, app.Metrics, app.Logger)
	if err != nil {
		app.Logger.Error("Failed to create bot", zap.Error(err))
		return
	}

	// Start the bot and connect to Discord
	if err := discordBot.Start(ctx); err != nil {
		app.Logger.Error("Failed to start bot", zap.Error(err))
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Start(ctx)
	}()

	log.Println("Bot has been started. Waiting for interrupt signal to gracefully shutdown...")
	<-ctx.Done()

	// Stop receiving events before waiting for runs they may have dispatched
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	discordBot.Close(shutdownCtx)

	select {
	case <-done:
	case <-shutdownCtx.Done():
		app.Logger.Warn("Timed out waiting for analysis runs to finish")
	}
}
