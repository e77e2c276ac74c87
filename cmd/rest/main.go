package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robalyx/guildpulse/internal/redis"
	"github.com/robalyx/guildpulse/internal/rest"
	"github.com/robalyx/guildpulse/internal/setup"
	"github.com/robalyx/guildpulse/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// RESTLogDir specifies where REST server log files are stored.
const RESTLogDir = "logs/rest_logs"

// Server timeouts.
const (
	ReadTimeout     = 5 * time.Second
	WriteTimeout    = 10 * time.Second
	ShutdownTimeout = 30 * time.Second
)

func main() {
	app := &cli.Command{
		Name:  "rest",
		Usage: "Start the guildpulse read API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override the configured listen port",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, int(c.Int("port")))
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, portOverride int) error {
	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx, telemetry.ServiceREST, RESTLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	cacheClient, err := app.RedisManager.GetClient(redis.CacheDBIndex)
	if err != nil {
		return fmt.Errorf("failed to get cache client: %w", err)
	}

	// Create server
	handler := rest.NewServer(app.DB.Gateway(), cacheClient, app.Metrics, &app.Config.Common.API, app.Logger)

	// Get server address from config
	port := app.Config.Common.API.Port
	if portOverride > 0 {
		port = portOverride
	}
	addr := fmt.Sprintf("%s:%d", app.Config.Common.API.Host, port)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("REST server started on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.Logger.Info("Shutting down REST server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	app.Logger.Info("Server gracefully stopped")

	return nil
}
