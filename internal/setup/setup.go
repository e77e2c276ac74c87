package setup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/redis/rueidis"
	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/analysis"
	"github.com/robalyx/guildpulse/internal/database"
	"github.com/robalyx/guildpulse/internal/database/migrations"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/internal/redis"
	"github.com/robalyx/guildpulse/internal/scheduler"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/robalyx/guildpulse/internal/setup/telemetry"
	"github.com/robalyx/guildpulse/internal/worker/core"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	GenAIClient  *genai.Client      // Gemini API client
	RedisManager *redis.Manager     // Redis connection manager
	StatusClient rueidis.Client     // Redis client for worker status reporting
	LogManager   *telemetry.Manager // Log management system
	Metrics      *metrics.Manager   // Prometheus metrics
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, &cfg.Common.Telemetry)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger)
	if err != nil {
		return nil, err
	}

	// Get Redis client for worker status reporting
	statusClient, err := redisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return nil, err
	}

	// Gemini client is only needed by services that analyze guilds
	var genAIClient *genai.Client
	if serviceType == telemetry.ServiceBot || serviceType == telemetry.ServiceWorker {
		genAIClient, err = genai.NewClient(ctx, option.WithAPIKey(cfg.Common.GeminiAI.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
	}

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		GenAIClient:  genAIClient,
		RedisManager: redisManager,
		StatusClient: statusClient,
		LogManager:   logManager,
		Metrics:      metrics.NewManager(metrics.WithNamespace(cfg.Common.Metrics.Namespace)),
	}, nil
}

// NewPipeline wires the scorer, the community pass and the database gateway
// into an analysis pipeline.
func (s *App) NewPipeline(logger *zap.Logger) *analysis.Pipeline {
	geminiCfg := s.Config.Common.GeminiAI
	timeout := time.Duration(geminiCfg.RequestTimeout) * time.Millisecond

	scorer := ai.NewScorer(
		ai.NewGeminiGenerator(s.GenAIClient, geminiCfg.Model, geminiCfg.MaxConcurrent, timeout),
		s.Metrics, logger,
	)
	community := ai.NewCommunityAnalyzer(
		ai.NewGeminiGenerator(s.GenAIClient, geminiCfg.SummaryModel, geminiCfg.MaxConcurrent, timeout),
		logger,
	)

	return analysis.NewPipeline(s.DB.Gateway(), scorer, community, s.Config.Worker.Analysis, s.Metrics, logger)
}

// NewScheduler creates a scheduler over a pipeline, keeping trigger counters
// in redis so they are shared between processes.
func (s *App) NewScheduler(pipeline *analysis.Pipeline, workerType string, logger *zap.Logger) (*scheduler.Scheduler, error) {
	counterClient, err := s.RedisManager.GetClient(redis.TriggerDBIndex)
	if err != nil {
		return nil, err
	}

	return scheduler.New(
		pipeline,
		s.DB.Gateway(),
		scheduler.NewRedisCounter(counterClient, scheduler.DefaultCounterTTL),
		s.Config.Worker.Analysis,
		s.Metrics,
		logger,
		scheduler.WithReporter(core.NewStatusReporter(s.StatusClient, workerType, logger)),
	), nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Flush pending spans
	s.LogManager.Stop(ctx)

	if s.GenAIClient != nil {
		if err := s.GenAIClient.Close(); err != nil {
			log.Printf("Failed to close gemini client: %v", err)
		}
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	var db database.Client

	unapplied := ms.Unapplied()
	if len(unapplied) > 0 {
		log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

		var response string

		_, _ = fmt.Scanln(&response)

		if response == "y" || response == "Y" {
			tempDB.Close()

			db, err = database.NewConnection(ctx, cfg, dbLogger, true)
		} else {
			log.Fatalf("Closing program due to incomplete migrations")
		}
	} else {
		db = tempDB
	}

	return db, err
}
