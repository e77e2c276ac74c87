package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.3.0"

// Current version of the config files.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
	CurrentWorkerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `koanf:"common"`
	Bot    BotConfig    `koanf:"bot"`
	Worker WorkerConfig `koanf:"worker"`
}

// CommonConfig contains configuration shared between all services.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Telemetry  Telemetry  `koanf:"telemetry"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	GeminiAI   GeminiAI   `koanf:"gemini_ai"`
	API        API        `koanf:"api"`
	Metrics    Metrics    `koanf:"metrics"`
}

// BotConfig contains Discord gateway specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Discord configuration.
	Discord Discord `koanf:"discord"`
}

// WorkerConfig contains analysis worker configuration.
type WorkerConfig struct {
	// Version of the worker config.
	Version int `koanf:"version"`
	// Startup delay in milliseconds.
	StartupDelay int `koanf:"startup_delay"`
	// Analysis pipeline tuning.
	Analysis Analysis `koanf:"analysis"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
}

// Telemetry contains tracing configuration.
type Telemetry struct {
	// Enable OpenTelemetry export.
	Enabled bool `koanf:"enabled"`
	// Uptrace DSN for trace export.
	DSN string `koanf:"dsn"`
	// Deployment environment label.
	Environment string `koanf:"environment"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// GeminiAI contains Gemini API configuration.
type GeminiAI struct {
	// API key for authentication.
	APIKey string `koanf:"api_key"`
	// Model used for message scoring.
	Model string `koanf:"model"`
	// Model used for the community summary pass.
	SummaryModel string `koanf:"summary_model"`
	// Maximum concurrent model requests across all guilds.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// Per-request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
}

// API contains REST server configuration.
type API struct {
	// Listen host.
	Host string `koanf:"host"`
	// Listen port.
	Port int `koanf:"port"`
	// Seconds a cached read stays in redis.
	CacheTTL int `koanf:"cache_ttl"`
}

// Metrics contains prometheus configuration.
type Metrics struct {
	// Namespace prefixed to every metric name.
	Namespace string `koanf:"namespace"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
	// Fetch the last 24 hours of channel history when a guild becomes ready.
	CollectOnReady bool `koanf:"collect_on_ready"`
	// Messages fetched per channel during collection.
	CollectLimit int `koanf:"collect_limit"`
}

// Analysis configures the health pipeline.
type Analysis struct {
	// Recency window in hours for batch collection.
	WindowHours int `koanf:"window_hours"`
	// Maximum messages per batch.
	BatchLimit int `koanf:"batch_limit"`
	// Concurrent scorer calls within a batch.
	Concurrency int `koanf:"concurrency"`
	// Guilds analyzed in parallel by the hourly tick.
	GuildConcurrency int `koanf:"guild_concurrency"`
	// Queued messages that trigger a run.
	TriggerThreshold int `koanf:"trigger_threshold"`
	// Queued messages that trigger a run during history collection.
	BackfillThreshold int `koanf:"backfill_threshold"`
	// Minutes since the last run before the hourly tick analyzes a guild again.
	CooldownMinutes int `koanf:"cooldown_minutes"`
	// Messages a member needs for the maximum guild score.
	SaturationCount int `koanf:"saturation_count"`
	// Activity ladder cutoffs.
	Activity ActivityCutoffs `koanf:"activity"`
	// Health score weights.
	Weights HealthWeights `koanf:"weights"`
}

// ActivityCutoffs are the minimum in-window message counts for each activity level.
type ActivityCutoffs struct {
	Medium   int `koanf:"medium"`
	High     int `koanf:"high"`
	VeryHigh int `koanf:"very_high"`
}

// HealthWeights are the weights of the health score formula.
type HealthWeights struct {
	Engagement float64 `koanf:"engagement"`
	Quality    float64 `koanf:"quality"`
	Toxicity   float64 `koanf:"toxicity"`
}

// Defaults returns the configuration used before any file is loaded.
func Defaults() Config {
	return Config{
		Common: CommonConfig{
			Debug: Debug{
				LogLevel:      "info",
				MaxLogsToKeep: 10,
				MaxLogLines:   100000,
			},
			PostgreSQL: PostgreSQL{
				Host:         "localhost",
				Port:         5432,
				MaxOpenConns: 20,
				MaxIdleConns: 5,
				MaxLifetime:  30,
				MaxIdleTime:  10,
			},
			Redis: Redis{
				Host: "localhost",
				Port: 6379,
			},
			GeminiAI: GeminiAI{
				Model:          "gemini-2.0-flash",
				SummaryModel:   "gemini-2.0-flash",
				MaxConcurrent:  10,
				RequestTimeout: 30000,
			},
			API: API{
				Host:     "0.0.0.0",
				Port:     8080,
				CacheTTL: 30,
			},
			Metrics: Metrics{
				Namespace: "guildpulse",
			},
		},
		Bot: BotConfig{
			Discord: Discord{
				CollectLimit: 100,
			},
		},
		Worker: WorkerConfig{
			Analysis: Analysis{
				WindowHours:       24,
				BatchLimit:        50,
				Concurrency:       5,
				GuildConcurrency:  4,
				TriggerThreshold:  10,
				BackfillThreshold: 50,
				CooldownMinutes:   55,
				SaturationCount:   100,
				Activity: ActivityCutoffs{
					Medium:   10,
					High:     25,
					VeryHigh: 45,
				},
				Weights: HealthWeights{
					Engagement: 0.4,
					Quality:    0.4,
					Toxicity:   0.2,
				},
			},
		},
	}
}

// LoadConfig loads the configuration from the config search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".guildpulse",
		homeDir + "/.guildpulse/config",
		"/etc/guildpulse/config",
		"/app/config",
		"config",
		".",
	}

	return LoadConfigFrom(configPaths)
}

// LoadConfigFrom loads common, bot and worker files from the first path holding each one.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	var usedConfigPath string

	configFiles := []string{"common", "bot", "worker"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)

			// Each file is namespaced under its own name so sections never collide
			sub := koanf.New(".")
			if err := sub.Load(file.Provider(configPath), toml.Parser()); err != nil {
				continue
			}

			if err := k.MergeAt(sub, configName); err != nil {
				return nil, "", fmt.Errorf("failed to merge %s.toml: %w", configName, err)
			}

			configLoaded = true

			if usedConfigPath == "" {
				usedConfigPath = path
			}

			break
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	// Keys absent from the files keep their default values
	config := Defaults()
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("worker", config.Worker.Version, CurrentWorkerVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/guildpulse/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
