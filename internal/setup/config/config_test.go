package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigs(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0o600))
	}
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfigs(t, dir, map[string]string{
		"common": `
version = 1

[postgresql]
host = "db"
db_name = "guildpulse"

[gemini_ai]
api_key = "key"
`,
		"bot": `
version = 1

[discord]
token = "token"
collect_on_ready = true
`,
		"worker": `
version = 1

[analysis]
trigger_threshold = 20

[analysis.weights]
toxicity = 0.3
`,
	})

	cfg, usedPath, err := config.LoadConfigFrom([]string{filepath.Join(dir, "missing"), dir})
	require.NoError(t, err)
	assert.Equal(t, dir, usedPath)

	assert.Equal(t, "db", cfg.Common.PostgreSQL.Host)
	assert.Equal(t, 5432, cfg.Common.PostgreSQL.Port)
	assert.Equal(t, "key", cfg.Common.GeminiAI.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Common.GeminiAI.Model)
	assert.True(t, cfg.Bot.Discord.CollectOnReady)

	analysis := cfg.Worker.Analysis
	assert.Equal(t, 20, analysis.TriggerThreshold)
	assert.Equal(t, 50, analysis.BackfillThreshold)
	assert.Equal(t, 55, analysis.CooldownMinutes)
	assert.InDelta(t, 0.3, analysis.Weights.Toxicity, 1e-9)
	assert.InDelta(t, 0.4, analysis.Weights.Engagement, 1e-9)
}

func TestLoadConfigFromErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		files       map[string]string
		expectedErr error
	}{
		{
			name: "missing worker file",
			files: map[string]string{
				"common": "version = 1",
				"bot":    "version = 1",
			},
			expectedErr: config.ErrConfigFileNotFound,
		},
		{
			name: "missing version",
			files: map[string]string{
				"common": "version = 1",
				"bot":    "[discord]\ntoken = \"x\"",
				"worker": "version = 1",
			},
			expectedErr: config.ErrConfigVersionMissing,
		},
		{
			name: "version mismatch",
			files: map[string]string{
				"common": "version = 1",
				"bot":    "version = 1",
				"worker": "version = 9",
			},
			expectedErr: config.ErrConfigVersionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfigs(t, dir, tt.files)

			_, _, err := config.LoadConfigFrom([]string{dir})
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	t.Parallel()

	cfg, _, err := config.LoadConfigFrom([]string{filepath.Join("..", "..", "..", "config")})
	require.NoError(t, err)

	defaults := config.Defaults()
	assert.Equal(t, defaults.Worker.Analysis, cfg.Worker.Analysis)
	assert.Equal(t, defaults.Common.API, cfg.Common.API)
	assert.Equal(t, defaults.Common.Metrics, cfg.Common.Metrics)
	assert.Equal(t, defaults.Common.GeminiAI.Model, cfg.Common.GeminiAI.Model)
}
