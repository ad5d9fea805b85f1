package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bingoroom/internal/factory"
	"github.com/mcoot/bingoroom/internal/services/results"
)

// parse runs the command with args and returns the settings it saw
func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	var got *Config
	cmd := NewCommand(&Config{}, func(_ *cobra.Command, cfg *Config) error {
		got = cfg
		return nil
	})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return got, err
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, factory.StorageTypeMemory, cfg.Storage)
	assert.Equal(t, string(results.PolicyAll), cfg.ResultPolicy)
	assert.Equal(t, results.DefaultConfig().MaxScore, cfg.MaxScore)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg, err := parse(t, "--port", "9090", "--storage", "redis", "--redis-url", "redis://localhost:6379/0", "--room_ttl", "2h")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, factory.StorageTypeRedis, cfg.Storage)
	assert.Equal(t, 2*time.Hour, cfg.RoomTTL)

	fc := cfg.Factory(nil)
	require.NotNil(t, fc.RedisConfig)
	assert.Equal(t, "redis://localhost:6379/0", fc.RedisConfig.URL)
	assert.Equal(t, 2*time.Hour, fc.RedisConfig.RoomTTL)
	assert.Nil(t, fc.PostgresConfig)
}

func TestEnvironmentSetsFlags(t *testing.T) {
	t.Setenv("BINGOROOM_PORT", "7070")
	t.Setenv("BINGOROOM_RESULT_POLICY", "best")
	t.Setenv("BINGOROOM_PUBLIC_URL", "https://bingo.example.com")

	cfg, err := parse(t)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "https://bingo.example.com", cfg.PublicURL)
	assert.Equal(t, results.PolicyBest, cfg.Factory(nil).ResultsConfig.Policy)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("BINGOROOM_PORT", "7070")

	cfg, err := parse(t, "--port", "6060")
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Port)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad port", []string{"--port", "0"}},
		{"unknown storage", []string{"--storage", "sqlite"}},
		{"redis without url", []string{"--storage", "redis"}},
		{"postgres without dsn", []string{"--storage", "postgres"}},
		{"unknown policy", []string{"--result-policy", "worst"}},
		{"zero max score", []string{"--max-score", "0"}},
		{"bad log level", []string{"--log-level", "loud"}},
		{"bad log format", []string{"--log-format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestServerConfig(t *testing.T) {
	cfg, err := parse(t, "--host", "127.0.0.1", "--port", "9000", "--shutdown-timeout", "5s")
	require.NoError(t, err)

	serverCfg := cfg.Server()
	assert.Equal(t, "127.0.0.1", serverCfg.Host)
	assert.Equal(t, 9000, serverCfg.Port)
	assert.Equal(t, 5*time.Second, serverCfg.ShutdownTimeout)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BINGOROOM_TEST_ENV_FILE_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BINGOROOM_TEST_ENV_FILE_VALUE") })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("BINGOROOM_TEST_ENV_FILE_VALUE"))
}

func TestLoadEnvFileMissing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLogger(t *testing.T) {
	cfg, err := parse(t, "--log-level", "warn", "--log-format", "text")
	require.NoError(t, err)

	logger := cfg.Logger(os.Stderr)
	assert.False(t, logger.Enabled(t.Context(), -4))
	assert.True(t, logger.Enabled(t.Context(), 8))
}
