// Package config builds the bingoroom server command and its settings.
// Flags can also be set from BINGOROOM_* environment variables or a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/bingoroom/internal/api"
	"github.com/mcoot/bingoroom/internal/factory"
	"github.com/mcoot/bingoroom/internal/services/results"
	postgresstorage "github.com/mcoot/bingoroom/internal/storage/postgres"
	redisstorage "github.com/mcoot/bingoroom/internal/storage/redis"
)

// EnvPrefix prefixes every environment variable the server reads
const EnvPrefix = "BINGOROOM"

// Config holds the server settings
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration

	Storage     string
	RedisURL    string
	PostgresDSN string
	RoomTTL     time.Duration

	PublicURL    string
	ResultPolicy string
	MaxScore     int

	LogLevel  string
	LogFormat string
}

// Validate checks the settings are usable
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	switch c.Storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	case factory.StorageTypePostgres:
		if c.PostgresDSN == "" {
			return errors.New("--postgres-dsn is required when --storage=postgres")
		}
	default:
		return fmt.Errorf("invalid storage %q: must be memory, redis or postgres", c.Storage)
	}
	if _, err := results.ParsePolicy(c.ResultPolicy); err != nil {
		return err
	}
	if c.MaxScore < 1 {
		return fmt.Errorf("invalid max score: %d", c.MaxScore)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log format %q: must be json or text", c.LogFormat)
	}
	return nil
}

// Logger builds the application logger writing to w
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Factory returns the application factory settings
func (c *Config) Factory(logger *slog.Logger) factory.Config {
	policy, _ := results.ParsePolicy(c.ResultPolicy)
	cfg := factory.Config{
		Logger:      logger,
		StorageType: c.Storage,
		ResultsConfig: results.Config{
			MaxScore: c.MaxScore,
			Policy:   policy,
		},
	}

	switch c.Storage {
	case factory.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.RoomTTL = c.RoomTTL
		cfg.RedisConfig = &redisCfg
	case factory.StorageTypePostgres:
		pgCfg := postgresstorage.DefaultConfig()
		pgCfg.DSN = c.PostgresDSN
		cfg.PostgresConfig = &pgCfg
	}
	return cfg
}

// Server returns the HTTP server settings
func (c *Config) Server() api.ServerConfig {
	serverCfg := api.DefaultServerConfig()
	serverCfg.Host = c.Host
	serverCfg.Port = c.Port
	if c.ShutdownTimeout > 0 {
		serverCfg.ShutdownTimeout = c.ShutdownTimeout
	}
	return serverCfg
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// NewCommand creates the server command. run is called with the parsed and
// validated settings.
func NewCommand(cfg *Config, run func(cmd *cobra.Command, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "bingoroom-server",
		Short: "Room coordination server for multiplayer bingo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	flags := cmd.Flags()

	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := results.DefaultConfig()

	flags.StringVar(&cfg.Host, "host", "", "address to bind to (env: BINGOROOM_HOST)")
	flags.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BINGOROOM_PORT)")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "time allowed for graceful shutdown (env: BINGOROOM_SHUTDOWN_TIMEOUT)")
	flags.StringVar(&cfg.Storage, "storage", factory.StorageTypeMemory, "storage backend: memory, redis, postgres (env: BINGOROOM_STORAGE)")
	flags.StringVar(&cfg.RedisURL, "redis-url", "", "redis connection URL (env: BINGOROOM_REDIS_URL)")
	flags.StringVar(&cfg.PostgresDSN, "postgres-dsn", "", "postgres connection string (env: BINGOROOM_POSTGRES_DSN)")
	flags.DurationVar(&cfg.RoomTTL, "room-ttl", 0, "expire redis room data after this long, 0 keeps it forever (env: BINGOROOM_ROOM_TTL)")
	flags.StringVar(&cfg.PublicURL, "public-url", "", "base URL used in share links and QR codes (env: BINGOROOM_PUBLIC_URL)")
	flags.StringVar(&cfg.ResultPolicy, "result-policy", string(defaults.Policy), "leaderboard policy: all, best (env: BINGOROOM_RESULT_POLICY)")
	flags.IntVar(&cfg.MaxScore, "max-score", defaults.MaxScore, "highest accepted score (env: BINGOROOM_MAX_SCORE)")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error (env: BINGOROOM_LOG_LEVEL)")
	flags.StringVar(&cfg.LogFormat, "log-format", "json", "log format: json, text (env: BINGOROOM_LOG_FORMAT)")

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = flags.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// Execute loads .env, then parses arguments and runs the server command
func Execute(run func(cmd *cobra.Command, cfg *Config) error) {
	envFile := os.Getenv(EnvPrefix + "_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := LoadEnvFile(envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := NewCommand(&Config{}, run).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
