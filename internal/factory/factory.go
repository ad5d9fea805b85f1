package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/bingoroom/internal/dependencies/clock"
	"github.com/mcoot/bingoroom/internal/dependencies/random"
	"github.com/mcoot/bingoroom/internal/notify"
	memorybus "github.com/mcoot/bingoroom/internal/notify/memory"
	postgresbus "github.com/mcoot/bingoroom/internal/notify/postgres"
	redisbus "github.com/mcoot/bingoroom/internal/notify/redis"
	"github.com/mcoot/bingoroom/internal/services/host"
	"github.com/mcoot/bingoroom/internal/services/registry"
	"github.com/mcoot/bingoroom/internal/services/results"
	"github.com/mcoot/bingoroom/internal/services/roster"
	"github.com/mcoot/bingoroom/internal/session"
	"github.com/mcoot/bingoroom/internal/storage"
	"github.com/mcoot/bingoroom/internal/storage/memory"
	postgresstorage "github.com/mcoot/bingoroom/internal/storage/postgres"
	redisstorage "github.com/mcoot/bingoroom/internal/storage/redis"
	"github.com/mcoot/bingoroom/internal/stream"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// HubCleanupInterval is how often stream hubs without clients are removed
const HubCleanupInterval = time.Minute

// App contains all wired application components
type App struct {
	// Storage and change notification
	Storage storage.Storage
	Bus     notify.Bus

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	RegistryService *registry.Service
	RosterService   *roster.Service
	HostService     *host.Service
	ResultsService  *results.Service
	HubManager      *stream.HubManager

	cancel context.CancelFunc
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory". The change bus follows the storage type.
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds Postgres connection settings (required if StorageType is "postgres")
	PostgresConfig *postgresstorage.Config
	// ResultsConfig holds leaderboard settings (optional)
	// If zero value, defaults to results.DefaultConfig()
	ResultsConfig results.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	store, bus, err := newBackend(storageType, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Use default results config if not provided
	resultsCfg := cfg.ResultsConfig
	if resultsCfg.MaxScore == 0 {
		resultsCfg = results.DefaultConfig()
	}

	return newWithDependencies(store, bus, clock.New(), random.New(), resultsCfg, logger), nil
}

// newBackend creates the storage and change bus for a storage type
func newBackend(storageType string, cfg Config, logger *slog.Logger) (storage.Storage, notify.Bus, error) {
	switch storageType {
	case StorageTypeMemory:
		return memory.New(), memorybus.New(logger), nil

	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, nil, err
		}
		return redisStore, redisbus.New(redisStore.Client(), logger), nil

	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgresstorage.New(*cfg.PostgresConfig)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pgBus, err := postgresbus.New(ctx, cfg.PostgresConfig.DSN, logger)
		if err != nil {
			_ = pgStore.Close()
			return nil, nil, err
		}
		return pgStore, pgBus, nil

	default:
		return nil, nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	bus notify.Bus,
	clk clock.Clock,
	rnd random.Random,
	resultsCfg results.Config,
	logger *slog.Logger,
) *App {
	ctx, cancel := context.WithCancel(context.Background())

	// Create services
	registryService := registry.New(store, bus, clk, rnd, logger)
	rosterService := roster.New(store, bus, clk, logger)
	hostService := host.New(registryService, logger)
	resultsService := results.New(store, bus, clk, resultsCfg, logger)
	hubManager := stream.NewHubManager(ctx, bus, logger)
	go hubManager.RunCleanup(ctx, HubCleanupInterval)

	return &App{
		Storage:         store,
		Bus:             bus,
		Clock:           clk,
		Random:          rnd,
		RegistryService: registryService,
		RosterService:   rosterService,
		HostService:     hostService,
		ResultsService:  resultsService,
		HubManager:      hubManager,
		cancel:          cancel,
	}
}

// Backend exposes the services to in-process session controllers
func (a *App) Backend() *session.LocalBackend {
	return &session.LocalBackend{
		Registry: a.RegistryService,
		Roster:   a.RosterService,
		Host:     a.HostService,
		Results:  a.ResultsService,
		Bus:      a.Bus,
	}
}

// Close stops the stream hubs and releases the bus and storage
func (a *App) Close() error {
	a.cancel()
	a.HubManager.Close()
	return errors.Join(a.Bus.Close(), a.Storage.Close())
}
