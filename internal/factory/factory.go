package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/starweave/starweave/internal/actor"
	"github.com/starweave/starweave/internal/bus"
	"github.com/starweave/starweave/internal/dependencies/clock"
	"github.com/starweave/starweave/internal/dependencies/random"
	"github.com/starweave/starweave/internal/dispatch"
	"github.com/starweave/starweave/internal/storage"
	"github.com/starweave/starweave/internal/storage/memory"
	redisstorage "github.com/starweave/starweave/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Core components
	Bus        *bus.Bus
	Registry   *actor.Registry
	Dispatcher *dispatch.Dispatcher
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// CommandTimeout bounds how long a single command may run before the
	// dispatcher reports a gateway timeout
	// If zero, defaults to dispatch.DefaultTimeout
	CommandTimeout time.Duration
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	timeout := cfg.CommandTimeout
	if timeout == 0 {
		timeout = dispatch.DefaultTimeout
	}

	return newWithDependencies(store, clk, rnd, timeout, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, timeout time.Duration, logger *slog.Logger) *App {
	eventBus := bus.New(logger)
	registry := actor.NewRegistry(eventBus, store, clk, rnd, logger)
	dispatcher := dispatch.New(registry, eventBus, rnd, timeout, logger)

	return &App{
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		Bus:        eventBus,
		Registry:   registry,
		Dispatcher: dispatcher,
	}
}
