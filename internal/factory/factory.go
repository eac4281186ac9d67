package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arenalab/arena-server/internal/dependencies/clock"
	"github.com/arenalab/arena-server/internal/dependencies/random"
	"github.com/arenalab/arena-server/internal/metrics"
	"github.com/arenalab/arena-server/internal/model"
	"github.com/arenalab/arena-server/internal/services/account"
	"github.com/arenalab/arena-server/internal/services/admission"
	"github.com/arenalab/arena-server/internal/services/auth"
	"github.com/arenalab/arena-server/internal/services/directory"
	"github.com/arenalab/arena-server/internal/services/registry"
	"github.com/arenalab/arena-server/internal/services/room"
	"github.com/arenalab/arena-server/internal/services/transition"
	"github.com/arenalab/arena-server/internal/storage"
	"github.com/arenalab/arena-server/internal/storage/memory"
	redisstorage "github.com/arenalab/arena-server/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Default occupancy knobs for the pipeline room types
const (
	DefaultLobbySize     = 8
	DefaultGroupMinimum  = 2
	DefaultGameOccupancy = 16
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Observability
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	// Services
	AccountService *account.Service
	AuthService    *auth.Service
	Directory      *directory.Directory
	RoomRegistry   *registry.Registry
	Coordinator    *transition.Coordinator
	AdmissionGate  *admission.Gate
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
	// AuthConfig holds configuration for the auth service (optional)
	AuthConfig auth.Config
	// AdmissionConfig holds rate limit and operator settings (optional)
	AdmissionConfig admission.Config
	// LobbySize is the match group size formed in the lobby stage (optional)
	LobbySize int
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

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

	clk := clock.New()
	rnd := random.New()

	return NewWithDependencies(store, clk, rnd, cfg, logger)
}

// NewWithDependencies creates an App with the given dependencies (useful for
// testing with mock clocks and deterministic randomness)
func NewWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) (*App, error) {
	lobbySize := cfg.LobbySize
	if lobbySize == 0 {
		lobbySize = DefaultLobbySize
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	accountService := account.New(store, clk, nil, logger)
	authService := auth.New(store, accountService, clk, rnd, cfg.AuthConfig, logger)
	dir := directory.New(logger, m)
	roomRegistry := registry.New(dir, m, logger)
	coordinator := transition.New(roomRegistry, m, logger)
	gate := admission.New(cfg.AdmissionConfig, clk, m, logger)

	if err := registerRoomTypes(roomRegistry, lobbySize); err != nil {
		return nil, err
	}

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Metrics:        m,
		Registry:       promRegistry,
		AccountService: accountService,
		AuthService:    authService,
		Directory:      dir,
		RoomRegistry:   roomRegistry,
		Coordinator:    coordinator,
		AdmissionGate:  gate,
	}, nil
}

// registerRoomTypes installs the four pipeline stages. Lobby and preparation
// rooms are advertised in the directory; game and after-game rooms are
// reachable only through transitions.
func registerRoomTypes(reg *registry.Registry, lobbySize int) error {
	// Game and after-game rooms must fit a whole lobby's group, or the
	// coordinator could never place it
	gameOccupancy := DefaultGameOccupancy
	if lobbySize > gameOccupancy {
		gameOccupancy = lobbySize
	}

	types := []registry.RoomType{
		{
			Stage:       model.StageLobby,
			DisplayName: "lobby",
			Advertised:  true,
			Rules: room.Rules{
				MaxOccupancy: lobbySize,
				ReadyWhen:    room.FixedSize(lobbySize),
			},
		},
		{
			Stage:       model.StagePreparation,
			DisplayName: "room",
			Advertised:  true,
			Rules: room.Rules{
				MaxOccupancy: lobbySize,
				ReadyWhen:    room.AllReady(DefaultGroupMinimum),
			},
		},
		{
			Stage:       model.StageGame,
			DisplayName: "game",
			Advertised:  false,
			Rules: room.Rules{
				MaxOccupancy: gameOccupancy,
				ReadyWhen:    room.MinOccupancy(DefaultGroupMinimum),
			},
		},
		{
			Stage:       model.StageAfterGame,
			DisplayName: "after-game",
			Advertised:  false,
			Rules: room.Rules{
				MaxOccupancy: gameOccupancy,
			},
		},
	}

	for _, rt := range types {
		if err := reg.Register(rt); err != nil {
			return err
		}
	}
	return nil
}
