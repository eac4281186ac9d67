package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/arenalab/arena-server/internal/api"
	"github.com/arenalab/arena-server/internal/factory"
	"github.com/arenalab/arena-server/internal/services/admission"
	redisstorage "github.com/arenalab/arena-server/internal/storage/redis"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Build factory config from environment
	admissionCfg := admission.DefaultConfig()
	admissionCfg.OperatorSecret = os.Getenv("ADMIN_PASSWORD")
	if user := os.Getenv("ADMIN_USER"); user != "" {
		admissionCfg.OperatorUser = user
	}

	cfg := factory.Config{
		Logger:          logger,
		StorageType:     os.Getenv("STORAGE_TYPE"),
		AdmissionConfig: admissionCfg,
	}

	if size := os.Getenv("LOBBY_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || n < 2 {
			logger.Error("LOBBY_SIZE must be an integer >= 2")
			os.Exit(1)
		}
		cfg.LobbySize = n
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := os.Getenv("REDIS_URL")
		if redisURL == "" {
			logger.Error("REDIS_URL required when STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		AccountService: app.AccountService,
		Registry:       app.RoomRegistry,
		Directory:      app.Directory,
		Coordinator:    app.Coordinator,
		AdmissionGate:  app.AdmissionGate,
		Gatherer:       app.Registry,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			logger.Error("PORT must be an integer")
			os.Exit(1)
		}
		serverConfig.Port = n
	}
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background maintenance: expired sessions and idle rate-limit windows
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.AuthService.CleanExpiredSessions()
				app.AdmissionGate.Sweep()
			}
		}
	}()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
