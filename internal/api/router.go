package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arenalab/arena-server/internal/api/handler"
	"github.com/arenalab/arena-server/internal/api/middleware"
	"github.com/arenalab/arena-server/internal/services/account"
	"github.com/arenalab/arena-server/internal/services/admission"
	"github.com/arenalab/arena-server/internal/services/auth"
	"github.com/arenalab/arena-server/internal/services/directory"
	"github.com/arenalab/arena-server/internal/services/registry"
	"github.com/arenalab/arena-server/internal/services/transition"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	AccountService *account.Service
	Registry       *registry.Registry
	Directory      *directory.Directory
	Coordinator    *transition.Coordinator
	AdmissionGate  *admission.Gate
	Gatherer       prometheus.Gatherer
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.AccountService)
	roomHandler := handler.NewRoomHandler(cfg.Registry, cfg.Coordinator)
	directoryHandler := handler.NewDirectoryHandler(cfg.Directory)
	monitorHandler := handler.NewMonitorHandler(cfg.Registry, cfg.Directory)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	rateLimitMiddleware := middleware.RateLimit(cfg.AdmissionGate)
	operatorMiddleware := middleware.Operator(cfg.AdmissionGate)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.Use(rateLimitMiddleware)

	// Auth routes (no session required)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/guest", authHandler.Guest).Methods(http.MethodPost)

	// Protected auth/account routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/accounts/me", authHandler.GetMe).Methods(http.MethodGet)

	// Directory routes (all require auth)
	protected.HandleFunc("/directory", directoryHandler.Snapshot).Methods(http.MethodGet)
	protected.HandleFunc("/directory/stream", directoryHandler.Stream).Methods(http.MethodGet)

	// Room routes (all require auth)
	protected.HandleFunc("/rooms/join", roomHandler.JoinStage).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{id}/join", roomHandler.Join).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/leave", roomHandler.Leave).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/ready", roomHandler.Ready).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/context", roomHandler.SetContext).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{id}/complete", roomHandler.Complete).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Monitor surface behind the operator credential
	monitor := r.PathPrefix("/monitor").Subrouter()
	monitor.Use(recoveryMiddleware)
	monitor.Use(loggingMiddleware)
	monitor.Use(operatorMiddleware)
	monitor.HandleFunc("/rooms", monitorHandler.Rooms).Methods(http.MethodGet)
	monitor.HandleFunc("/types", monitorHandler.Types).Methods(http.MethodGet)
	monitor.HandleFunc("/stats", monitorHandler.Stats).Methods(http.MethodGet)
	if cfg.Gatherer != nil {
		monitor.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
