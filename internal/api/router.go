package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/bingoroom/internal/api/handler"
	"github.com/mcoot/bingoroom/internal/api/middleware"
	"github.com/mcoot/bingoroom/internal/services/host"
	"github.com/mcoot/bingoroom/internal/services/registry"
	"github.com/mcoot/bingoroom/internal/services/results"
	"github.com/mcoot/bingoroom/internal/services/roster"
	"github.com/mcoot/bingoroom/internal/stream"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	RegistryService *registry.Service
	RosterService   *roster.Service
	HostService     *host.Service
	ResultsService  *results.Service
	HubManager      *stream.HubManager
	PublicURL       string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	roomHandler := handler.NewRoomHandler(cfg.RegistryService, cfg.PublicURL)
	playerHandler := handler.NewPlayerHandler(cfg.RegistryService, cfg.RosterService)
	hostHandler := handler.NewHostHandler(cfg.HostService)
	resultsHandler := handler.NewResultsHandler(cfg.ResultsService)
	streamHandler := handler.NewStreamHandler(cfg.RegistryService, cfg.HubManager, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Room routes
	rooms := api.PathPrefix("/rooms").Subrouter()
	rooms.HandleFunc("", roomHandler.Create).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}", roomHandler.Get).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}/qr.png", roomHandler.QR).Methods(http.MethodGet)

	// Roster routes
	rooms.HandleFunc("/{code}/players", playerHandler.Join).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/players", playerHandler.List).Methods(http.MethodGet)

	// Host routes
	rooms.HandleFunc("/{code}/host", hostHandler.Claim).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/start", hostHandler.Start).Methods(http.MethodPost)

	// Results routes
	rooms.HandleFunc("/{code}/results", resultsHandler.Submit).Methods(http.MethodPost)
	rooms.HandleFunc("/{code}/results", resultsHandler.Leaderboard).Methods(http.MethodGet)

	// Live change streams
	rooms.HandleFunc("/{code}/events", streamHandler.Events).Methods(http.MethodGet)
	rooms.HandleFunc("/{code}/ws", streamHandler.WebSocket).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
