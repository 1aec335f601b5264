package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/topple/internal/api/handler"
	"github.com/mcoot/topple/internal/api/middleware"
	"github.com/mcoot/topple/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Matches    handler.MatchService
	HubManager *sse.HubManager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	matchHandler := handler.NewMatchHandler(cfg.Matches)
	eventsHandler := handler.NewEventsHandler(cfg.Matches, cfg.HubManager)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", matchHandler.Health).Methods(http.MethodGet)
	api.HandleFunc("/structures", matchHandler.Structures).Methods(http.MethodGet)

	matches := api.PathPrefix("/matches").Subrouter()
	matches.HandleFunc("", matchHandler.Create).Methods(http.MethodPost)
	matches.HandleFunc("", matchHandler.List).Methods(http.MethodGet)
	matches.HandleFunc("/{id}", matchHandler.Get).Methods(http.MethodGet)
	matches.HandleFunc("/{id}", matchHandler.End).Methods(http.MethodDelete)
	matches.HandleFunc("/{id}/turns", matchHandler.Launch).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/restart", matchHandler.Restart).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/events", eventsHandler.Stream).Methods(http.MethodGet)

	return r
}
