package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"dugout/internal/service"
	"dugout/internal/transport/rest/handler"
	"dugout/internal/transport/rest/middleware"
	"dugout/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	sessionHandler := handler.NewSessionHandler(c.SessionService, c.AuthService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/join", sessionHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{id}/owner", wsHandler.OwnerWS).Methods("GET")
	v1.HandleFunc("/ws/sessions/{id}/participant", wsHandler.ParticipantWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Owner routes (require owner auth)
	ownerRoutes := v1.NewRoute().Subrouter()
	ownerRoutes.Use(authMW.RequireOwner)

	ownerRoutes.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	ownerRoutes.HandleFunc("/sessions/{id}/end", sessionHandler.End).Methods("POST", "OPTIONS")

	// Device routes: owner or session-scoped participant, both write
	// the shared session record directly.
	deviceRoutes := v1.NewRoute().Subrouter()
	deviceRoutes.Use(authMW.RequireDevice)

	deviceRoutes.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/heartbeat", sessionHandler.Heartbeat).Methods("POST", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/presence", sessionHandler.Presence).Methods("GET", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/scoreboard", sessionHandler.UpdateScoreboard).Methods("PATCH", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/pending-call", sessionHandler.SetPendingCall).Methods("PUT", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/pending-call", sessionHandler.ClearPendingCall).Methods("DELETE", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/selected-player", sessionHandler.SelectPlayer).Methods("PUT", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/selected-player", sessionHandler.ClearSelectedPlayer).Methods("DELETE", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/lineup", sessionHandler.AppendPlayer).Methods("POST", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/lineup/migrate", sessionHandler.MigrateLineup).Methods("POST", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/events", sessionHandler.AddEvent).Methods("POST", "OPTIONS")
	deviceRoutes.HandleFunc("/sessions/{id}/events", sessionHandler.ListEvents).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
