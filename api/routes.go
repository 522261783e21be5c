package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"watchsync/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	favoritesHandler *handlers.FavoritesHandler,
	progressHandler *handlers.ProgressHandler,
	authHandler *handlers.AuthHandler,
	syncHandler *handlers.SyncHandler,
	playerHandler *handlers.PlayerHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Auth + session
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/session", authHandler.Session).Methods(http.MethodGet)
	api.HandleFunc("/auth/session", authHandler.Options).Methods(http.MethodOptions)

	// Favorites
	api.HandleFunc("/favorites", favoritesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/favorites", favoritesHandler.Toggle).Methods(http.MethodPost)
	api.HandleFunc("/favorites", favoritesHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/favorites/{mediaType}/{id}", favoritesHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/favorites/{mediaType}/{id}", favoritesHandler.Options).Methods(http.MethodOptions)

	// Playback progress
	api.HandleFunc("/progress", progressHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/progress", progressHandler.Record).Methods(http.MethodPost)
	api.HandleFunc("/progress", progressHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/progress/continue", progressHandler.ListContinueWatching).Methods(http.MethodGet)
	api.HandleFunc("/progress/continue", progressHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/progress/{mediaType}/{id}", progressHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/progress/{mediaType}/{id}", progressHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/progress/{mediaType}/{id}", progressHandler.Options).Methods(http.MethodOptions)

	// Sync controls
	api.HandleFunc("/sync/status", syncHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/sync/status", syncHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/sync/now", syncHandler.SyncNow).Methods(http.MethodPost)
	api.HandleFunc("/sync/now", syncHandler.Options).Methods(http.MethodOptions)

	// Embedded player progress relay (origin-checked inside the bridge)
	api.HandleFunc("/player/events", playerHandler.Relay).Methods(http.MethodPost)
	api.HandleFunc("/player/events", playerHandler.Options).Methods(http.MethodOptions)

	// Websocket endpoint sits outside the /api CORS middleware; the
	// bridge enforces its own origin allowlist during the upgrade.
	r.HandleFunc("/ws/player", playerHandler.Events).Methods(http.MethodGet)
}
