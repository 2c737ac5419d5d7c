package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"dramastream/handlers"
)

// corsMiddleware handles CORS for API routes.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	catalogHandler *handlers.CatalogHandler,
	progressHandler *handlers.ProgressHandler,
	myListHandler *handlers.MyListHandler,
	sessionHandler *handlers.SessionHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Catalog rows per platform
	catalog := api.PathPrefix("/catalog/{platform}").Subrouter()
	catalog.HandleFunc("/home", catalogHandler.Homepage).Methods(http.MethodGet)
	catalog.HandleFunc("/trending", catalogHandler.Trending).Methods(http.MethodGet)
	catalog.HandleFunc("/latest", catalogHandler.Latest).Methods(http.MethodGet)
	catalog.HandleFunc("/foryou", catalogHandler.ForYou).Methods(http.MethodGet)
	catalog.HandleFunc("/vip", catalogHandler.VIP).Methods(http.MethodGet)
	catalog.HandleFunc("/dubbed", catalogHandler.Dubbed).Methods(http.MethodGet)
	catalog.HandleFunc("/random", catalogHandler.Random).Methods(http.MethodGet)
	catalog.HandleFunc("/search", catalogHandler.SearchPlatform).Methods(http.MethodGet)
	catalog.HandleFunc("/drama/{dramaID}", catalogHandler.Detail).Methods(http.MethodGet)
	catalog.HandleFunc("/drama/{dramaID}/episodes", catalogHandler.Episodes).Methods(http.MethodGet)
	catalog.HandleFunc("/video/{episodeID}", catalogHandler.VideoURL).Methods(http.MethodGet)

	// Cross-platform search
	api.HandleFunc("/search", catalogHandler.SearchAll).Methods(http.MethodGet)

	// Continue watching ledger
	api.HandleFunc("/progress", progressHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/progress", progressHandler.Update).Methods(http.MethodPost)
	api.HandleFunc("/progress", progressHandler.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/progress/sync", progressHandler.SyncPull).Methods(http.MethodPost)
	api.HandleFunc("/progress/sync/stats", progressHandler.SyncStats).Methods(http.MethodGet)

	// My list
	api.HandleFunc("/mylist", myListHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/mylist", myListHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/mylist", myListHandler.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/mylist/{dramaID}", myListHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/mylist/{dramaID}", myListHandler.Contains).Methods(http.MethodGet)

	// Session / platform selection
	api.HandleFunc("/session", sessionHandler.Current).Methods(http.MethodGet)
	api.HandleFunc("/session/login", sessionHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/session/logout", sessionHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/platform", sessionHandler.SetPlatform).Methods(http.MethodPut)
}
