package api

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telemetry-dashboard/internal/metrics"
)

func SetupDataRouter(apiHandler *APIHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.MetricsMiddleware)

	r.Post("/data", apiHandler.Authenticate(apiHandler.HandleDataIngest))
	r.Get("/health", apiHandler.HandleHealth)

	return r
}

func SetupUIRouter(apiHandler *APIHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.MetricsMiddleware)
	r.Use(corsHandler(apiHandler.origins))

	r.Get("/", apiHandler.ServeWebUI)
	r.Get("/ws", apiHandler.HandleWebSocket)
	r.Get("/ws/updates", apiHandler.HandleWebSocket)
	r.Get("/health", apiHandler.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/data/historical", apiHandler.HandleHistorical)
		r.Post("/login", apiHandler.HandleLogin)
		r.With(apiHandler.auth.JWTMiddleware).Post("/reset", apiHandler.HandleReset)
	})

	// Serve static files (CSS, JS)
	staticPath := filepath.Join(apiHandler.webDir, "static")
	fs := http.FileServer(http.Dir(staticPath))
	r.Handle("/static/*", http.StripPrefix("/static/", fs))

	return r
}

// corsHandler lets a separately served frontend call /api. An empty list
// allows any origin, matching the WebSocket origin check.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	})
}
