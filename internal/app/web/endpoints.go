package web

import (
	"net/http"

	"luxemarket_api/internal/app/web/handlers"
	"luxemarket_api/internal/auth"
	"luxemarket_api/metrics"
)

// SetupRoutes registers the admin API, health and metrics endpoints.
// Everything under /api/admin/ requires a valid admin token.
func SetupRoutes(mux *http.ServeMux, jwtSecret string, importHandler *handlers.ImportHandler, productHandler *handlers.ProductHandler) {
	authn := auth.AuthMiddleware(jwtSecret)
	adminOnly := auth.RoleMiddleware(auth.RoleAdmin)
	admin := func(h http.HandlerFunc) http.Handler {
		return authn(adminOnly(h))
	}

	mux.Handle("/api/admin/import-fast", admin(importHandler.StartImportHandler))
	mux.Handle("/api/admin/import-jobs", admin(importHandler.JobsHandler))
	mux.Handle("/api/admin/import-jobs/", admin(importHandler.JobHandler))

	mux.Handle("/api/admin/products", admin(productHandler.ListProductsHandler))
	mux.Handle("/api/admin/products/count", admin(productHandler.CountProductsHandler))
	mux.Handle("/api/admin/products/", admin(productHandler.ProductHandlerByID))

	mux.Handle("/metrics", metrics.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := productHandler.Ping(); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
