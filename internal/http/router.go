package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(middleware.RealIP)
	r.Use(WithLogging)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	})

	r.Get("/healthz", app.healthHandler)
	r.Get("/debug/metrics", app.metricsHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", app.openapiHandler)
	r.Get("/docs", app.docsHandler)

	r.Group(func(r chi.Router) {
		r.Use(WithSession(app.Sessions, app.Cfg.SessionTTL))
		r.Get("/", app.homeHandler)
		r.Get("/catalog", app.catalogHandler)
		r.Get("/catalog/{id}", app.productHandler)
		r.Get("/delivery", app.deliveryHandler)
		r.Get("/contacts", app.contactsHandler)
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", app.cartHandler)
			r.Delete("/", app.clearCartHandler)
			r.Post("/checkout", app.checkoutHandler)
			r.Post("/items/{id}", app.addItemHandler)
			r.Delete("/items/{id}", app.removeItemHandler)
			r.Put("/items/{id}", app.setQuantityHandler)
		})
	})
	return r
}
