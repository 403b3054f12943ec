package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/storefront-state/internal/config"
	httpopenapi "github.com/fairyhunter13/storefront-state/internal/http/openapi"
	"github.com/fairyhunter13/storefront-state/internal/model"
	"github.com/fairyhunter13/storefront-state/internal/obs"
	"github.com/fairyhunter13/storefront-state/internal/pages"
	"github.com/fairyhunter13/storefront-state/internal/queue"
	"github.com/fairyhunter13/storefront-state/internal/session"
	"github.com/fairyhunter13/storefront-state/internal/store"
)

type App struct {
	Cfg      config.Config
	Sessions *session.Registry
	Manager  *queue.Manager
	closing  atomic.Bool
	started  time.Time
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type checkoutResponse struct {
	Token uint64     `json:"token"`
	View  pages.View `json:"view"`
}

func NewApp(cfg config.Config, reg *session.Registry, m *queue.Manager) *App {
	return &App{Cfg: cfg, Sessions: reg, Manager: m, started: time.Now()}
}

// StartShutdown stops accepting new backend work.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	a.Manager.CloseIntake()
}

func (a *App) shuttingDown() bool {
	return a.closing.Load() || a.Manager.IsShuttingDown()
}

// settle waits up to RenderWait for the store's requests to finish. A view
// rendered before that shows the loading state.
func (a *App) settle(r *http.Request, st *store.Store) {
	if a.Cfg.RenderWait <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.Cfg.RenderWait)
	defer cancel()
	st.Settle(ctx)
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		WriteJSONError(w, http.StatusBadRequest, "invalid_id", "product id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (a *App) homeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pages.Home(StoreFromContext(r.Context()).State()))
}

func (a *App) catalogHandler(w http.ResponseWriter, r *http.Request) {
	st := StoreFromContext(r.Context())
	st.LoadCatalog()
	a.settle(r, st)
	writeJSON(w, http.StatusOK, pages.Catalog(st.State()))
}

func (a *App) productHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	st := StoreFromContext(r.Context())
	st.LoadProduct(id)
	a.settle(r, st)
	v := pages.Product(st.State(), id)
	status := http.StatusOK
	if v.Status == pages.StatusNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, v)
}

func (a *App) deliveryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pages.Delivery(StoreFromContext(r.Context()).State()))
}

func (a *App) contactsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pages.Contacts(StoreFromContext(r.Context()).State()))
}

func (a *App) cartHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pages.Cart(StoreFromContext(r.Context()).State()))
}

func (a *App) addItemHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	st := StoreFromContext(r.Context())
	st.Dispatch(store.AddToCart{ProductID: id})
	writeJSON(w, http.StatusOK, pages.Cart(st.State()))
}

func (a *App) removeItemHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	st := StoreFromContext(r.Context())
	st.Dispatch(store.RemoveFromCart{ProductID: id})
	writeJSON(w, http.StatusOK, pages.Cart(st.State()))
}

func (a *App) setQuantityHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "quantity is required")
		return
	}
	st := StoreFromContext(r.Context())
	st.Dispatch(store.SetQuantity{ProductID: id, Quantity: *req.Quantity})
	writeJSON(w, http.StatusOK, pages.Cart(st.State()))
}

func (a *App) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	st := StoreFromContext(r.Context())
	st.Dispatch(store.ClearCart{})
	writeJSON(w, http.StatusOK, pages.Cart(st.State()))
}

func (a *App) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	if a.shuttingDown() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	var form model.CheckoutForm
	if !decodeJSON(w, r, &form) {
		return
	}
	st := StoreFromContext(r.Context())
	token, err := st.Checkout(form)
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteJSONError(w, http.StatusBadRequest, "validation_error", ve.Error())
		return
	case errors.Is(err, store.ErrEmptyCart):
		WriteJSONError(w, http.StatusConflict, "empty_cart", "")
		return
	case err != nil:
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	a.settle(r, st)
	state := st.State()
	status := http.StatusOK
	if state.Checkout.Token == token && state.Checkout.Status == store.StatusLoading {
		status = http.StatusAccepted
	}
	writeJSON(w, status, checkoutResponse{Token: token, View: pages.Cart(state)})
	obs.Logger.Info("checkout_submitted",
		"request_id", RequestIDFromContext(r.Context()),
		"session_id", SessionIDFromContext(r.Context()),
		"token", token,
		"checkout_status", state.Checkout.Status.String(),
	)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	enq, proc, backlog, depth := a.Manager.QueueMetrics()
	m := map[string]any{
		"jobs_enqueued":   enq,
		"jobs_processed":  proc,
		"jobs_superseded": a.Manager.Superseded(),
		"backlog_size":    backlog,
		"queue_depth":     depth,
		"worker_count":    a.Manager.WorkerCount(),
		"sessions_active": a.Sessions.Len(),
		"uptime_sec":      time.Since(a.started).Seconds(),
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Storefront API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}
