package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/storefront-state/internal/obs"
	"github.com/fairyhunter13/storefront-state/internal/session"
	"github.com/fairyhunter13/storefront-state/internal/store"
)

// SessionCookie carries the session id between page requests.
const SessionCookie = "storefront_session"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeySessionID
	ctxKeyStore
)

// RequestIDFromContext returns the request id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// SessionIDFromContext returns the session id set by WithSession.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySessionID).(string)
	return v
}

// StoreFromContext returns the session store set by WithSession.
func StoreFromContext(ctx context.Context) *store.Store {
	v, _ := ctx.Value(ctxKeyStore).(*store.Store)
	return v
}

type statusRecorder struct {
	h  http.ResponseWriter
	st int
	n  int
}

func (w *statusRecorder) Header() http.Header { return w.h.Header() }
func (w *statusRecorder) WriteHeader(code int) {
	w.st = code
	w.h.WriteHeader(code)
}
func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.h.Write(b)
	w.n += n
	return n, err
}

// WithRequestID propagates X-Request-Id, generating one when absent.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

// WithLogging writes one log record per request.
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{h: w, st: 200}
		next.ServeHTTP(sr, r)
		lat := time.Since(start)
		obs.Logger.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.st,
			"bytes", sr.n,
			"latency_ms", float64(lat.Microseconds())/1000.0,
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// WithSession resolves the session store of the request, creating a session
// and setting its cookie when the request carries none or an unknown one.
func WithSession(reg *session.Registry, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
			st, sid, _ := reg.GetOrCreate(id)
			if sid != id {
				c := &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				}
				if ttl > 0 {
					c.MaxAge = int(ttl.Seconds())
				}
				http.SetCookie(w, c)
			}
			ctx := context.WithValue(r.Context(), ctxKeySessionID, sid)
			ctx = context.WithValue(ctx, ctxKeyStore, st)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
