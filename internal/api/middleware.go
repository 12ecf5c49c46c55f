package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// tenantHeader carries the caller's tenant. The server trusts the
// header; authenticating it belongs to the gateway in front.
const tenantHeader = "X-Tenant-ID"

type ctxKey int

const tenantKey ctxKey = iota

// TenantMiddleware requires a tenant id on every request and stores it
// in the request context.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(tenantHeader))
		if tenantID == "" {
			jsonError(w, "missing "+tenantHeader+" header", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantID returns the tenant stored by TenantMiddleware.
func TenantID(r *http.Request) string {
	tenantID, _ := r.Context().Value(tenantKey).(string)
	return tenantID
}

// RequestLogger logs incoming requests.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE streaming works through
// the logging middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
