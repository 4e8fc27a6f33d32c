package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// RequestLogger emits structured logs for every HTTP request. It reuses the
// id assigned by chi's RequestID middleware when present.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			if reqID == "" {
				reqID = r.Header.Get("X-Request-ID")
			}
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
			}
			if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
				attrs = append(attrs, "trace_id", sc.TraceID().String())
			}
			reqLogger := logger.With(attrs...)
			reqLogger.Debug("request started", "remote_ip", r.RemoteAddr)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			done := []any{
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case status >= 500:
				reqLogger.Error("request completed", done...)
			case status >= 400:
				reqLogger.Warn("request completed", done...)
			default:
				reqLogger.Info("request completed", done...)
			}
		})
	}
}
