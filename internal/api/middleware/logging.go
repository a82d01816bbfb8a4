// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chronus-app/chronus/pkg/logger"
)

// RequestLogger returns a middleware that logs each request on completion,
// including the authenticated student when the auth middleware ran.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// The auth middleware runs after this one, so the identity
			// is read back through a holder rather than the context value.
			ctx, ident := logger.ContextWithIdentity(r.Context())

			defer func() {
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
					"request_id", chimiddleware.GetReqID(ctx),
					"remote_addr", r.RemoteAddr,
				}
				if studentID := ident.StudentID(); studentID != "" {
					attrs = append(attrs, "student_id", studentID)
				}
				log.Info("request completed", attrs...)
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
