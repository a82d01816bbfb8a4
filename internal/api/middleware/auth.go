package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chronus-app/chronus/internal/auth"
	"github.com/chronus-app/chronus/pkg/logger"
)

// Context keys for student information.
type contextKey string

const (
	// StudentIDKey is the context key for the authenticated student ID.
	StudentIDKey contextKey = "student_id"
	// StudentEmailKey is the context key for the authenticated student email.
	StudentEmailKey contextKey = "student_email"
)

// GetStudentID extracts the student ID from the request context.
func GetStudentID(ctx context.Context) string {
	if v := ctx.Value(StudentIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetStudentEmail extracts the student email from the request context.
func GetStudentEmail(ctx context.Context) string {
	if v := ctx.Value(StudentEmailKey); v != nil {
		return v.(string)
	}
	return ""
}

// AuthMiddleware handles JWT authentication.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate is a middleware that validates JWT tokens from the
// Authorization header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token := auth.ExtractBearerToken(authHeader)
		if token == "" {
			writeUnauthorized(w, "Missing authentication")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("JWT validation failed", "error", err)
			if err == auth.ErrExpiredToken {
				writeUnauthorized(w, "Token has expired")
				return
			}
			writeUnauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), StudentIDKey, claims.StudentID)
		ctx = context.WithValue(ctx, StudentEmailKey, claims.Email)

		if ident := logger.IdentityFromContext(ctx); ident != nil {
			ident.SetStudentID(claims.StudentID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"unauthorized","message":"` + escapeJSON(message) + `"}`))
}

func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
