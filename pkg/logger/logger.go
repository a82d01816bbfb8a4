// Package logger provides structured logging using slog with request
// identity support.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityKey contextKey = "identity"

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the specified level and format.
func New(level slog.Level, json bool) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Identity records who a request was authenticated as. The request logger
// installs an empty Identity before authentication runs and reads it once
// the request completes, so the student ID is set through the pointer.
type Identity struct {
	mu        sync.Mutex
	studentID string
}

// SetStudentID records the authenticated student.
func (id *Identity) SetStudentID(studentID string) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.studentID = studentID
}

// StudentID returns the recorded student ID, empty when the request never
// authenticated.
func (id *Identity) StudentID() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.studentID
}

// ContextWithIdentity installs a fresh Identity in the context.
func ContextWithIdentity(ctx context.Context) (context.Context, *Identity) {
	id := &Identity{}
	return context.WithValue(ctx, identityKey, id), id
}

// IdentityFromContext returns the request's Identity, or nil when the
// request logger is not installed.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
