package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/ledger"
	"github.com/chronus-app/chronus/internal/store"
)

// writeServiceError maps domain errors to HTTP responses. Unknown errors are
// logged and reported as 500 without leaking detail.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, collab.ErrTitleRequired):
		WriteBadRequest(w, "title is required")
	case errors.Is(err, collab.ErrTitleTooLong):
		WriteBadRequest(w, "title must be at most 100 characters")
	case errors.Is(err, collab.ErrInvalidDeadline):
		WriteBadRequest(w, "deadline must not lie in the past")
	case errors.Is(err, ledger.ErrInvalidDuration):
		WriteBadRequest(w, "requested time must be a positive multiple of 0.25 hours")
	case errors.Is(err, ledger.ErrInsufficientBudget):
		WriteError(w, http.StatusConflict, ErrCodeInsufficientBudget, "insufficient available time")
	case errors.Is(err, collab.ErrDuplicateOffer):
		WriteError(w, http.StatusConflict, ErrCodeDuplicateOffer, "offer already registered")
	case errors.Is(err, collab.ErrPermissionDenied):
		WriteForbidden(w, "permission denied")
	case errors.Is(err, collab.ErrExpired):
		WriteError(w, http.StatusForbidden, ErrCodeExpired, "deadline has passed")
	case errors.Is(err, store.ErrNotFound):
		WriteNotFound(w, "resource not found")
	case errors.Is(err, store.ErrDuplicateKey):
		WriteConflict(w, "resource already exists")
	default:
		logger.Error("request failed", "error", err)
		WriteInternalError(w, "internal error")
	}
}
