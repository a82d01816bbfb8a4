package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chronus-app/chronus/internal/store"
)

// CompetenceHandler serves the competence tag catalogue.
type CompetenceHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewCompetenceHandler creates a new competence handler.
func NewCompetenceHandler(st store.Store, logger *slog.Logger) *CompetenceHandler {
	return &CompetenceHandler{store: st, logger: logger}
}

// List returns all known competence names.
func (h *CompetenceHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Competences().List(r.Context())
	if err != nil {
		h.logger.Error("failed to list competences", "error", err)
		WriteInternalError(w, "internal error")
		return
	}
	if names == nil {
		names = []string{}
	}

	WriteJSON(w, http.StatusOK, names)
}
