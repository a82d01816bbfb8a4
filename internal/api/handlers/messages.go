package handlers

import (
	"log/slog"
	"net/http"

	"github.com/chronus-app/chronus/internal/api/middleware"
	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// MessageHandler handles chat history endpoints.
type MessageHandler struct {
	store   store.Store
	service *collab.Service
	logger  *slog.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(st store.Store, service *collab.Service, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{store: st, service: service, logger: logger}
}

// List returns the message history of one of the caller's collaborations and
// marks the other participant's messages as read.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())

	collaborationID := r.URL.Query().Get("collaboration_id")
	if collaborationID == "" {
		WriteBadRequest(w, "collaboration_id required")
		return
	}

	ctx := r.Context()

	// Participant check rides on the collaboration lookup
	if _, err := h.service.GetCollaboration(ctx, studentID, collaborationID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	messages, err := h.store.Messages().ListByCollaboration(ctx, collaborationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	if err := h.store.Messages().MarkRead(ctx, collaborationID, studentID); err != nil {
		h.logger.Warn("failed to mark messages read", "error", err, "collaboration_id", collaborationID)
	}

	WriteJSON(w, http.StatusOK, messages)
}
