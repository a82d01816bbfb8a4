package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chronus-app/chronus/internal/api/middleware"
	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/models"
)

// CollaborationHandler handles collaboration endpoints.
type CollaborationHandler struct {
	service *collab.Service
	logger  *slog.Logger
}

// NewCollaborationHandler creates a new collaboration handler.
func NewCollaborationHandler(service *collab.Service, logger *slog.Logger) *CollaborationHandler {
	return &CollaborationHandler{service: service, logger: logger}
}

type acceptRequest struct {
	RequestID      string `json:"request_id"`
	CollaboratorID string `json:"collaborator_id"`
}

// Create accepts an offer, turning the request into an active collaboration.
// The caller must be the request's applicant and the named collaborator must
// have offered.
func (h *CollaborationHandler) Create(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())

	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}
	if req.RequestID == "" || req.CollaboratorID == "" {
		WriteBadRequest(w, "request_id and collaborator_id required")
		return
	}

	created, err := h.service.Accept(r.Context(), studentID, req.RequestID, req.CollaboratorID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// List returns the caller's active collaborations.
func (h *CollaborationHandler) List(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())

	collaborations, err := h.service.ListCollaborations(r.Context(), studentID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if collaborations == nil {
		collaborations = []*models.Collaboration{}
	}

	WriteJSON(w, http.StatusOK, collaborations)
}

// Get returns one of the caller's collaborations.
func (h *CollaborationHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())
	collaborationID := chi.URLParam(r, "collaborationID")

	c, err := h.service.GetCollaboration(r.Context(), studentID, collaborationID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, c)
}
