package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chronus-app/chronus/internal/api/middleware"
	"github.com/chronus-app/chronus/internal/collab"
	"github.com/chronus-app/chronus/internal/models"
)

// RequestHandler handles collaboration request endpoints.
type RequestHandler struct {
	service *collab.Service
	logger  *slog.Logger
}

// NewRequestHandler creates a new request handler.
func NewRequestHandler(service *collab.Service, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{service: service, logger: logger}
}

type createRequestRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	RequestedTime float64  `json:"requested_time"`
	Deadline      string   `json:"deadline"`
	Competences   []string `json:"competences"`
}

// parseDeadline accepts a plain date or a full timestamp. Deadlines are
// compared by calendar date, so the time of day is irrelevant.
func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Create publishes a new collaboration request on behalf of the caller.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())

	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		WriteBadRequest(w, "deadline must be a date like 2026-09-01")
		return
	}

	created, err := h.service.CreateRequest(r.Context(), studentID, collab.CreateRequestInput{
		Title:         req.Title,
		Description:   req.Description,
		RequestedTime: models.Hours(req.RequestedTime),
		Deadline:      deadline,
		Competences:   req.Competences,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, created)
}

// List returns open requests, optionally narrowed to the caller's own
// published requests or the requests the caller has offered on.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())

	filter := collab.RequestFilter{
		ApplicantID: r.URL.Query().Get("applicant_id"),
		OffererID:   r.URL.Query().Get("offerer_id"),
	}

	requests, err := h.service.ListRequests(r.Context(), studentID, filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if requests == nil {
		requests = []*models.CollaborationRequest{}
	}

	WriteJSON(w, http.StatusOK, requests)
}

// Get returns a single open request.
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	req, err := h.service.GetRequest(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, req)
}

// AddOffer registers the caller's offer on a request.
func (h *RequestHandler) AddOffer(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())
	requestID := chi.URLParam(r, "requestID")

	if err := h.service.AddOffer(r.Context(), requestID, studentID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"request_id": requestID,
		"student_id": studentID,
	})
}
