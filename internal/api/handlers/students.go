package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chronus-app/chronus/internal/api/middleware"
	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// StudentHandler handles student profile endpoints.
type StudentHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewStudentHandler creates a new student handler.
func NewStudentHandler(st store.Store, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{store: st, logger: logger}
}

type studentResponse struct {
	*models.Student
	AverageRating float64 `json:"average_rating"`
}

// Me returns the authenticated student's profile.
func (h *StudentHandler) Me(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())

	student, err := h.store.Students().Get(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "student not found")
			return
		}
		h.logger.Error("failed to load student", "error", err, "student_id", studentID)
		WriteInternalError(w, "internal error")
		return
	}

	WriteJSON(w, http.StatusOK, studentResponse{Student: student, AverageRating: student.AverageRating()})
}

type updateProfileRequest struct {
	Description *string          `json:"description"`
	Degrees     *[]models.Degree `json:"degrees"`
	Competences *[]string        `json:"competences"`
}

// UpdateMe patches the authenticated student's profile. Only description,
// degrees and competences are mutable; the time budget belongs to the ledger.
func (h *StudentHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	studentID := middleware.GetStudentID(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	ctx := r.Context()
	student, err := h.store.Students().Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteNotFound(w, "student not found")
			return
		}
		h.logger.Error("failed to load student", "error", err, "student_id", studentID)
		WriteInternalError(w, "internal error")
		return
	}

	if req.Description != nil {
		student.Description = *req.Description
	}
	if req.Degrees != nil {
		for i := range *req.Degrees {
			if err := (*req.Degrees)[i].Validate(); err != nil {
				WriteBadRequest(w, "invalid degree: an unfinished degree needs a grade between 1 and 6, a finished one must not carry one")
				return
			}
		}
		student.Degrees = *req.Degrees
	}
	if req.Competences != nil {
		student.Competences = *req.Competences
	}

	if err := h.store.Students().UpdateProfile(ctx, student); err != nil {
		h.logger.Error("failed to update profile", "error", err, "student_id", studentID)
		WriteInternalError(w, "internal error")
		return
	}

	WriteJSON(w, http.StatusOK, studentResponse{Student: student, AverageRating: student.AverageRating()})
}
