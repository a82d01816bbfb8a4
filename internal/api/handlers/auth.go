package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/chronus-app/chronus/internal/auth"
	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// InitialBudget is the number of collaboration hours a new student starts
// with.
const InitialBudget = models.Hours(1)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store       store.Store
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(st store.Store, authSvc *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:       st,
		authService: authSvc,
		logger:      logger,
	}
}

type registerRequest struct {
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Description string          `json:"description"`
	Degrees     []models.Degree `json:"degrees"`
	Competences []string        `json:"competences"`
}

type authResponse struct {
	Token   string          `json:"token"`
	Student *models.Student `json:"student"`
}

// Register creates a new student account and returns a token for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, "email and password required")
		return
	}
	if len(req.Password) < 8 {
		WriteBadRequest(w, "password must be at least 8 characters")
		return
	}
	for i := range req.Degrees {
		if err := req.Degrees[i].Validate(); err != nil {
			WriteBadRequest(w, "invalid degree: an unfinished degree needs a grade between 1 and 6, a finished one must not carry one")
			return
		}
	}

	student := &models.Student{
		UserID:        uuid.New().String(),
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Description:   req.Description,
		AvailableTime: InitialBudget,
		Degrees:       req.Degrees,
		Competences:   req.Competences,
	}

	ctx := r.Context()
	if err := h.store.Students().Create(ctx, student, req.Password); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			WriteConflict(w, "email already registered")
			return
		}
		h.logger.Error("failed to create student", "error", err)
		WriteInternalError(w, "internal error")
		return
	}

	token, err := h.authService.GenerateToken(student.UserID, student.Email)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		WriteInternalError(w, "internal error")
		return
	}

	h.logger.Info("student registered", "student_id", student.UserID, "email", student.Email)
	WriteJSON(w, http.StatusCreated, authResponse{Token: token, Student: student})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteBadRequest(w, "email and password required")
		return
	}

	student, err := h.store.Students().Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		// Wrong password and unknown email answer identically
		WriteUnauthorized(w, "invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(student.UserID, student.Email)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		WriteInternalError(w, "internal error")
		return
	}

	WriteJSON(w, http.StatusOK, authResponse{Token: token, Student: student})
}
