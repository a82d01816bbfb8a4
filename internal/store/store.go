// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/chronus-app/chronus/internal/models"
)

// Common store errors. Implementations translate driver errors into these so
// callers can branch without knowing the backend.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateKey is returned on a unique constraint violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInsufficientBudget is returned when a debit would drive a student's
	// available time below zero.
	ErrInsufficientBudget = errors.New("insufficient available time")
)

// StudentStore defines operations for student accounts and their time budget.
type StudentStore interface {
	// Create creates a new student with a hashed password.
	Create(ctx context.Context, student *models.Student, password string) error
	// Get retrieves a student by user ID.
	Get(ctx context.Context, id string) (*models.Student, error)
	// GetByEmail retrieves a student by email.
	GetByEmail(ctx context.Context, email string) (*models.Student, error)
	// Authenticate verifies credentials and returns the student.
	Authenticate(ctx context.Context, email, password string) (*models.Student, error)
	// UpdateProfile updates description, degrees and competences.
	UpdateProfile(ctx context.Context, student *models.Student) error
	// Debit atomically subtracts amount from the student's available time.
	// Returns ErrInsufficientBudget when the balance would go negative.
	Debit(ctx context.Context, id string, amount models.Hours) error
	// Credit atomically adds amount to the student's available time.
	Credit(ctx context.Context, id string, amount models.Hours) error
}

// RequestFilter narrows a collaboration request listing. The zero value
// matches every open request.
type RequestFilter struct {
	// ApplicantID limits results to requests published by this student.
	ApplicantID string
	// OffererID limits results to requests this student has offered on.
	OffererID string
	// NotExpiredOn excludes requests whose deadline lies before this day.
	NotExpiredOn time.Time
}

// RequestStore defines operations for collaboration requests and their
// offer sets.
type RequestStore interface {
	// Create persists a new collaboration request.
	Create(ctx context.Context, req *models.CollaborationRequest) error
	// Get retrieves a request with its offerer set.
	Get(ctx context.Context, id string) (*models.CollaborationRequest, error)
	// List retrieves requests matching the filter, newest first.
	List(ctx context.Context, filter RequestFilter) ([]*models.CollaborationRequest, error)
	// AddOfferer adds a student to the request's offer set. Returns
	// ErrDuplicateKey when the student has already offered.
	AddOfferer(ctx context.Context, requestID, studentID string) error
	// Delete removes a request and its offer rows.
	Delete(ctx context.Context, id string) error
}

// CollaborationStore defines operations for active collaborations.
type CollaborationStore interface {
	// Create persists a new collaboration.
	Create(ctx context.Context, collab *models.Collaboration) error
	// Get retrieves a collaboration by ID.
	Get(ctx context.Context, id string) (*models.Collaboration, error)
	// ListForStudent retrieves collaborations the student participates in
	// whose deadline has not passed as of the given day.
	ListForStudent(ctx context.Context, studentID string, today time.Time) ([]*models.Collaboration, error)
	// ListOverdue retrieves collaborations whose deadline lies before the
	// given day.
	ListOverdue(ctx context.Context, today time.Time) ([]*models.Collaboration, error)
	// Delete removes a collaboration; its messages cascade.
	Delete(ctx context.Context, id string) error
}

// MessageStore defines operations for chat messages.
type MessageStore interface {
	// Create persists a new message.
	Create(ctx context.Context, msg *models.Message) error
	// ListByCollaboration retrieves a collaboration's messages ordered by
	// timestamp.
	ListByCollaboration(ctx context.Context, collaborationID string) ([]*models.Message, error)
	// MarkRead marks every message in the collaboration not sent by the
	// reader as read.
	MarkRead(ctx context.Context, collaborationID, readerID string) error
}

// CompetenceStore defines operations for the competence tag catalogue.
type CompetenceStore interface {
	// List retrieves all known competence names.
	List(ctx context.Context) ([]string, error)
}

// Store is the main interface for database operations.
type Store interface {
	// Students returns the StudentStore.
	Students() StudentStore
	// Requests returns the RequestStore.
	Requests() RequestStore
	// Collaborations returns the CollaborationStore.
	Collaborations() CollaborationStore
	// Messages returns the MessageStore.
	Messages() MessageStore
	// Competences returns the CompetenceStore.
	Competences() CompetenceStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close closes the database connection.
	Close() error
}
