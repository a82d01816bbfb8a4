package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// CollaborationStore implements store.CollaborationStore using PostgreSQL.
type CollaborationStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *CollaborationStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const collaborationColumns = `id, title, COALESCE(description, ''), requested_time, deadline,
	status, applicant_id, collaborator_id, competences, created_at`

// Create persists a new collaboration.
func (s *CollaborationStore) Create(ctx context.Context, collab *models.Collaboration) error {
	competencesJSON, err := json.Marshal(collab.Competences)
	if err != nil {
		return fmt.Errorf("marshaling competences: %w", err)
	}

	if collab.CreatedAt.IsZero() {
		collab.CreatedAt = time.Now().UTC()
	}
	if collab.Status == "" {
		collab.Status = models.StatusInProgress
	}

	query := `
		INSERT INTO collaborations
			(id, title, description, requested_time, deadline, status, applicant_id, collaborator_id, competences, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = s.conn().ExecContext(ctx, query,
		collab.ID,
		collab.Title,
		collab.Description,
		collab.RequestedTime.Float64(),
		collab.Deadline,
		string(collab.Status),
		collab.ApplicantID,
		collab.CollaboratorID,
		competencesJSON,
		collab.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("inserting collaboration: %w", err)
	}

	return nil
}

// Get retrieves a collaboration by ID.
func (s *CollaborationStore) Get(ctx context.Context, id string) (*models.Collaboration, error) {
	query := `SELECT ` + collaborationColumns + ` FROM collaborations WHERE id = $1`
	return scanCollaboration(s.conn().QueryRowContext(ctx, query, id))
}

// ListForStudent retrieves unexpired collaborations the student participates in.
func (s *CollaborationStore) ListForStudent(ctx context.Context, studentID string, today time.Time) ([]*models.Collaboration, error) {
	query := `
		SELECT ` + collaborationColumns + `
		FROM collaborations
		WHERE (applicant_id = $1 OR collaborator_id = $1) AND deadline >= $2
		ORDER BY created_at DESC`

	return s.list(ctx, query, studentID, dateOf(today))
}

// ListOverdue retrieves collaborations whose deadline lies before the given day.
func (s *CollaborationStore) ListOverdue(ctx context.Context, today time.Time) ([]*models.Collaboration, error) {
	query := `
		SELECT ` + collaborationColumns + `
		FROM collaborations
		WHERE deadline < $1
		ORDER BY deadline`

	return s.list(ctx, query, dateOf(today))
}

// Delete removes a collaboration; its messages cascade.
func (s *CollaborationStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM collaborations WHERE id = $1`

	result, err := s.conn().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting collaboration: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *CollaborationStore) list(ctx context.Context, query string, args ...any) ([]*models.Collaboration, error) {
	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying collaborations: %w", err)
	}
	defer rows.Close()

	var collabs []*models.Collaboration
	for rows.Next() {
		collab, err := scanCollaboration(rows)
		if err != nil {
			return nil, err
		}
		collabs = append(collabs, collab)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collaboration rows: %w", err)
	}

	return collabs, nil
}

func scanCollaboration(row scanner) (*models.Collaboration, error) {
	collab := &models.Collaboration{}
	var requestedTime float64
	var status string
	var competencesJSON []byte

	err := row.Scan(
		&collab.ID,
		&collab.Title,
		&collab.Description,
		&requestedTime,
		&collab.Deadline,
		&status,
		&collab.ApplicantID,
		&collab.CollaboratorID,
		&competencesJSON,
		&collab.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning collaboration: %w", err)
	}

	collab.RequestedTime = models.Hours(requestedTime)
	collab.Status = models.CollaborationStatus(status)
	if err := json.Unmarshal(competencesJSON, &collab.Competences); err != nil {
		return nil, fmt.Errorf("unmarshaling competences: %w", err)
	}

	return collab, nil
}
