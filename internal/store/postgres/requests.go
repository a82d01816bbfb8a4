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

// RequestStore implements store.RequestStore using PostgreSQL. The offer set
// lives in the request_offers join table; the request row owns it for
// lifecycle purposes and deleting the request removes the offers with it.
type RequestStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *RequestStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists a new collaboration request.
func (s *RequestStore) Create(ctx context.Context, req *models.CollaborationRequest) error {
	competencesJSON, err := json.Marshal(req.Competences)
	if err != nil {
		return fmt.Errorf("marshaling competences: %w", err)
	}

	if req.PublicationDate.IsZero() {
		req.PublicationDate = time.Now().UTC()
	}

	query := `
		INSERT INTO collaboration_requests
			(id, title, description, requested_time, deadline, publication_date, applicant_id, competences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.conn().ExecContext(ctx, query,
		req.ID,
		req.Title,
		req.Description,
		req.RequestedTime.Float64(),
		req.Deadline,
		req.PublicationDate,
		req.ApplicantID,
		competencesJSON,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("inserting request: %w", err)
	}

	return nil
}

const requestColumns = `r.id, r.title, COALESCE(r.description, ''), r.requested_time,
	r.deadline, r.publication_date, r.applicant_id, r.competences`

// Get retrieves a request with its offerer set.
func (s *RequestStore) Get(ctx context.Context, id string) (*models.CollaborationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM collaboration_requests r WHERE r.id = $1`

	req, err := scanRequest(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	offerers, err := s.listOfferers(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Offerers = offerers

	return req, nil
}

// List retrieves requests matching the filter, newest first.
func (s *RequestStore) List(ctx context.Context, filter store.RequestFilter) ([]*models.CollaborationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM collaboration_requests r`
	var (
		where []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ApplicantID != "" {
		where = append(where, "r.applicant_id = "+arg(filter.ApplicantID))
	}
	if filter.OffererID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM request_offers o WHERE o.request_id = r.id AND o.student_id = "+arg(filter.OffererID)+")")
	}
	if !filter.NotExpiredOn.IsZero() {
		where = append(where, "r.deadline >= "+arg(dateOf(filter.NotExpiredOn)))
	}

	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY r.publication_date DESC"

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.CollaborationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating request rows: %w", err)
	}

	for _, req := range requests {
		offerers, err := s.listOfferers(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		req.Offerers = offerers
	}

	return requests, nil
}

// AddOfferer adds a student to the request's offer set.
func (s *RequestStore) AddOfferer(ctx context.Context, requestID, studentID string) error {
	query := `INSERT INTO request_offers (request_id, student_id) VALUES ($1, $2)`

	_, err := s.conn().ExecContext(ctx, query, requestID, studentID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("inserting offer: %w", err)
	}

	return nil
}

// Delete removes a request; its offer rows cascade.
func (s *RequestStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM collaboration_requests WHERE id = $1`

	result, err := s.conn().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting request: %w", err)
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

func (s *RequestStore) listOfferers(ctx context.Context, requestID string) ([]string, error) {
	query := `SELECT student_id FROM request_offers WHERE request_id = $1 ORDER BY offered_at`

	rows, err := s.conn().QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("querying offerers: %w", err)
	}
	defer rows.Close()

	var offerers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning offerer row: %w", err)
		}
		offerers = append(offerers, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating offerer rows: %w", err)
	}

	return offerers, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.CollaborationRequest, error) {
	req := &models.CollaborationRequest{}
	var requestedTime float64
	var competencesJSON []byte

	err := row.Scan(
		&req.ID,
		&req.Title,
		&req.Description,
		&requestedTime,
		&req.Deadline,
		&req.PublicationDate,
		&req.ApplicantID,
		&competencesJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning request: %w", err)
	}

	req.RequestedTime = models.Hours(requestedTime)
	if err := json.Unmarshal(competencesJSON, &req.Competences); err != nil {
		return nil, fmt.Errorf("unmarshaling competences: %w", err)
	}

	return req, nil
}

// dateOf truncates a timestamp to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
