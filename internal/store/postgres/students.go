package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// StudentStore implements store.StudentStore using PostgreSQL.
type StudentStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *StudentStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const studentColumns = `user_id, email, first_name, last_name, COALESCE(description, ''),
	available_time, rating_count, accumulated_rating, degrees, competences, created_at`

// Create creates a new student with a hashed password.
func (s *StudentStore) Create(ctx context.Context, student *models.Student, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	degreesJSON, err := json.Marshal(student.Degrees)
	if err != nil {
		return fmt.Errorf("marshaling degrees: %w", err)
	}
	competencesJSON, err := json.Marshal(student.Competences)
	if err != nil {
		return fmt.Errorf("marshaling competences: %w", err)
	}

	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO students (user_id, email, password_hash, first_name, last_name, description,
		                      available_time, rating_count, accumulated_rating, degrees, competences, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = s.conn().ExecContext(ctx, query,
		student.UserID,
		student.Email,
		string(hashedPassword),
		student.FirstName,
		student.LastName,
		student.Description,
		student.AvailableTime.Float64(),
		student.RatingCount,
		student.AccumulatedRating,
		degreesJSON,
		competencesJSON,
		student.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("inserting student: %w", err)
	}

	return nil
}

// Get retrieves a student by user ID.
func (s *StudentStore) Get(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE user_id = $1`
	return s.scanStudent(s.conn().QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a student by email.
func (s *StudentStore) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE email = $1`
	return s.scanStudent(s.conn().QueryRowContext(ctx, query, email))
}

// Authenticate verifies credentials and returns the student.
func (s *StudentStore) Authenticate(ctx context.Context, email, password string) (*models.Student, error) {
	query := `SELECT password_hash FROM students WHERE email = $1`

	var passwordHash string
	err := s.conn().QueryRowContext(ctx, query, email).Scan(&passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, store.ErrNotFound
	}

	return s.GetByEmail(ctx, email)
}

// UpdateProfile updates description, degrees and competences.
func (s *StudentStore) UpdateProfile(ctx context.Context, student *models.Student) error {
	degreesJSON, err := json.Marshal(student.Degrees)
	if err != nil {
		return fmt.Errorf("marshaling degrees: %w", err)
	}
	competencesJSON, err := json.Marshal(student.Competences)
	if err != nil {
		return fmt.Errorf("marshaling competences: %w", err)
	}

	query := `
		UPDATE students
		SET description = $2, degrees = $3, competences = $4
		WHERE user_id = $1`

	result, err := s.conn().ExecContext(ctx, query,
		student.UserID,
		student.Description,
		degreesJSON,
		competencesJSON,
	)
	if err != nil {
		return fmt.Errorf("updating student: %w", err)
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

// Debit atomically subtracts amount from the student's available time. The
// guard in the WHERE clause keeps the balance non-negative without an
// in-process lock.
func (s *StudentStore) Debit(ctx context.Context, id string, amount models.Hours) error {
	query := `
		UPDATE students
		SET available_time = available_time - $2
		WHERE user_id = $1 AND available_time >= $2`

	result, err := s.conn().ExecContext(ctx, query, id, amount.Float64())
	if err != nil {
		return fmt.Errorf("debiting student: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing student from an exhausted budget
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM students WHERE user_id = $1)`
		if err := s.conn().QueryRowContext(ctx, checkQuery, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking student existence: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrInsufficientBudget
	}

	return nil
}

// Credit atomically adds amount to the student's available time.
func (s *StudentStore) Credit(ctx context.Context, id string, amount models.Hours) error {
	query := `
		UPDATE students
		SET available_time = available_time + $2
		WHERE user_id = $1`

	result, err := s.conn().ExecContext(ctx, query, id, amount.Float64())
	if err != nil {
		return fmt.Errorf("crediting student: %w", err)
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

// scanStudent scans a single student row.
func (s *StudentStore) scanStudent(row *sql.Row) (*models.Student, error) {
	student := &models.Student{}
	var availableTime float64
	var degreesJSON, competencesJSON []byte

	err := row.Scan(
		&student.UserID,
		&student.Email,
		&student.FirstName,
		&student.LastName,
		&student.Description,
		&availableTime,
		&student.RatingCount,
		&student.AccumulatedRating,
		&degreesJSON,
		&competencesJSON,
		&student.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning student: %w", err)
	}

	student.AvailableTime = models.Hours(availableTime)
	if err := json.Unmarshal(degreesJSON, &student.Degrees); err != nil {
		return nil, fmt.Errorf("unmarshaling degrees: %w", err)
	}
	if err := json.Unmarshal(competencesJSON, &student.Competences); err != nil {
		return nil, fmt.Errorf("unmarshaling competences: %w", err)
	}

	return student, nil
}
