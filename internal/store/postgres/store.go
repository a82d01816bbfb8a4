// Package postgres provides the PostgreSQL implementation of the store
// interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/chronus-app/chronus/internal/store"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger

	students       *StudentStore
	requests       *RequestStore
	collaborations *CollaborationStore
	messages       *MessageStore
	competences    *CompetenceStore
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{
		db:     db,
		logger: logger,
	}

	s.students = &StudentStore{db: db, logger: logger}
	s.requests = &RequestStore{db: db, logger: logger}
	s.collaborations = &CollaborationStore{db: db, logger: logger}
	s.messages = &MessageStore{db: db, logger: logger}
	s.competences = &CompetenceStore{db: db, logger: logger}

	logger.Info("connected to PostgreSQL database")
	return s, nil
}

// Students returns the StudentStore.
func (s *PostgresStore) Students() store.StudentStore {
	return s.students
}

// Requests returns the RequestStore.
func (s *PostgresStore) Requests() store.RequestStore {
	return s.requests
}

// Collaborations returns the CollaborationStore.
func (s *PostgresStore) Collaborations() store.CollaborationStore {
	return s.collaborations
}

// Messages returns the MessageStore.
func (s *PostgresStore) Messages() store.MessageStore {
	return s.messages
}

// Competences returns the CompetenceStore.
func (s *PostgresStore) Competences() store.CompetenceStore {
	return s.competences
}

// WithTx executes the given function within a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txs := &txStore{
		tx:     tx,
		logger: s.logger,
	}

	if err := fn(txs); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Ping verifies connectivity to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL connection")
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// txStore wraps a transaction and implements the Store interface.
type txStore struct {
	tx     *sql.Tx
	logger *slog.Logger

	students       *StudentStore
	requests       *RequestStore
	collaborations *CollaborationStore
	messages       *MessageStore
	competences    *CompetenceStore
}

func (s *txStore) Students() store.StudentStore {
	if s.students == nil {
		s.students = &StudentStore{tx: s.tx, logger: s.logger}
	}
	return s.students
}

func (s *txStore) Requests() store.RequestStore {
	if s.requests == nil {
		s.requests = &RequestStore{tx: s.tx, logger: s.logger}
	}
	return s.requests
}

func (s *txStore) Collaborations() store.CollaborationStore {
	if s.collaborations == nil {
		s.collaborations = &CollaborationStore{tx: s.tx, logger: s.logger}
	}
	return s.collaborations
}

func (s *txStore) Messages() store.MessageStore {
	if s.messages == nil {
		s.messages = &MessageStore{tx: s.tx, logger: s.logger}
	}
	return s.messages
}

func (s *txStore) Competences() store.CompetenceStore {
	if s.competences == nil {
		s.competences = &CompetenceStore{tx: s.tx, logger: s.logger}
	}
	return s.competences
}

func (s *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	// Already in a transaction, just execute the function
	return fn(s)
}

func (s *txStore) Close() error {
	// No-op for transaction store
	return nil
}

// queryable is an interface that both *sql.DB and *sql.Tx implement.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
