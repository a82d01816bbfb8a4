package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/store"
)

// MessageStore implements store.MessageStore using PostgreSQL.
type MessageStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *MessageStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists a new message.
func (s *MessageStore) Create(ctx context.Context, msg *models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (id, collaboration_id, sender_id, text, read, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.conn().ExecContext(ctx, query,
		msg.ID,
		msg.CollaborationID,
		msg.SenderID,
		msg.Text,
		msg.Read,
		msg.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// ListByCollaboration retrieves a collaboration's messages ordered by timestamp.
func (s *MessageStore) ListByCollaboration(ctx context.Context, collaborationID string) ([]*models.Message, error) {
	query := `
		SELECT id, collaboration_id, sender_id, text, read, timestamp
		FROM messages
		WHERE collaboration_id = $1
		ORDER BY timestamp`

	rows, err := s.conn().QueryContext(ctx, query, collaborationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		err := rows.Scan(
			&msg.ID,
			&msg.CollaborationID,
			&msg.SenderID,
			&msg.Text,
			&msg.Read,
			&msg.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// MarkRead marks every message in the collaboration not sent by the reader
// as read.
func (s *MessageStore) MarkRead(ctx context.Context, collaborationID, readerID string) error {
	query := `
		UPDATE messages
		SET read = TRUE
		WHERE collaboration_id = $1 AND sender_id <> $2 AND NOT read`

	if _, err := s.conn().ExecContext(ctx, query, collaborationID, readerID); err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}

	return nil
}
