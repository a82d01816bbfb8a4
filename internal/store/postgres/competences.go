package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// CompetenceStore implements store.CompetenceStore using PostgreSQL.
type CompetenceStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *CompetenceStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// List retrieves all known competence names.
func (s *CompetenceStore) List(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM competences ORDER BY name`

	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying competences: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning competence row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating competence rows: %w", err)
	}

	return names, nil
}
