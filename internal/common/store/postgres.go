package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"query-orchestrator/internal/models"
)

// PostgresStore searches a documents table with Postgres full-text search.
type PostgresStore struct {
	db    *sql.DB
	table string
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "documents"
	}
	return &PostgresStore{db: db, table: table}
}

func (s *PostgresStore) Search(ctx context.Context, text, tenant string, limit int) ([]models.Document, error) {
	query := `SELECT id, question, answer, tenant
		FROM ` + pq.QuoteIdentifier(s.table) + `
		WHERE tenant = $1
		  AND to_tsvector('english', question || ' ' || answer) @@ plainto_tsquery('english', $2)
		ORDER BY ts_rank(to_tsvector('english', question || ' ' || answer), plainto_tsquery('english', $2)) DESC, id ASC
		LIMIT $3`

	docs, err := s.query(ctx, query, tenant, text, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %v", ErrSearchFailed, err)
	}
	return docs, nil
}

func (s *PostgresStore) FetchByIDs(ctx context.Context, ids []string, tenant string) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}

	query := `SELECT id, question, answer, tenant
		FROM ` + pq.QuoteIdentifier(s.table) + `
		WHERE tenant = $1 AND id = ANY($2)`

	docs, err := s.query(ctx, query, tenant, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: postgres: %v", ErrFetchFailed, err)
	}
	return orderByIDs(docs, ids), nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.Question, &d.Answer, &d.Tenant); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
