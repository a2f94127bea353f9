// Package store implements the tenant-scoped document store used by
// retrieval: Elasticsearch or Postgres full-text search, optionally behind
// a Redis cache.
package store

import (
	"context"
	"errors"

	"query-orchestrator/internal/models"
)

var (
	ErrSearchFailed = errors.New("SEARCH_FAILED")
	ErrFetchFailed  = errors.New("DOCUMENT_FETCH_FAILED")
)

type Store interface {
	Search(ctx context.Context, text, tenant string, limit int) ([]models.Document, error)
	FetchByIDs(ctx context.Context, ids []string, tenant string) ([]models.Document, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}
