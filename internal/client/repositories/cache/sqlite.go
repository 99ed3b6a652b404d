package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, e *models.CacheEntry) error {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("failed to encode headers for %s: %w", e.Key, err)
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}
	body := e.Body
	if body == nil {
		body = []byte{}
	}

	query := `INSERT INTO cache_entries (generation, key, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(generation, key) DO UPDATE SET status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at`
	_, err = r.db.ExecContext(ctx, query, e.Generation, e.Key, e.Status, header, body, e.StoredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store %s in %s: %w", e.Key, e.Generation, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, generation, key string) (*models.CacheEntry, error) {
	var (
		e        = models.CacheEntry{Generation: generation, Key: key}
		header   []byte
		storedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT status, header, body, stored_at FROM cache_entries WHERE generation = ? AND key = ?`,
		generation, key).Scan(&e.Status, &header, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cache %s %q: %w", generation, key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}

	e.Header = http.Header{}
	if err := json.Unmarshal(header, &e.Header); err != nil {
		return nil, fmt.Errorf("failed to decode headers for %s: %w", key, err)
	}
	e.StoredAt = time.UnixMilli(storedAt)
	return &e, nil
}

func (r *SQLiteRepository) DeleteGeneration(ctx context.Context, generation string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE generation = ?`, generation)
	if err != nil {
		return 0, fmt.Errorf("failed to delete generation %s: %w", generation, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) DeleteAllExcept(ctx context.Context, keep string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE generation <> ?`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale generations: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) Generations(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT generation FROM cache_entries ORDER BY generation`)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}
