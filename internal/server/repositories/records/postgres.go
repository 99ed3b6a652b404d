package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/dbx"
	"github.com/vaxtrace/vaxsync/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) (bool, error) {
	query := `
		INSERT INTO records (collection, id, owner_id, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (collection, id)
		DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
			WHERE records.deleted = FALSE;
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.Collection, rec.ID, rec.OwnerID, string(rec.Body), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, collection, id string, at time.Time) (bool, error) {
	query := `UPDATE records SET deleted = TRUE, deleted_at = $3, updated_at = $3
		WHERE collection = $1 AND id = $2 AND deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, collection, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affectedOne(res)
}

func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (*models.Record, error) {
	query := `SELECT collection, id, owner_id, body, deleted, created_at, updated_at, deleted_at
		FROM records WHERE collection = $1 AND id = $2`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, collection, ownerID string) ([]*models.Record, error) {
	query := `SELECT collection, id, owner_id, body, deleted, created_at, updated_at, deleted_at
		FROM records WHERE collection = $1 AND owner_id = $2 AND deleted = FALSE
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, collection, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec       models.Record
		body      []byte
		deletedAt sql.NullTime
	)
	if err := s.Scan(&rec.Collection, &rec.ID, &rec.OwnerID, &body, &rec.Deleted,
		&rec.CreatedAt, &rec.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	rec.Body = body
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	return &rec, nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}
