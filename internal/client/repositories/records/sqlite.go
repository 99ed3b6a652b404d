package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Validate checks the collection invariants of doc.
func Validate(doc *models.Document) error {
	if !doc.Collection.IsRecordCollection() {
		return fmt.Errorf("%w: %q is not a record collection", common.ErrConstraintViolation, doc.Collection)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: %s record without id", common.ErrConstraintViolation, doc.Collection)
	}
	if doc.OwnerID == "" {
		return fmt.Errorf("%w: %s/%s without owner id", common.ErrConstraintViolation, doc.Collection, doc.ID)
	}
	if doc.Collection == models.CollectionSharedRecords && doc.ShareCode == "" {
		return fmt.Errorf("%w: shared record %s without share code", common.ErrConstraintViolation, doc.ID)
	}
	if len(doc.Body) == 0 {
		return fmt.Errorf("%w: %s/%s without body", common.ErrConstraintViolation, doc.Collection, doc.ID)
	}
	return nil
}

func (r *SQLiteRepository) Put(ctx context.Context, doc *models.Document) error {
	if err := Validate(doc); err != nil {
		return err
	}

	updatedAt := r.now()
	query := `INSERT INTO records (collection, id, owner_id, share_code, body, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET owner_id = excluded.owner_id,
				share_code = excluded.share_code,
				body = excluded.body,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		string(doc.Collection), doc.ID, doc.OwnerID, doc.ShareCode, []byte(doc.Body), updatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", doc.Collection, doc.ID, err)
	}
	doc.UpdatedAt = time.UnixMilli(updatedAt.UnixMilli())
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, collection models.Collection, id string) (*models.Document, error) {
	query := `SELECT collection, id, owner_id, share_code, body, updated_at FROM records WHERE collection=? AND id=?`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, string(collection), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return doc, nil
}

func (r *SQLiteRepository) QueryByIndex(ctx context.Context, collection models.Collection, index string, value string) ([]*models.Document, error) {
	if !collection.HasIndex(index) {
		return nil, fmt.Errorf("%w: %s has no index %q", common.ErrConstraintViolation, collection, index)
	}

	column := "owner_id"
	if index == models.IndexShareCode {
		column = "share_code"
	}
	query := `SELECT collection, id, owner_id, share_code, body, updated_at FROM records
		WHERE collection=? AND ` + column + `=? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, string(collection), value)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s by %s: %w", collection, index, err)
	}
	defer rows.Close()

	result := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, collection models.Collection, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection=? AND id=?`, string(collection), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, collection models.Collection) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection=?`, string(collection))
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*models.Document, error) {
	var (
		doc        models.Document
		collection string
		body       []byte
		updatedAt  int64
	)
	if err := s.Scan(&collection, &doc.ID, &doc.OwnerID, &doc.ShareCode, &body, &updatedAt); err != nil {
		return nil, err
	}
	doc.Collection = models.Collection(collection)
	doc.Body = body
	doc.UpdatedAt = time.UnixMilli(updatedAt)
	return &doc, nil
}
