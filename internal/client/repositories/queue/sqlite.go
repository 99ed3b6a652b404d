package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/dbx"
)

// IDPrefix starts every queue entry id.
const IDPrefix = "sync_"

type SQLiteRepository struct {
	db    dbx.DBTX
	now   func() time.Time
	newID func() string
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{
		db:    db,
		now:   time.Now,
		newID: func() string { return IDPrefix + uuid.NewString() },
	}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, action models.Action, collection models.Collection, recordID string, payload json.RawMessage) (string, error) {
	if !action.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", common.ErrConstraintViolation, action)
	}
	if _, ok := models.RouteFor(collection, action); !ok {
		return "", fmt.Errorf("%w: no remote route for %s %s", common.ErrConstraintViolation, action, collection)
	}
	if recordID == "" {
		return "", fmt.Errorf("%w: %s %s without record id", common.ErrConstraintViolation, action, collection)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: %s %s/%s without payload", common.ErrConstraintViolation, action, collection, recordID)
	}

	// created_at never goes below the newest stored value, so the seq order
	// and the created_at order agree even if the wall clock steps back.
	var latest int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(created_at), 0) FROM sync_queue`).Scan(&latest); err != nil {
		return "", fmt.Errorf("failed to read queue head: %w", err)
	}
	createdAt := r.now().UnixMilli()
	if createdAt < latest {
		createdAt = latest
	}

	id := r.newID()
	query := `INSERT INTO sync_queue (id, action, collection, record_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, id, string(action), string(collection), recordID, []byte(payload), createdAt); err != nil {
		return "", fmt.Errorf("failed to enqueue %s %s/%s: %w", action, collection, recordID, err)
	}
	return id, nil
}

const selectColumns = `SELECT seq, id, action, collection, record_id, payload, created_at, resolved, resolved_at, last_error, attempts FROM sync_queue`

func (r *SQLiteRepository) ListUnresolved(ctx context.Context) ([]*models.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE resolved = 0 ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to select unresolved entries: %w", err)
	}
	defer rows.Close()

	result := []*models.QueueEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.QueueEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue entry %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) MarkResolved(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET resolved = 1, resolved_at = ?, last_error = '' WHERE id = ? AND resolved = 0`,
		at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to mark %s resolved: %w", id, err)
	}
	return r.checkTouched(ctx, res, id)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sync_queue SET last_error = ?, attempts = attempts + 1 WHERE id = ? AND resolved = 0`,
		reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s failed: %w", id, err)
	}
	return r.checkTouched(ctx, res, id)
}

// checkTouched turns "no row updated" into ErrNotFound unless the entry
// exists and was already resolved.
func (r *SQLiteRepository) checkTouched(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM sync_queue WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("queue entry %s: %w", id, common.ErrNotFound)
	}
	return err
}

func (r *SQLiteRepository) Counts(ctx context.Context) (models.QueueCounts, error) {
	var c models.QueueCounts
	err := r.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(CASE WHEN resolved = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN resolved = 1 THEN 1 ELSE 0 END), 0)
		FROM sync_queue`).Scan(&c.Pending, &c.Resolved)
	if err != nil {
		return models.QueueCounts{}, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.QueueEntry, error) {
	var (
		e          models.QueueEntry
		action     string
		collection string
		payload    []byte
		createdAt  int64
		resolved   bool
		resolvedAt sql.NullInt64
	)
	err := s.Scan(&e.Seq, &e.ID, &action, &collection, &e.RecordID, &payload, &createdAt,
		&resolved, &resolvedAt, &e.LastError, &e.Attempts)
	if err != nil {
		return nil, err
	}

	e.Action = models.Action(action)
	e.Collection = models.Collection(collection)
	e.Payload = payload
	e.CreatedAt = time.UnixMilli(createdAt)
	e.Resolved = resolved
	if resolvedAt.Valid {
		t := time.UnixMilli(resolvedAt.Int64)
		e.ResolvedAt = &t
	}
	return &e, nil
}
