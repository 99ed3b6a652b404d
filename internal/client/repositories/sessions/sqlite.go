package sessions

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

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save should run inside a transaction so the delete and the insert are
// seen together.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	if s.ID == "" || s.OwnerID == "" {
		return fmt.Errorf("%w: session needs id and owner id", common.ErrConstraintViolation)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to drop previous session: %w", err)
	}

	query := `INSERT INTO sessions (id, owner_id, role, name, token, biometric_verified, last_verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.OwnerID, string(s.Role), s.Name, s.Token,
		s.BiometricVerified, s.LastVerifiedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Current(ctx context.Context) (*models.Session, error) {
	var (
		s        models.Session
		role     string
		verified int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, role, name, token, biometric_verified, last_verified_at FROM sessions LIMIT 1`).
		Scan(&s.ID, &s.OwnerID, &role, &s.Name, &s.Token, &s.BiometricVerified, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}

	s.Role = models.Role(role)
	s.LastVerifiedAt = time.UnixMilli(verified)
	return &s, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
