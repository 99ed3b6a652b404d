// Package sessions persists the device session. At most one session is
// stored at a time.
package sessions

import (
	"context"

	"github.com/vaxtrace/vaxsync/internal/client/models"
)

type Repository interface {
	// Save replaces any stored session with s.
	Save(ctx context.Context, s *models.Session) error
	// Current returns the stored session or common.ErrNotFound.
	Current(ctx context.Context) (*models.Session, error)
	Clear(ctx context.Context) error
}
