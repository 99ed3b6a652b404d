// Package synclog is the audit journal of accepted mutations.
package synclog

import (
	"context"

	"github.com/vaxtrace/vaxsync/internal/server/models"
)

type Repository interface {
	// Append records ev. It reports false when an event with the same id is
	// already journaled.
	Append(ctx context.Context, ev *models.Event) (bool, error)
	// Count returns the number of journaled events.
	Count(ctx context.Context) (int64, error)
}
