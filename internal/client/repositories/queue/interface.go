// Package queue is the durable outbox of mutations awaiting replay against
// the remote authority.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/models"
)

type Repository interface {
	// Enqueue appends a mutation and returns its id. Unroutable
	// (collection, action) pairs are rejected with
	// common.ErrConstraintViolation and nothing is written.
	Enqueue(ctx context.Context, action models.Action, collection models.Collection, recordID string, payload json.RawMessage) (string, error)

	// ListUnresolved returns pending entries in replay order.
	ListUnresolved(ctx context.Context) ([]*models.QueueEntry, error)

	Get(ctx context.Context, id string) (*models.QueueEntry, error)

	// MarkResolved is idempotent; the first resolvedAt is kept.
	MarkResolved(ctx context.Context, id string, at time.Time) error

	// MarkFailed records a failed attempt and leaves the entry pending.
	MarkFailed(ctx context.Context, id string, reason string) error

	Counts(ctx context.Context) (models.QueueCounts, error)

	Clear(ctx context.Context) error
}
