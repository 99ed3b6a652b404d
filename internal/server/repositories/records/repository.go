// Package records stores the remote authority's documents, keyed by
// collection and id.
//
// Writes are last-write-wins. A delete leaves a tombstone that later upserts
// of the same record do not revive, so a redelivered create cannot undo a
// delete.
package records

import (
	"context"
	"time"

	"github.com/vaxtrace/vaxsync/internal/server/models"
)

type Repository interface {
	// Upsert stores rec. It reports false when the record is a tombstone and
	// was left untouched.
	Upsert(ctx context.Context, rec *models.Record) (bool, error)
	// SoftDelete marks the record deleted at at. Deleting a missing or
	// already deleted record is not an error; it reports false.
	SoftDelete(ctx context.Context, collection, id string, at time.Time) (bool, error)
	// Get returns the record, tombstones included, or common.ErrNotFound.
	Get(ctx context.Context, collection, id string) (*models.Record, error)
	// ListByOwner returns the live records of ownerID in creation order.
	ListByOwner(ctx context.Context, collection, ownerID string) ([]*models.Record, error)
}
