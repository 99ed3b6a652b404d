package records

import (
	"context"

	"github.com/vaxtrace/vaxsync/internal/client/models"
)

// Repository describes CRUD and index queries over record collections.
type Repository interface {
	// Put inserts or overwrites a document by (collection, id).
	Put(ctx context.Context, doc *models.Document) error

	// Get returns a document or common.ErrNotFound.
	Get(ctx context.Context, collection models.Collection, id string) (*models.Document, error)

	// QueryByIndex returns documents whose secondary key equals value,
	// ordered by id.
	QueryByIndex(ctx context.Context, collection models.Collection, index string, value string) ([]*models.Document, error)

	// Delete removes a document. Deleting a missing id is not an error.
	Delete(ctx context.Context, collection models.Collection, id string) error

	// Clear removes every document of a collection.
	Clear(ctx context.Context, collection models.Collection) error
}
