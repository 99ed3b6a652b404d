// Package cache stores the caching proxy's response snapshots, grouped in
// generations that are created and dropped wholesale.
package cache

import (
	"context"

	"github.com/vaxtrace/vaxsync/internal/client/models"
)

type Repository interface {
	// Put inserts or replaces the snapshot for (generation, key).
	Put(ctx context.Context, e *models.CacheEntry) error
	// Get returns the snapshot or common.ErrNotFound.
	Get(ctx context.Context, generation, key string) (*models.CacheEntry, error)
	// DeleteGeneration drops every snapshot of one generation.
	DeleteGeneration(ctx context.Context, generation string) (int64, error)
	// DeleteAllExcept drops every generation other than keep.
	DeleteAllExcept(ctx context.Context, keep string) (int64, error)
	// Generations lists the stored generation names.
	Generations(ctx context.Context) ([]string, error)
}
