package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/server/models"
)

type key struct{ collection, id string }

// MemoryRepository keeps records in a map. It is safe for concurrent use.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[key]models.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: map[key]models.Record{}}
}

func (r *MemoryRepository) Upsert(_ context.Context, rec *models.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{rec.Collection, rec.ID}
	prev, ok := r.data[k]
	if ok && prev.Deleted {
		return false, nil
	}

	next := *rec
	next.Body = append([]byte(nil), rec.Body...)
	next.Deleted = false
	next.DeletedAt = nil
	if ok {
		next.CreatedAt = prev.CreatedAt
	}
	r.data[k] = next
	return true, nil
}

func (r *MemoryRepository) SoftDelete(_ context.Context, collection, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{collection, id}
	rec, ok := r.data[k]
	if !ok || rec.Deleted {
		return false, nil
	}
	rec.Deleted = true
	rec.DeletedAt = &at
	rec.UpdatedAt = at
	r.data[k] = rec
	return true, nil
}

func (r *MemoryRepository) Get(_ context.Context, collection, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data[key{collection, id}]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, common.ErrNotFound)
	}
	return &rec, nil
}

func (r *MemoryRepository) ListByOwner(_ context.Context, collection, ownerID string) ([]*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Record
	for k, rec := range r.data {
		if k.collection != collection || rec.OwnerID != ownerID || rec.Deleted {
			continue
		}
		rec := rec
		result = append(result, &rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
