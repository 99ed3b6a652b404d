package synclog

import (
	"context"
	"sync"

	"github.com/vaxtrace/vaxsync/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.Mutex
	events map[string]models.Event
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: map[string]models.Event{}}
}

func (r *MemoryRepository) Append(_ context.Context, ev *models.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[ev.ID]; ok {
		return false, nil
	}
	r.events[ev.ID] = *ev
	return true, nil
}

func (r *MemoryRepository) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.events)), nil
}
