package repomanager

import (
	"context"
	"sync"

	"github.com/vaxtrace/vaxsync/internal/server/repositories/records"
	"github.com/vaxtrace/vaxsync/internal/server/repositories/synclog"
)

// InMemoryRepositoryManager keeps everything in process memory. Units of
// work are serialised but not rolled back on error.
type InMemoryRepositoryManager struct {
	mu    sync.Mutex
	repos *Repositories
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{repos: &Repositories{
		Records: records.NewMemoryRepository(),
		SyncLog: synclog.NewMemoryRepository(),
	}}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Tx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m.repos)
}

func (m *InMemoryRepositoryManager) Read(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return fn(ctx, m.repos)
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
