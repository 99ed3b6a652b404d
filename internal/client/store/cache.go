package store

import (
	"context"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/cache"
)

// Cache returns the proxy cache repository backed by this store. Each call
// runs on the shared handle, so the database opens on first use.
func (s *Store) Cache() cache.Repository {
	return storeCache{s: s}
}

type storeCache struct {
	s *Store
}

func (c storeCache) Put(ctx context.Context, e *models.CacheEntry) error {
	return c.s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		return r.Cache.Put(ctx, e)
	})
}

func (c storeCache) Get(ctx context.Context, generation, key string) (*models.CacheEntry, error) {
	var e *models.CacheEntry
	err := c.s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		e, err = r.Cache.Get(ctx, generation, key)
		return err
	})
	return e, err
}

func (c storeCache) DeleteGeneration(ctx context.Context, generation string) (int64, error) {
	var n int64
	err := c.s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		n, err = r.Cache.DeleteGeneration(ctx, generation)
		return err
	})
	return n, err
}

func (c storeCache) DeleteAllExcept(ctx context.Context, keep string) (int64, error) {
	var n int64
	err := c.s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		n, err = r.Cache.DeleteAllExcept(ctx, keep)
		return err
	})
	return n, err
}

func (c storeCache) Generations(ctx context.Context) ([]string, error) {
	var gens []string
	err := c.s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		gens, err = r.Cache.Generations(ctx)
		return err
	})
	return gens, err
}
