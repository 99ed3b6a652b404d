// Package repomanager hands out the remote authority's repositories, bound
// either to a PostgreSQL transaction or to process memory.
package repomanager

import (
	"context"

	"github.com/vaxtrace/vaxsync/internal/server/repositories/records"
	"github.com/vaxtrace/vaxsync/internal/server/repositories/synclog"
)

// Repositories is the set of repositories one unit of work operates on.
type Repositories struct {
	Records records.Repository
	SyncLog synclog.Repository
}

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Tx runs fn as one unit of work. The PostgreSQL manager commits when
	// fn returns nil and rolls back otherwise.
	Tx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error
	// Read runs fn outside a transaction.
	Read(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error
	Close() error
}
