// Package store is the local persistent store shared by the agent and the
// foreground CLI: one SQLite file in WAL mode holding the record
// collections, the outbox, the session, the proxy cache and agent metadata.
//
// A Store is a single owned handle. The database is opened and migrated on
// first use and released by Close. Every write runs in its own short
// immediate transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/vaxtrace/vaxsync/internal/client/migrations"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/cache"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/metadata"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/queue"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/records"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/sessions"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/dbx"
	"github.com/vaxtrace/vaxsync/internal/filex"
	"github.com/vaxtrace/vaxsync/internal/logging"

	_ "modernc.org/sqlite"
)

// Repositories bundles the repositories bound to one DBTX.
type Repositories struct {
	Records  records.Repository
	Queue    queue.Repository
	Sessions sessions.Repository
	Metadata metadata.Repository
	Cache    cache.Repository
}

// NewRepositories binds every repository to db.
func NewRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Records:  records.NewSQLiteRepository(db),
		Queue:    queue.NewSQLiteRepository(db),
		Sessions: sessions.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
		Cache:    cache.NewSQLiteRepository(db),
	}
}

// DSN is the modernc.org/sqlite connection string for the file at path.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

type Store struct {
	path string
	log  logging.Logger

	once    sync.Once
	db      *sql.DB
	openErr error

	mu     sync.Mutex
	closed bool
}

func New(path string, log logging.Logger) *Store {
	return &Store{path: path, log: log.With("module", "store")}
}

// DB returns the opened database, opening and migrating it on first use.
// Failure is sticky and reported as common.ErrStoreUnavailable. The open
// ignores ctx cancellation.
func (s *Store) DB(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: store is closed", common.ErrStoreUnavailable)
	}

	s.once.Do(func() {
		s.db, s.openErr = s.open(context.WithoutCancel(ctx))
	})
	if s.openErr != nil {
		return nil, s.openErr
	}
	return s.db, nil
}

func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	if _, err := filex.EnsureParentDir(s.path); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite", DSN(s.path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStoreUnavailable, s.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", common.ErrStoreUnavailable, s.path, err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	s.log.Debug(ctx, "store opened", "path", s.path)
	return db, nil
}

// Close releases the database. Later calls fail with ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	// Prevent a late first use from opening after Close.
	s.once.Do(func() {})
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Tx runs fn with repositories bound to one transaction.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	db, err := s.DB(ctx)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// Read runs fn with repositories bound to the database itself. Each
// statement sees a consistent snapshot.
func (s *Store) Read(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	db, err := s.DB(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, NewRepositories(db))
}
