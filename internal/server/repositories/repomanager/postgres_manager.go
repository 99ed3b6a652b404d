package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vaxtrace/vaxsync/internal/dbx"
	"github.com/vaxtrace/vaxsync/internal/server/migrations"
	"github.com/vaxtrace/vaxsync/internal/server/repositories/records"
	"github.com/vaxtrace/vaxsync/internal/server/repositories/synclog"
)

type PostgresRepositoryManager struct {
	db *sql.DB
}

// NewPostgresRepositoryManager opens dsn with the pgx driver and checks the
// connection.
func NewPostgresRepositoryManager(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresRepositoryManagerFromDB(db), nil
}

func NewPostgresRepositoryManagerFromDB(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

func bind(db dbx.DBTX) *Repositories {
	return &Repositories{
		Records: records.NewPostgresRepository(db),
		SyncLog: synclog.NewPostgresRepository(db),
	}
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	return migrations.Up(ctx, m.db)
}

func (m *PostgresRepositoryManager) Tx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, bind(tx))
	})
}

func (m *PostgresRepositoryManager) Read(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return fn(ctx, bind(m.db))
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
