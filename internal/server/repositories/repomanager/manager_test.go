package repomanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/server/models"
)

func TestPostgresTx_Commits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	m := NewPostgresRepositoryManagerFromDB(db)
	defer m.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_events`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO records`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = m.Tx(context.Background(), func(ctx context.Context, r *Repositories) error {
		if _, err := r.SyncLog.Append(ctx, &models.Event{ID: "e1", Payload: []byte(`{}`)}); err != nil {
			return err
		}
		_, err := r.Records.Upsert(ctx, &models.Record{Collection: "c", ID: "1", Body: []byte(`{}`)})
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTx_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	m := NewPostgresRepositoryManagerFromDB(db)
	defer m.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sync_events`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err = m.Tx(context.Background(), func(ctx context.Context, r *Repositories) error {
		_, err := r.SyncLog.Append(ctx, &models.Event{ID: "e1", Payload: []byte(`{}`)})
		return err
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTx_BeginFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	m := NewPostgresRepositoryManagerFromDB(db)
	defer m.Close()

	mock.ExpectBegin().WillReturnError(errors.New("no connections"))

	err = m.Tx(context.Background(), func(context.Context, *Repositories) error { return nil })
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx))

	err := m.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		_, err := r.Records.Upsert(ctx, &models.Record{Collection: "c", ID: "1", OwnerID: "o", Body: []byte(`{}`), CreatedAt: time.Now()})
		return err
	})
	require.NoError(t, err)

	err = m.Read(ctx, func(ctx context.Context, r *Repositories) error {
		list, err := r.Records.ListByOwner(ctx, "c", "o")
		assert.Len(t, list, 1)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, m.Close())
}
