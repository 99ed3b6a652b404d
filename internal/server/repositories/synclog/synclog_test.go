package synclog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/server/models"
)

func sampleEvent() *models.Event {
	return &models.Event{
		ID:         "sync_1",
		Collection: models.CollectionVaccinations,
		Action:     models.ActionCreate,
		RecordID:   "vax_1",
		Payload:    []byte(`{"id":"vax_1"}`),
		ReceivedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestPostgresAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	ev := sampleEvent()
	mock.ExpectExec(`INSERT INTO sync_events .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(ev.ID, ev.Collection, ev.Action, ev.RecordID, `{"id":"vax_1"}`, "", ev.ReceivedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sync_events`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO sync_events`).WillReturnError(errors.New("down"))

	ok, err := repo.Append(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Append(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Append(context.Background(), ev)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sync_events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := NewPostgresRepository(db).Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
}

func TestMemoryAppend_Dedupes(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	ok, err := r.Append(ctx, sampleEvent())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Append(ctx, sampleEvent())
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
