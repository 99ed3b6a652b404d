package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/testdb"
	"github.com/vaxtrace/vaxsync/internal/common"
)

var payload = json.RawMessage(`{"id":"v1"}`)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	return NewSQLiteRepository(testdb.Open(t))
}

func TestEnqueue_AssignsPrefixedUniqueIDs(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := r.Enqueue(ctx, models.ActionCreate, models.CollectionVaccinations, "v1", payload)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(id, IDPrefix))
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestListUnresolved_OrderSurvivesClockSteppingBack(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	clock := []int64{5000, 3000, 3000, 9000, 1000}
	i := 0
	r.now = func() time.Time {
		t := time.UnixMilli(clock[i])
		i++
		return t
	}

	var ids []string
	for n := range clock {
		id, err := r.Enqueue(ctx, models.ActionUpdate, models.CollectionVaccinations, fmt.Sprintf("v%d", n), payload)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := r.ListUnresolved(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(ids))
	for n, e := range list {
		assert.Equal(t, ids[n], e.ID)
		if n > 0 {
			assert.Greater(t, e.Seq, list[n-1].Seq)
			assert.False(t, e.CreatedAt.Before(list[n-1].CreatedAt), "createdAt must not decrease")
		}
	}
	assert.Equal(t, int64(9000), list[4].CreatedAt.UnixMilli())
}

func TestEnqueue_RejectsUnroutable(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.Enqueue(ctx, models.ActionDelete, models.CollectionMedicalHistory, "m1", payload)
	require.ErrorIs(t, err, common.ErrConstraintViolation)
	_, err = r.Enqueue(ctx, models.Action("upsert"), models.CollectionVaccinations, "v1", payload)
	require.ErrorIs(t, err, common.ErrConstraintViolation)
	_, err = r.Enqueue(ctx, models.ActionCreate, models.CollectionVaccinations, "", payload)
	require.ErrorIs(t, err, common.ErrConstraintViolation)
	_, err = r.Enqueue(ctx, models.ActionCreate, models.CollectionVaccinations, "v1", nil)
	require.ErrorIs(t, err, common.ErrConstraintViolation)

	c, err := r.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueCounts{}, c)
}

func TestMarkResolved_Idempotent(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	id, err := r.Enqueue(ctx, models.ActionCreate, models.CollectionVaccinations, "v1", payload)
	require.NoError(t, err)

	first := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, r.MarkResolved(ctx, id, first))
	once, err := r.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, r.MarkResolved(ctx, id, first.Add(time.Hour)))
	twice, err := r.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.True(t, twice.Resolved)
	require.NotNil(t, twice.ResolvedAt)
	assert.Equal(t, first.UnixMilli(), twice.ResolvedAt.UnixMilli())

	list, err := r.ListUnresolved(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.ErrorIs(t, r.MarkResolved(ctx, "sync_missing", first), common.ErrNotFound)
}

func TestMarkFailed_KeepsEntryPending(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	id, err := r.Enqueue(ctx, models.ActionCreate, models.CollectionVaccinations, "v1", payload)
	require.NoError(t, err)

	require.NoError(t, r.MarkFailed(ctx, id, "boom"))
	require.NoError(t, r.MarkFailed(ctx, id, "boom again"))

	e, err := r.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, e.Resolved)
	assert.Nil(t, e.ResolvedAt)
	assert.Equal(t, "boom again", e.LastError)
	assert.Equal(t, 2, e.Attempts)

	require.NoError(t, r.MarkResolved(ctx, id, time.Now()))
	require.NoError(t, r.MarkFailed(ctx, id, "late"))
	e, err = r.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, e.Resolved)
	assert.Empty(t, e.LastError)

	require.ErrorIs(t, r.MarkFailed(ctx, "sync_missing", "x"), common.ErrNotFound)
}

func TestCountsAndClear(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := r.Enqueue(ctx, models.ActionCreate, models.CollectionVaccinations, fmt.Sprintf("v%d", i), payload)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, r.MarkResolved(ctx, ids[1], time.Now()))

	c, err := r.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueCounts{Pending: 2, Resolved: 1}, c)

	require.NoError(t, r.Clear(ctx))
	c, err = r.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.QueueCounts{}, c)
}
