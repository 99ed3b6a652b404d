package cache

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/testdb"
	"github.com/vaxtrace/vaxsync/internal/common"
)

func TestPutGet_Verbatim(t *testing.T) {
	r := NewSQLiteRepository(testdb.Open(t))
	ctx := context.Background()

	body := []byte{0x00, 0xff, '{', '}'}
	h := http.Header{"Content-Type": {"application/json"}, "X-Multi": {"a", "b"}}
	require.NoError(t, r.Put(ctx, &models.CacheEntry{Generation: "g1", Key: "GET /api/x?", Status: 200, Header: h, Body: body}))

	got, err := r.Get(ctx, "g1", "GET /api/x?")
	require.NoError(t, err)
	assert.Equal(t, 200, got.Status)
	assert.Equal(t, h, got.Header)
	assert.Equal(t, body, got.Body)
	assert.False(t, got.StoredAt.IsZero())

	_, err = r.Get(ctx, "g2", "GET /api/x?")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGenerations(t *testing.T) {
	r := NewSQLiteRepository(testdb.Open(t))
	ctx := context.Background()

	for _, g := range []string{"old-1", "old-2", "cur"} {
		require.NoError(t, r.Put(ctx, &models.CacheEntry{Generation: g, Key: "k", Status: 200}))
		require.NoError(t, r.Put(ctx, &models.CacheEntry{Generation: g, Key: "k2", Status: 200}))
	}

	gens, err := r.Generations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cur", "old-1", "old-2"}, gens)

	n, err := r.DeleteAllExcept(ctx, "cur")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	gens, err = r.Generations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cur"}, gens)

	n, err = r.DeleteGeneration(ctx, "cur")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	gens, err = r.Generations(ctx)
	require.NoError(t, err)
	assert.Empty(t, gens)
}
