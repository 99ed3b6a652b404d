package syncer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/remote"
	"github.com/vaxtrace/vaxsync/internal/client/store"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

type hit struct {
	Method string
	Path   string
	Body   string
}

// fakeRemote records every request and fails those whose body mentions a
// record id listed in failIDs.
type fakeRemote struct {
	mu      sync.Mutex
	hits    []hit
	failIDs map[string]bool
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	f.hits = append(f.hits, hit{r.Method, r.URL.Path, string(b)})
	f.mu.Unlock()

	var probe struct {
		ID       string `json:"id"`
		RecordID string `json:"recordId"`
	}
	_ = json.Unmarshal(b, &probe)
	if f.failIDs[probe.ID] || f.failIDs[probe.RecordID] {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
		return
	}
	if r.URL.Path == "/sync" {
		_, _ = w.Write([]byte(`{"success":true,"synced":true,"id":"x","timestamp":1}`))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (f *fakeRemote) Hits() []hit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hit(nil), f.hits...)
}

func setup(t *testing.T, f *fakeRemote, cfg Config) (*Coordinator, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	st := store.New(filepath.Join(t.TempDir(), "s.db"), logging.Discard())
	t.Cleanup(func() { _ = st.Close() })

	return New(st, remote.New(srv.URL, 2*time.Second, nil), cfg, logging.Discard()), st
}

func enqueueRecord(t *testing.T, st *store.Store, action models.Action, id string) string {
	t.Helper()
	body, err := json.Marshal(&models.VaccinationRecord{ID: id, PatientMosipID: "p1", VaccineName: "Polio"})
	require.NoError(t, err)
	qid, err := st.Enqueue(context.Background(), action, models.CollectionVaccinations, id, body)
	require.NoError(t, err)
	return qid
}

func TestReplay_RoundTripResolvesEntry(t *testing.T) {
	f := &fakeRemote{}
	c, st := setup(t, f, Config{})
	ctx := context.Background()

	qid := enqueueRecord(t, st, models.ActionCreate, "v1")

	res, err := c.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Resolved: 1}, res)

	e, err := st.QueueEntry(ctx, qid)
	require.NoError(t, err)
	assert.True(t, e.Resolved)
	require.NotNil(t, e.ResolvedAt)

	hits := f.Hits()
	require.Len(t, hits, 1)
	assert.Equal(t, "POST", hits[0].Method)
	assert.Equal(t, "/records", hits[0].Path)
	var sent models.VaccinationRecord
	require.NoError(t, json.Unmarshal([]byte(hits[0].Body), &sent))
	assert.Equal(t, "v1", sent.ID)

	o, ok, err := st.LastReplayOutcome(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, o.Resolved)
}

func TestReplay_IsolatesFailures(t *testing.T) {
	f := &fakeRemote{failIDs: map[string]bool{"v2": true}}
	c, st := setup(t, f, Config{})
	ctx := context.Background()

	enqueueRecord(t, st, models.ActionCreate, "v1")
	failing := enqueueRecord(t, st, models.ActionUpdate, "v2")
	enqueueRecord(t, st, models.ActionCreate, "v3")

	res, err := c.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Resolved: 2, Failed: 1}, res)

	pending, err := st.ListUnresolved(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, failing, pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].LastError, "500")

	hits := f.Hits()
	require.Len(t, hits, 3)
	assert.Equal(t, "PUT", hits[1].Method)

	// The next pass retries only the failed entry.
	delete(f.failIDs, "v2")
	res, err = c.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Resolved: 1}, res)
}

func TestReplay_DeleteSendsOnlyID(t *testing.T) {
	f := &fakeRemote{}
	c, st := setup(t, f, Config{})

	enqueueRecord(t, st, models.ActionDelete, "v9")

	_, err := c.Replay(context.Background())
	require.NoError(t, err)

	hits := f.Hits()
	require.Len(t, hits, 1)
	assert.Equal(t, "DELETE", hits[0].Method)
	assert.JSONEq(t, `{"id":"v9"}`, hits[0].Body)
}

func TestReplay_GenericModePostsEntries(t *testing.T) {
	f := &fakeRemote{}
	c, st := setup(t, f, Config{Mode: ModeGeneric})

	qid := enqueueRecord(t, st, models.ActionUpdate, "v1")

	res, err := c.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Resolved: 1}, res)

	hits := f.Hits()
	require.Len(t, hits, 1)
	assert.Equal(t, "/sync", hits[0].Path)
	var e models.QueueEntry
	require.NoError(t, json.Unmarshal([]byte(hits[0].Body), &e))
	assert.Equal(t, qid, e.ID)
	assert.Equal(t, models.ActionUpdate, e.Action)
}

func TestReplay_EmptyOutbox(t *testing.T) {
	f := &fakeRemote{}
	c, _ := setup(t, f, Config{})

	res, err := c.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, f.Hits())
}

func TestReplay_SnapshotFailure(t *testing.T) {
	f := &fakeRemote{}
	c, st := setup(t, f, Config{})
	require.NoError(t, st.Close())

	_, err := c.Replay(context.Background())
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestReplay_IgnoresCallerCancellation(t *testing.T) {
	f := &fakeRemote{}
	c, st := setup(t, f, Config{})
	enqueueRecord(t, st, models.ActionCreate, "v1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Resolved: 1}, res)
}

func TestReplay_ConcurrentCallsShareOnePass(t *testing.T) {
	f := &fakeRemote{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	c, st := setup(t, f, Config{})
	enqueueRecord(t, st, models.ActionCreate, "v1")

	results := make([]Result, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = c.Replay(context.Background())
	}()
	<-f.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = c.Replay(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(f.block)
	wg.Wait()

	assert.Len(t, f.Hits(), 1)
	assert.Equal(t, Result{Resolved: 1}, results[0])
	assert.Equal(t, results[0], results[1])
}

func TestReplay_PartitionedKeepsPerRecordOrder(t *testing.T) {
	f := &fakeRemote{}
	c, st := setup(t, f, Config{Workers: 4})

	var want []string
	for round := 0; round < 3; round++ {
		for _, id := range []string{"a", "b", "c", "d"} {
			action := models.ActionUpdate
			if round == 0 {
				action = models.ActionCreate
			}
			enqueueRecord(t, st, action, id)
			if id == "a" {
				want = append(want, string(action))
			}
		}
	}

	res, err := c.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Resolved: 12}, res)

	perRecord := map[string][]string{}
	for _, h := range f.Hits() {
		var r models.VaccinationRecord
		require.NoError(t, json.Unmarshal([]byte(h.Body), &r))
		verb := string(models.ActionCreate)
		if h.Method == http.MethodPut {
			verb = string(models.ActionUpdate)
		}
		perRecord[r.ID] = append(perRecord[r.ID], verb)
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, want, perRecord[id], id)
	}
}
