package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/common"
)

func TestSubmit_SendsBodyAndBearer(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotAuth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second, func(context.Context) (string, error) { return "tok", nil })
	err := c.Submit(context.Background(), models.Route{Method: "PUT", Path: "/records"}, json.RawMessage(`{"id":"v1"}`))
	require.NoError(t, err)

	assert.Equal(t, "PUT", gotMethod)
	assert.Equal(t, "/records", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.JSONEq(t, `{"id":"v1"}`, gotBody)
}

func TestSubmit_NoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, time.Second, nil).Health(context.Background()))
}

func TestSubmit_NonSuccessIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Missing required fields"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second, nil).Submit(context.Background(), models.Route{Method: "POST", Path: "/records"}, json.RawMessage(`{}`))
	require.ErrorIs(t, err, common.ErrTransport)
	assert.Contains(t, err.Error(), "Missing required fields")
}

func TestSubmit_UnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, time.Second, nil).Health(context.Background())
	require.ErrorIs(t, err, common.ErrTransport)
}

func TestSubmit_TokenErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	c := New("http://127.0.0.1:1", time.Second, func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, c.Health(context.Background()), boom)
}

func TestSync_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e models.QueueEntry
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		_ = json.NewEncoder(w).Encode(SyncResponse{Success: true, Synced: true, ID: e.ID, Timestamp: 42})
	}))
	defer srv.Close()

	resp, err := New(srv.URL, time.Second, nil).Sync(context.Background(), &models.QueueEntry{
		ID: "sync_1", Action: models.ActionCreate, Collection: models.CollectionVaccinations, Payload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, &SyncResponse{Success: true, Synced: true, ID: "sync_1", Timestamp: 42}, resp)
}

func TestListRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "p 1", r.URL.Query().Get("ownerId"))
		_, _ = w.Write([]byte(`{"records":[{"id":"v1","patientMosipId":"p 1"}]}`))
	}))
	defer srv.Close()

	recs, err := New(srv.URL, time.Second, nil).ListRecords(context.Background(), "p 1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "v1", recs[0].ID)
}
