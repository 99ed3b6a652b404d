package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDocument_SnapshotsRecord(t *testing.T) {
	rec := &VaccinationRecord{ID: "v1", PatientMosipID: "p1", VaccineName: "Polio"}
	doc, err := NewDocument(rec)
	require.NoError(t, err)
	require.Equal(t, CollectionVaccinations, doc.Collection)
	require.Equal(t, "v1", doc.ID)
	require.Equal(t, "p1", doc.OwnerID)
	require.Empty(t, doc.ShareCode)

	rec.VaccineName = "Measles"

	var got VaccinationRecord
	require.NoError(t, doc.Decode(&got))
	require.Equal(t, "Polio", got.VaccineName, "document must not follow later edits")
}

func TestNewDocument_SharedRecordCarriesShareCode(t *testing.T) {
	doc, err := NewDocument(&SharedRecord{ID: "s1", ShareCode: "VX-1", PatientMosipID: "p1"})
	require.NoError(t, err)
	require.Equal(t, "VX-1", doc.ShareCode)
	require.Equal(t, CollectionSharedRecords, doc.Collection)
}

func TestCollection_Indexes(t *testing.T) {
	require.True(t, CollectionVaccinations.HasIndex(IndexOwnerID))
	require.False(t, CollectionVaccinations.HasIndex(IndexShareCode))
	require.True(t, CollectionSharedRecords.HasIndex(IndexShareCode))
	require.False(t, CollectionSyncQueue.HasIndex(IndexOwnerID))
	require.False(t, CollectionSessions.IsRecordCollection())

	_, err := ParseCollection("vaccinations")
	require.Error(t, err)
	c, err := ParseCollection("medical-history")
	require.NoError(t, err)
	require.Equal(t, CollectionMedicalHistory, c)
}

func TestEmptyMedicalHistory(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	h := EmptyMedicalHistory("p9", now)
	require.Equal(t, "med_1700000000000", h.ID)
	require.Equal(t, "p9", h.PatientMosipID)
	require.NotNil(t, h.Allergies)
	require.Empty(t, h.Allergies)
	require.Equal(t, int64(1700000000000), h.LastUpdated)
}

func TestSharedRecord_Expired(t *testing.T) {
	now := time.UnixMilli(1000)
	require.False(t, (&SharedRecord{ExpiresAt: 0}).Expired(now))
	require.False(t, (&SharedRecord{ExpiresAt: 2000}).Expired(now))
	require.True(t, (&SharedRecord{ExpiresAt: 1000}).Expired(now))
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		c      Collection
		a      Action
		want   Route
		wantOK bool
	}{
		{CollectionVaccinations, ActionCreate, Route{"POST", "/records"}, true},
		{CollectionVaccinations, ActionUpdate, Route{"PUT", "/records"}, true},
		{CollectionVaccinations, ActionDelete, Route{"DELETE", "/records"}, true},
		{CollectionMedicalHistory, ActionUpdate, Route{"PUT", "/medical-history"}, true},
		{CollectionMedicalHistory, ActionDelete, Route{}, false},
		{CollectionSharedRecords, ActionCreate, Route{"POST", "/shared-records"}, true},
		{CollectionSharedRecords, ActionUpdate, Route{}, false},
		{CollectionSessions, ActionCreate, Route{}, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.c)+"/"+string(tt.a), func(t *testing.T) {
			got, ok := RouteFor(tt.c, tt.a)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
