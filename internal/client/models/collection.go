package models

import "fmt"

// Collection names a persisted collection.
type Collection string

const (
	CollectionVaccinations   Collection = "vaccination-records"
	CollectionMedicalHistory Collection = "medical-history"
	CollectionSharedRecords  Collection = "shared-records"
	CollectionSyncQueue      Collection = "sync-queue"
	CollectionSessions       Collection = "sessions"
)

// Secondary index names accepted by QueryByIndex.
const (
	IndexOwnerID   = "ownerId"
	IndexShareCode = "shareCode"
)

// RecordCollections are the collections holding domain records.
var RecordCollections = []Collection{
	CollectionVaccinations,
	CollectionMedicalHistory,
	CollectionSharedRecords,
}

// AllCollections lists every collection in the persisted layout.
var AllCollections = []Collection{
	CollectionVaccinations,
	CollectionMedicalHistory,
	CollectionSharedRecords,
	CollectionSyncQueue,
	CollectionSessions,
}

// IsRecordCollection reports whether c stores domain records.
func (c Collection) IsRecordCollection() bool {
	for _, rc := range RecordCollections {
		if c == rc {
			return true
		}
	}
	return false
}

// Valid reports whether c is part of the persisted layout.
func (c Collection) Valid() bool {
	for _, ac := range AllCollections {
		if c == ac {
			return true
		}
	}
	return false
}

// HasIndex reports whether the collection maintains the named secondary index.
func (c Collection) HasIndex(index string) bool {
	switch index {
	case IndexOwnerID:
		return c.IsRecordCollection()
	case IndexShareCode:
		return c == CollectionSharedRecords
	}
	return false
}

// ParseCollection validates s as a collection name.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", s)
	}
	return c, nil
}

// Action is the kind of mutation carried by a QueueEntry.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}
