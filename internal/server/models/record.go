// Package models holds the remote authority's storage types.
package models

import (
	"encoding/json"
	"time"
)

// Collection names accepted by the remote authority. They match the
// collections of the device store.
const (
	CollectionVaccinations   = "vaccination-records"
	CollectionMedicalHistory = "medical-history"
	CollectionSharedRecords  = "shared-records"
)

// Mutation actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Record is one stored document. Deleted records are kept as tombstones.
type Record struct {
	Collection string
	ID         string
	OwnerID    string
	Body       json.RawMessage
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// Event is one accepted mutation in the audit journal. Events posted to
// /sync carry the device's queue entry id, which makes redelivery a no-op.
type Event struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	RecordID   string          `json:"recordId"`
	Payload    json.RawMessage `json:"data"`
	Subject    string          `json:"subject,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
