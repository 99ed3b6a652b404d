package models

import (
	"encoding/json"
	"time"
)

// QueueEntry is one pending (or resolved) mutation in the outbox.
//
// Seq is the explicit replay order; CreatedAt never decreases along Seq.
// Resolved only moves from false to true.
type QueueEntry struct {
	Seq        int64           `json:"seq"`
	ID         string          `json:"id"`
	Action     Action          `json:"action"`
	Collection Collection      `json:"collection"`
	RecordID   string          `json:"recordId"`
	Payload    json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"timestamp"`
	Resolved   bool            `json:"synced"`
	ResolvedAt *time.Time      `json:"syncedAt,omitempty"`
	LastError  string          `json:"error,omitempty"`
	Attempts   int             `json:"attempts"`
}

// QueueCounts is the pending-vs-resolved summary shown by the UI.
type QueueCounts struct {
	Pending  int `json:"pending"`
	Resolved int `json:"resolved"`
}

// ReplayOutcome is the summary of the last replay pass, kept in metadata.
type ReplayOutcome struct {
	At       time.Time `json:"at"`
	Resolved int       `json:"resolved"`
	Failed   int       `json:"failed"`
	Error    string    `json:"error,omitempty"`
}
