// Package models defines the client-side data model: the managed
// collections, the domain records stored in them, the storage envelope
// (Document), the outbox entry (QueueEntry), the device session and the
// caching proxy's response snapshots.
package models
