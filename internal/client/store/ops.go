package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/repositories/metadata"
	"github.com/vaxtrace/vaxsync/internal/common"
)

// Put inserts or overwrites doc by (collection, id).
func (s *Store) Put(ctx context.Context, doc *models.Document) error {
	return s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		return r.Records.Put(ctx, doc)
	})
}

// Get returns the document or common.ErrNotFound.
func (s *Store) Get(ctx context.Context, collection models.Collection, id string) (*models.Document, error) {
	var doc *models.Document
	err := s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		doc, err = r.Records.Get(ctx, collection, id)
		return err
	})
	return doc, err
}

// QueryByIndex returns the documents whose index key equals value.
func (s *Store) QueryByIndex(ctx context.Context, collection models.Collection, index, value string) ([]*models.Document, error) {
	var docs []*models.Document
	err := s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		docs, err = r.Records.QueryByIndex(ctx, collection, index, value)
		return err
	})
	return docs, err
}

// Delete removes a document; a missing id is not an error.
func (s *Store) Delete(ctx context.Context, collection models.Collection, id string) error {
	return s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		return r.Records.Delete(ctx, collection, id)
	})
}

// ClearAll wipes the named collections in one transaction: all of them are
// cleared or none is.
func (s *Store) ClearAll(ctx context.Context, collections ...models.Collection) error {
	for _, c := range collections {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown collection %q", common.ErrConstraintViolation, c)
		}
	}

	return s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		for _, c := range collections {
			var err error
			switch c {
			case models.CollectionSyncQueue:
				err = r.Queue.Clear(ctx)
			case models.CollectionSessions:
				err = r.Sessions.Clear(ctx)
			default:
				err = r.Records.Clear(ctx, c)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Enqueue appends a mutation to the outbox in its own transaction.
func (s *Store) Enqueue(ctx context.Context, action models.Action, collection models.Collection, recordID string, payload json.RawMessage) (string, error) {
	var id string
	err := s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		id, err = r.Queue.Enqueue(ctx, action, collection, recordID, payload)
		return err
	})
	return id, err
}

// ListUnresolved returns the pending outbox entries in replay order.
func (s *Store) ListUnresolved(ctx context.Context) ([]*models.QueueEntry, error) {
	var list []*models.QueueEntry
	err := s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		list, err = r.Queue.ListUnresolved(ctx)
		return err
	})
	return list, err
}

func (s *Store) QueueEntry(ctx context.Context, id string) (*models.QueueEntry, error) {
	var e *models.QueueEntry
	err := s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		e, err = r.Queue.Get(ctx, id)
		return err
	})
	return e, err
}

func (s *Store) MarkResolved(ctx context.Context, id string, at time.Time) error {
	return s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		return r.Queue.MarkResolved(ctx, id, at)
	})
}

func (s *Store) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		return r.Queue.MarkFailed(ctx, id, reason)
	})
}

// Counts returns the pending-vs-resolved outbox summary.
func (s *Store) Counts(ctx context.Context) (models.QueueCounts, error) {
	var c models.QueueCounts
	err := s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		c, err = r.Queue.Counts(ctx)
		return err
	})
	return c, err
}

// SaveSession replaces the stored session.
func (s *Store) SaveSession(ctx context.Context, sess *models.Session) error {
	return s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		return r.Sessions.Save(ctx, sess)
	})
}

// CurrentSession returns the stored session or common.ErrNotFound.
func (s *Store) CurrentSession(ctx context.Context) (*models.Session, error) {
	var sess *models.Session
	err := s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		sess, err = r.Sessions.Current(ctx)
		return err
	})
	return sess, err
}

// SaveReplayOutcome records the summary of a replay pass.
func (s *Store) SaveReplayOutcome(ctx context.Context, o models.ReplayOutcome) error {
	return s.Tx(ctx, func(ctx context.Context, r *Repositories) error {
		return metadata.SetJSON(ctx, r.Metadata, metadata.KeyLastReplay, o)
	})
}

// LastReplayOutcome returns the summary of the last pass; ok is false when
// no pass has run yet.
func (s *Store) LastReplayOutcome(ctx context.Context) (o models.ReplayOutcome, ok bool, err error) {
	err = s.Read(ctx, func(ctx context.Context, r *Repositories) error {
		var err error
		ok, err = metadata.GetJSON(ctx, r.Metadata, metadata.KeyLastReplay, &o)
		return err
	})
	return o, ok, err
}
