// Package service applies mutations to the remote authority's store.
//
// Every accepted mutation is journaled and applied in one unit of work, then
// handed to the archiver. Mutations that carry the device's queue entry id
// are applied at most once: a redelivered entry is acknowledged without
// being applied again.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/logging"
	"github.com/vaxtrace/vaxsync/internal/server/archive"
	"github.com/vaxtrace/vaxsync/internal/server/models"
	"github.com/vaxtrace/vaxsync/internal/server/repositories/repomanager"
)

var collections = map[string]bool{
	models.CollectionVaccinations:   true,
	models.CollectionMedicalHistory: true,
	models.CollectionSharedRecords:  true,
}

// Mutation is one change submitted by a device.
type Mutation struct {
	// EventID is the device's queue entry id, if known.
	EventID    string
	Collection string
	Action     string
	Body       json.RawMessage
	// Subject is the authenticated caller, "" when auth is off.
	Subject string
}

// Result describes an applied mutation.
type Result struct {
	EventID  string
	RecordID string
	At       time.Time
	// Duplicate is set when EventID was already journaled.
	Duplicate bool
	// Changed is false when the store was left as it was, e.g. an upsert of
	// a deleted record or a repeated delete.
	Changed bool
}

type Service struct {
	repos   repomanager.RepositoryManager
	archive archive.Archiver
	log     logging.Logger
	now     func() time.Time
}

func New(repos repomanager.RepositoryManager, arch archive.Archiver, log logging.Logger) *Service {
	if arch == nil {
		arch = archive.Nop{}
	}
	return &Service{repos: repos, archive: arch, log: log.With("module", "service"), now: time.Now}
}

// fields are the parts of a record body the remote authority looks at.
type fields struct {
	ID               string `json:"id"`
	OwnerID          string `json:"patientMosipId"`
	VaccineName      string `json:"vaccineName"`
	DateAdministered string `json:"dateAdministered"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrConstraintViolation, fmt.Sprintf(format, args...))
}

// validate checks m without touching the store and returns the decoded
// record fields.
func validate(m Mutation) (fields, error) {
	var f fields
	if !collections[m.Collection] {
		return f, invalid("unknown collection %q", m.Collection)
	}
	switch m.Action {
	case models.ActionCreate, models.ActionUpdate, models.ActionDelete:
	default:
		return f, invalid("unknown action %q", m.Action)
	}

	body := bytes.TrimSpace(m.Body)
	if len(body) == 0 || body[0] != '{' {
		return f, invalid("payload must be a JSON object")
	}
	if err := json.Unmarshal(body, &f); err != nil {
		return f, invalid("payload: %v", err)
	}
	if f.ID == "" {
		return f, invalid("missing record id")
	}
	if m.Action == models.ActionDelete {
		return f, nil
	}
	if f.OwnerID == "" {
		return f, invalid("missing patientMosipId")
	}
	if m.Collection == models.CollectionVaccinations && m.Action == models.ActionCreate &&
		(f.VaccineName == "" || f.DateAdministered == "") {
		return f, invalid("Missing required fields")
	}
	return f, nil
}

// Apply validates m, journals it and applies it. Validation failures wrap
// common.ErrConstraintViolation.
func (s *Service) Apply(ctx context.Context, m Mutation) (*Result, error) {
	f, err := validate(m)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ev := &models.Event{
		ID:         m.EventID,
		Collection: m.Collection,
		Action:     m.Action,
		RecordID:   f.ID,
		Payload:    m.Body,
		Subject:    m.Subject,
		ReceivedAt: now,
	}
	if ev.ID == "" {
		ev.ID = "evt_" + uuid.NewString()
	}
	res := &Result{EventID: ev.ID, RecordID: f.ID, At: now}

	err = s.repos.Tx(ctx, func(ctx context.Context, r *repomanager.Repositories) error {
		fresh, err := r.SyncLog.Append(ctx, ev)
		if err != nil {
			return err
		}
		if !fresh {
			res.Duplicate = true
			return nil
		}

		if m.Action == models.ActionDelete {
			res.Changed, err = r.Records.SoftDelete(ctx, m.Collection, f.ID, now)
			return err
		}
		res.Changed, err = r.Records.Upsert(ctx, &models.Record{
			Collection: m.Collection,
			ID:         f.ID,
			OwnerID:    f.OwnerID,
			Body:       m.Body,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("apply %s %s/%s: %w", m.Action, m.Collection, f.ID, err)
	}

	log := s.log.With("event", ev.ID, "collection", m.Collection, "action", m.Action, "record", f.ID)
	if res.Duplicate {
		log.Info(ctx, "duplicate mutation acknowledged")
		return res, nil
	}
	log.Info(ctx, "mutation applied", "changed", res.Changed)

	if err := s.archive.Archive(ctx, ev); err != nil {
		log.Warn(ctx, "archive failed", "error", err)
	}
	return res, nil
}

// List returns the bodies of ownerID's live records in collection.
func (s *Service) List(ctx context.Context, collection, ownerID string) ([]json.RawMessage, error) {
	if !collections[collection] {
		return nil, invalid("unknown collection %q", collection)
	}
	if ownerID == "" {
		return nil, invalid("missing owner id")
	}

	out := []json.RawMessage{}
	err := s.repos.Read(ctx, func(ctx context.Context, r *repomanager.Repositories) error {
		recs, err := r.Records.ListByOwner(ctx, collection, ownerID)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			out = append(out, rec.Body)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s for %s: %w", collection, ownerID, err)
	}
	return out, nil
}

// Journaled returns the number of accepted mutations.
func (s *Service) Journaled(ctx context.Context) (int64, error) {
	var n int64
	err := s.repos.Read(ctx, func(ctx context.Context, r *repomanager.Repositories) (err error) {
		n, err = r.SyncLog.Count(ctx)
		return err
	})
	return n, err
}
