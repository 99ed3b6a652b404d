package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/store"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/logging"
	"github.com/vaxtrace/vaxsync/internal/shared"
)

// RecordService defines the record operations of the foreground workflows.
// Mutations return the id of the queued outbox entry.
type RecordService interface {
	AddVaccination(ctx context.Context, rec *models.VaccinationRecord) (string, error)
	UpdateVaccination(ctx context.Context, rec *models.VaccinationRecord) (string, error)
	DeleteVaccination(ctx context.Context, id string) (string, error)
	GetVaccination(ctx context.Context, id string) (*models.VaccinationRecord, error)
	ListVaccinations(ctx context.Context, patientID string) ([]*models.VaccinationRecord, error)

	// MedicalHistory returns the patient's history, or an empty one when
	// nothing is stored.
	MedicalHistory(ctx context.Context, patientID string) (*models.MedicalHistory, error)
	SaveMedicalHistory(ctx context.Context, h *models.MedicalHistory) (string, error)

	// ShareRecords snapshots the patient's records under a new share code
	// valid for ttl.
	ShareRecords(ctx context.Context, patientID string, ttl time.Duration) (*models.SharedRecord, string, error)
	// SharedByCode returns common.ErrNotFound for unknown or expired codes.
	SharedByCode(ctx context.Context, code string) (*models.SharedRecord, error)
	RevokeShare(ctx context.Context, id string) (string, error)
}

type recordService struct {
	store  *store.Store
	notify Notifier
	log    logging.Logger
	now    func() time.Time
}

// NewRecordService builds a RecordService. notify may be nil.
func NewRecordService(st *store.Store, notify Notifier, log logging.Logger) RecordService {
	return &recordService{store: st, notify: notify, log: log.With("module", "records"), now: time.Now}
}

// mutate applies the local change and enqueues it in one transaction.
func (s *recordService) mutate(ctx context.Context, action models.Action, rec models.Record) (string, error) {
	doc, err := models.NewDocument(rec)
	if err != nil {
		return "", err
	}

	var qid string
	err = s.store.Tx(ctx, func(ctx context.Context, r *store.Repositories) error {
		if action == models.ActionDelete {
			if err := r.Records.Delete(ctx, doc.Collection, doc.ID); err != nil {
				return err
			}
		} else if err := r.Records.Put(ctx, doc); err != nil {
			return err
		}

		var err error
		qid, err = r.Queue.Enqueue(ctx, action, doc.Collection, doc.ID, doc.Body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%s %s/%s: %w", action, doc.Collection, doc.ID, err)
	}

	s.log.Info(ctx, "mutation queued", "action", action, "collection", doc.Collection, "record", doc.ID, "entry", qid)
	notifySync(ctx, s.notify, s.log)
	return qid, nil
}

func (s *recordService) AddVaccination(ctx context.Context, rec *models.VaccinationRecord) (string, error) {
	if rec.PatientMosipID == "" || rec.VaccineName == "" || rec.DateAdministered == "" {
		return "", fmt.Errorf("%w: patient, vaccine name and date administered are required", common.ErrConstraintViolation)
	}
	if rec.ID == "" {
		rec.ID = "vax_" + uuid.NewString()
	}
	now := s.now().UnixMilli()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return s.mutate(ctx, models.ActionCreate, rec)
}

func (s *recordService) UpdateVaccination(ctx context.Context, rec *models.VaccinationRecord) (string, error) {
	prev, err := s.GetVaccination(ctx, rec.ID)
	if err != nil {
		return "", err
	}
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = s.now().UnixMilli()
	return s.mutate(ctx, models.ActionUpdate, rec)
}

func (s *recordService) DeleteVaccination(ctx context.Context, id string) (string, error) {
	prev, err := s.GetVaccination(ctx, id)
	if err != nil {
		return "", err
	}
	return s.mutate(ctx, models.ActionDelete, prev)
}

func (s *recordService) GetVaccination(ctx context.Context, id string) (*models.VaccinationRecord, error) {
	doc, err := s.store.Get(ctx, models.CollectionVaccinations, id)
	if err != nil {
		return nil, err
	}
	var rec models.VaccinationRecord
	if err := doc.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *recordService) ListVaccinations(ctx context.Context, patientID string) ([]*models.VaccinationRecord, error) {
	docs, err := s.store.QueryByIndex(ctx, models.CollectionVaccinations, models.IndexOwnerID, patientID)
	if err != nil {
		return nil, err
	}

	result := make([]*models.VaccinationRecord, 0, len(docs))
	for _, d := range docs {
		var rec models.VaccinationRecord
		if err := d.Decode(&rec); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DateAdministered < result[j].DateAdministered
	})
	return result, nil
}

func (s *recordService) MedicalHistory(ctx context.Context, patientID string) (*models.MedicalHistory, error) {
	docs, err := s.store.QueryByIndex(ctx, models.CollectionMedicalHistory, models.IndexOwnerID, patientID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return models.EmptyMedicalHistory(patientID, s.now()), nil
	}

	var latest *models.MedicalHistory
	for _, d := range docs {
		var h models.MedicalHistory
		if err := d.Decode(&h); err != nil {
			return nil, err
		}
		if latest == nil || h.LastUpdated > latest.LastUpdated {
			latest = &h
		}
	}
	return latest, nil
}

func (s *recordService) SaveMedicalHistory(ctx context.Context, h *models.MedicalHistory) (string, error) {
	action := models.ActionUpdate
	if _, err := s.store.Get(ctx, models.CollectionMedicalHistory, h.ID); errors.Is(err, common.ErrNotFound) {
		action = models.ActionCreate
	} else if err != nil {
		return "", err
	}

	h.LastUpdated = s.now().UnixMilli()
	return s.mutate(ctx, action, h)
}

func (s *recordService) ShareRecords(ctx context.Context, patientID string, ttl time.Duration) (*models.SharedRecord, string, error) {
	if ttl <= 0 {
		return nil, "", fmt.Errorf("%w: share ttl must be positive", common.ErrConstraintViolation)
	}

	vaccinations, err := s.ListVaccinations(ctx, patientID)
	if err != nil {
		return nil, "", err
	}
	history, err := s.MedicalHistory(ctx, patientID)
	if err != nil {
		return nil, "", err
	}
	code, err := shared.NewShareCode()
	if err != nil {
		return nil, "", fmt.Errorf("share code: %w", err)
	}

	now := s.now()
	rec := &models.SharedRecord{
		ID:             "share_" + uuid.NewString(),
		ShareCode:      code,
		PatientMosipID: patientID,
		Vaccinations:   make([]models.VaccinationRecord, 0, len(vaccinations)),
		MedicalHistory: history,
		ExpiresAt:      now.Add(ttl).UnixMilli(),
		ViewedBy:       []models.RecordView{},
		CreatedAt:      now.UnixMilli(),
	}
	for _, v := range vaccinations {
		rec.Vaccinations = append(rec.Vaccinations, *v)
	}

	qid, err := s.mutate(ctx, models.ActionCreate, rec)
	if err != nil {
		return nil, "", err
	}
	return rec, qid, nil
}

func (s *recordService) SharedByCode(ctx context.Context, code string) (*models.SharedRecord, error) {
	docs, err := s.store.QueryByIndex(ctx, models.CollectionSharedRecords, models.IndexShareCode, code)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("share %s: %w", code, common.ErrNotFound)
	}

	var rec models.SharedRecord
	if err := docs[0].Decode(&rec); err != nil {
		return nil, err
	}
	if rec.Expired(s.now()) {
		return nil, fmt.Errorf("share %s expired: %w", code, common.ErrNotFound)
	}
	return &rec, nil
}

func (s *recordService) RevokeShare(ctx context.Context, id string) (string, error) {
	doc, err := s.store.Get(ctx, models.CollectionSharedRecords, id)
	if err != nil {
		return "", err
	}
	var rec models.SharedRecord
	if err := doc.Decode(&rec); err != nil {
		return "", err
	}
	return s.mutate(ctx, models.ActionDelete, &rec)
}
