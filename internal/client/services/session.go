package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrace/vaxsync/internal/client/models"
	"github.com/vaxtrace/vaxsync/internal/client/store"
	"github.com/vaxtrace/vaxsync/internal/common"
	"github.com/vaxtrace/vaxsync/internal/logging"
)

// LogoutCollections are wiped by Logout.
var LogoutCollections = []models.Collection{
	models.CollectionVaccinations,
	models.CollectionMedicalHistory,
	models.CollectionSharedRecords,
	models.CollectionSyncQueue,
	models.CollectionSessions,
}

// SessionService manages the device session on behalf of the identity
// workflow.
type SessionService interface {
	// Save replaces the stored session.
	Save(ctx context.Context, s *models.Session) error
	// Current returns the stored session or common.ErrNotFound.
	Current(ctx context.Context) (*models.Session, error)
	// Token returns the bearer token of the current session, or "" when
	// there is none.
	Token(ctx context.Context) (string, error)
	// Logout wipes every record collection, the outbox and the session in
	// one transaction.
	Logout(ctx context.Context) error
}

type sessionService struct {
	store *store.Store
	log   logging.Logger
	now   func() time.Time
}

func NewSessionService(st *store.Store, log logging.Logger) SessionService {
	return &sessionService{store: st, log: log.With("module", "session"), now: time.Now}
}

func (s *sessionService) Save(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = "session_" + uuid.NewString()
	}
	if sess.LastVerifiedAt.IsZero() {
		sess.LastVerifiedAt = s.now()
	}
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.log.Info(ctx, "session saved", "owner", sess.OwnerID, "role", sess.Role)
	return nil
}

func (s *sessionService) Current(ctx context.Context) (*models.Session, error) {
	return s.store.CurrentSession(ctx)
}

func (s *sessionService) Token(ctx context.Context) (string, error) {
	sess, err := s.store.CurrentSession(ctx)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

func (s *sessionService) Logout(ctx context.Context) error {
	if err := s.store.ClearAll(ctx, LogoutCollections...); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info(ctx, "logged out, local data cleared")
	return nil
}
