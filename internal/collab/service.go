// Package collab implements the collaboration lifecycle: open requests, their
// offer sets, and the transition of an accepted offer into an active
// collaboration that runs until its deadline.
package collab

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chronus-app/chronus/internal/ledger"
	"github.com/chronus-app/chronus/internal/models"
	"github.com/chronus-app/chronus/internal/notify"
	"github.com/chronus-app/chronus/internal/store"
)

// MinRequestedTime is the smallest amount of time a request may ask for.
const MinRequestedTime = models.Hours(0.25)

// MaxTitleLength is the longest title a request may carry, matching the
// column width in the database.
const MaxTitleLength = 100

// Service drives collaboration requests and collaborations through their
// lifecycle. Compound mutations run inside a single store transaction so a
// budget change and the state change it belongs to are never observable
// apart.
type Service struct {
	store    store.Store
	ledger   *ledger.Ledger
	notifier notify.Notifier
	logger   *slog.Logger

	// now is the clock used for deadline comparisons.
	now func() time.Time
}

// NewService creates a new collaboration service.
func NewService(st store.Store, lg *ledger.Ledger, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Service{
		store:    st,
		ledger:   lg,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRequestInput carries the caller-supplied fields of a new request.
type CreateRequestInput struct {
	Title         string
	Description   string
	RequestedTime models.Hours
	Deadline      time.Time
	Competences   []string
}

// CreateRequest publishes a new collaboration request, debiting the
// applicant's budget by the requested time in the same transaction.
func (s *Service) CreateRequest(ctx context.Context, applicantID string, in CreateRequestInput) (*models.CollaborationRequest, error) {
	if in.Title == "" {
		return nil, ErrTitleRequired
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return nil, ErrTitleTooLong
	}
	if err := ledger.ValidateAmount(in.RequestedTime); err != nil {
		return nil, err
	}
	if in.RequestedTime < MinRequestedTime {
		return nil, ledger.ErrInvalidDuration
	}

	today := s.now()
	req := &models.CollaborationRequest{
		ID:              uuid.New().String(),
		Title:           in.Title,
		Description:     in.Description,
		RequestedTime:   in.RequestedTime,
		Deadline:        in.Deadline,
		PublicationDate: today.UTC(),
		ApplicantID:     applicantID,
		Competences:     in.Competences,
	}
	if req.Expired(today) {
		return nil, ErrInvalidDeadline
	}

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if err := s.ledger.Debit(ctx, tx, applicantID, in.RequestedTime); err != nil {
			return err
		}
		return tx.Requests().Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collaboration request created",
		"request_id", req.ID,
		"applicant_id", applicantID,
		"requested_time", req.RequestedTime,
	)
	return req, nil
}

// AddOffer registers a student's offer on a request. Offering on your own
// request is forbidden, offering twice fails explicitly, and expired
// requests accept no offers.
func (s *Service) AddOffer(ctx context.Context, requestID, studentID string) error {
	req, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		return err
	}

	if req.ApplicantID == studentID {
		return ErrPermissionDenied
	}
	if req.Expired(s.now()) {
		return ErrExpired
	}
	if req.HasOfferer(studentID) {
		return ErrDuplicateOffer
	}

	if err := s.store.Requests().AddOfferer(ctx, requestID, studentID); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// Lost a race with a concurrent offer from the same student
			return ErrDuplicateOffer
		}
		return err
	}

	s.logger.Info("offer added", "request_id", requestID, "student_id", studentID)
	return nil
}

// RequestFilter narrows ListRequests. Both fields are authorization-scoped:
// they may only name the caller.
type RequestFilter struct {
	ApplicantID string
	OffererID   string
}

// ListRequests returns open (non-expired) requests visible to the caller.
// Filtering by applicant or offerer is permitted only for the caller's own
// id; anything else is a permission error, not an empty result.
func (s *Service) ListRequests(ctx context.Context, callerID string, filter RequestFilter) ([]*models.CollaborationRequest, error) {
	if filter.ApplicantID != "" && filter.ApplicantID != callerID {
		return nil, ErrPermissionDenied
	}
	if filter.OffererID != "" && filter.OffererID != callerID {
		return nil, ErrPermissionDenied
	}

	return s.store.Requests().List(ctx, store.RequestFilter{
		ApplicantID:  filter.ApplicantID,
		OffererID:    filter.OffererID,
		NotExpiredOn: s.now(),
	})
}

// GetRequest retrieves a single request. Expired requests are not served.
func (s *Service) GetRequest(ctx context.Context, requestID string) (*models.CollaborationRequest, error) {
	req, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Expired(s.now()) {
		return nil, ErrExpired
	}
	return req, nil
}

// Accept converts a request plus a chosen offerer into an active
// collaboration. The caller must be the applicant and the chosen student
// must have offered. The collaboration insert and the request delete commit
// together; if either fails, nothing changes. The acceptance notification is
// sent after commit, fire and forget.
func (s *Service) Accept(ctx context.Context, callerID, requestID, collaboratorID string) (*models.Collaboration, error) {
	req, err := s.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.ApplicantID != callerID {
		return nil, ErrPermissionDenied
	}
	if !req.HasOfferer(collaboratorID) {
		return nil, ErrPermissionDenied
	}

	collab := &models.Collaboration{
		ID:             uuid.New().String(),
		Title:          req.Title,
		Description:    req.Description,
		RequestedTime:  req.RequestedTime,
		Deadline:       req.Deadline,
		Status:         models.StatusInProgress,
		ApplicantID:    req.ApplicantID,
		CollaboratorID: collaboratorID,
		Competences:    req.Competences,
		CreatedAt:      s.now().UTC(),
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Collaborations().Create(ctx, collab); err != nil {
			return err
		}
		return tx.Requests().Delete(ctx, requestID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offer accepted",
		"collaboration_id", collab.ID,
		"request_id", requestID,
		"applicant_id", callerID,
		"collaborator_id", collaboratorID,
	)

	s.sendAcceptanceNotification(ctx, callerID, collaboratorID)

	return collab, nil
}

// sendAcceptanceNotification looks up both participants and notifies the
// collaborator. Failures are logged only.
func (s *Service) sendAcceptanceNotification(ctx context.Context, applicantID, collaboratorID string) {
	applicant, err := s.store.Students().Get(ctx, applicantID)
	if err != nil {
		s.logger.Warn("skipping acceptance notification", "error", err, "student_id", applicantID)
		return
	}
	collaborator, err := s.store.Students().Get(ctx, collaboratorID)
	if err != nil {
		s.logger.Warn("skipping acceptance notification", "error", err, "student_id", collaboratorID)
		return
	}

	if err := s.notifier.NotifyAcceptance(ctx, applicant, collaborator); err != nil {
		s.logger.Warn("acceptance notification failed", "error", err, "to", collaborator.Email)
	}
}

// GetCollaboration retrieves a collaboration for one of its participants.
func (s *Service) GetCollaboration(ctx context.Context, callerID, id string) (*models.Collaboration, error) {
	collab, err := s.store.Collaborations().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !collab.Participant(callerID) {
		return nil, ErrPermissionDenied
	}
	if collab.Expired(s.now()) {
		return nil, ErrExpired
	}
	return collab, nil
}

// ListCollaborations returns the caller's unexpired collaborations.
func (s *Service) ListCollaborations(ctx context.Context, callerID string) ([]*models.Collaboration, error) {
	return s.store.Collaborations().ListForStudent(ctx, callerID, s.now())
}

// ListOverdue returns collaborations whose deadline has passed. Used by the
// sweeper.
func (s *Service) ListOverdue(ctx context.Context) ([]*models.Collaboration, error) {
	return s.store.Collaborations().ListOverdue(ctx, s.now())
}

// Expire terminates an overdue collaboration, crediting the requested time
// back to the collaborator in the same transaction that removes the
// collaboration. It is invoked only by the sweeper. Expiring a collaboration
// that no longer exists returns store.ErrNotFound, which the sweeper treats
// as a no-op.
func (s *Service) Expire(ctx context.Context, id string) error {
	return s.store.WithTx(ctx, func(tx store.Store) error {
		collab, err := tx.Collaborations().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ledger.Credit(ctx, tx, collab.CollaboratorID, collab.RequestedTime); err != nil {
			return err
		}
		if err := tx.Collaborations().Delete(ctx, id); err != nil {
			return err
		}

		s.logger.Info("collaboration expired",
			"collaboration_id", id,
			"collaborator_id", collab.CollaboratorID,
			"refunded_hours", collab.RequestedTime,
		)
		return nil
	})
}
