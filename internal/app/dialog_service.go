package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"trivia-engine/internal/domain"
	"trivia-engine/internal/metrics"
)

// Default dialog TTLs per workflow kind.
const (
	DefaultApprovalTTL = 3 * time.Hour
	DefaultReviewTTL   = 24 * time.Hour
)

// DialogService owns the restart-durable approval and review
// conversations.
type DialogService struct {
	store       Store
	clock       func() time.Time
	log         *logrus.Entry
	metrics     *metrics.Metrics
	approvalTTL time.Duration
	reviewTTL   time.Duration
}

func NewDialogService(store Store, m *metrics.Metrics, log *logrus.Entry) *DialogService {
	return &DialogService{
		store:       store,
		clock:       time.Now,
		log:         log,
		metrics:     m,
		approvalTTL: DefaultApprovalTTL,
		reviewTTL:   DefaultReviewTTL,
	}
}

// WithTTLs overrides the per-kind default TTLs applied when Create is
// called with a zero ttl.
func (s *DialogService) WithTTLs(approval, review time.Duration) *DialogService {
	if approval > 0 {
		s.approvalTTL = approval
	}
	if review > 0 {
		s.reviewTTL = review
	}
	return s
}

// WithClock overrides the time source; test-only.
func (s *DialogService) WithClock(now func() time.Time) *DialogService {
	s.clock = now
	return s
}

// Create opens a dialog with the given TTL (zero picks the kind's
// default). A primary-key collision triggers one sequence repair and a
// single retry before the failure surfaces.
func (s *DialogService) Create(ctx context.Context, userID string, kind domain.DialogKind, step string, payload json.RawMessage, ttl time.Duration) (*domain.DialogSession, error) {
	if ttl <= 0 {
		if kind == domain.DialogReview {
			ttl = s.reviewTTL
		} else {
			ttl = s.approvalTTL
		}
	}

	now := s.clock()
	d := &domain.DialogSession{
		UserID:       userID,
		Kind:         kind,
		Step:         step,
		Payload:      payload,
		Status:       domain.DialogActive,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(ttl),
	}

	err := s.store.Dialogs().Insert(ctx, d)
	if errors.Is(err, domain.ErrSequenceConflict) {
		s.log.WithField("user", userID).Warn("dialog id sequence conflict, repairing")
		if repairErr := s.store.Dialogs().RepairSequence(ctx); repairErr != nil {
			return nil, fmt.Errorf("repair dialog sequence: %w", repairErr)
		}
		err = s.store.Dialogs().Insert(ctx, d)
	}
	if err != nil {
		return nil, fmt.Errorf("create dialog: %w", err)
	}
	return d, nil
}

// GetActive returns the user's open dialog of the given kind. A row whose
// TTL elapsed is flipped to expired on read and reported as not found.
func (s *DialogService) GetActive(ctx context.Context, userID string, kind domain.DialogKind) (*domain.DialogSession, error) {
	d, err := s.store.Dialogs().GetActive(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrDialogNotFound
	}
	if d.Expired(s.clock()) {
		d.Status = domain.DialogExpired
		if err := s.store.Dialogs().Update(ctx, d); err != nil {
			return nil, fmt.Errorf("expire dialog on read: %w", err)
		}
		s.metrics.DialogsExpired.Inc()
		return nil, domain.ErrDialogNotFound
	}
	return d, nil
}

// Update advances the workflow cursor and/or payload and refreshes
// last-activity.
func (s *DialogService) Update(ctx context.Context, id int64, step *string, payload json.RawMessage) error {
	d, err := s.store.Dialogs().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !d.Status.Open() || d.Expired(s.clock()) {
		return domain.ErrDialogNotFound
	}
	if step != nil {
		d.Step = *step
	}
	if payload != nil {
		d.Payload = payload
	}
	d.LastActivity = s.clock()
	return s.store.Dialogs().Update(ctx, d)
}

// Complete closes the dialog with its final status.
func (s *DialogService) Complete(ctx context.Context, id int64, final domain.DialogStatus) error {
	if !final.Valid() || final.Open() {
		return fmt.Errorf("invalid final dialog status %q", final)
	}
	d, err := s.store.Dialogs().GetByID(ctx, id)
	if err != nil {
		return err
	}
	d.Status = final
	d.LastActivity = s.clock()
	return s.store.Dialogs().Update(ctx, d)
}

// ListActive returns every open, unexpired dialog; the host process calls
// this at startup to resume conversations after a restart.
func (s *DialogService) ListActive(ctx context.Context) ([]*domain.DialogSession, error) {
	open, err := s.store.Dialogs().ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	alive := open[:0]
	for _, d := range open {
		if !d.Expired(now) {
			alive = append(alive, d)
		}
	}
	return alive, nil
}

// CleanupExpired flips timed-out dialogs to expired. Rows are never
// deleted; they stay for audit.
func (s *DialogService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.Dialogs().ExpireOlderThan(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("expire dialogs: %w", err)
	}
	if n > 0 {
		s.metrics.DialogsExpired.Add(float64(n))
		s.log.WithField("count", n).Info("expired dialogs swept")
	}
	return n, nil
}
