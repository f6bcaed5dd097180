package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"trivia-engine/internal/domain"
	"trivia-engine/internal/dynamic"
	"trivia-engine/internal/match"
	"trivia-engine/internal/metrics"
)

// hangingSessionAge is how long an active session may run before the
// sweep reclaims it.
const hangingSessionAge = 2 * time.Hour

// SessionService opens sessions, accepts answer submissions, and reclaims
// hanging sessions after crashes.
type SessionService struct {
	store   Store
	answers dynamic.AnswerSource
	clock   func() time.Time
	log     *logrus.Entry
	metrics *metrics.Metrics
}

func NewSessionService(store Store, answers dynamic.AnswerSource, m *metrics.Metrics, log *logrus.Entry) *SessionService {
	return &SessionService{
		store:   store,
		answers: answers,
		clock:   time.Now,
		log:     log,
		metrics: m,
	}
}

// WithClock overrides the time source; test-only.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.clock = now
	return s
}

// Start opens a session for the question. The question is marked answered
// in the same transaction as the session insert: a crash right after
// commit leaves the question consumed rather than risking a duplicate
// session for it.
func (s *SessionService) Start(ctx context.Context, questionID int64, kind string) (*domain.Session, error) {
	now := s.clock()
	var session *domain.Session

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		q, err := tx.Questions().GetByID(ctx, questionID)
		if err != nil {
			return err
		}
		if q.Status != domain.QuestionAvailable {
			return fmt.Errorf("%w: question %d is %s", domain.ErrInvalidTransition, questionID, q.Status)
		}

		var calculated *string
		if q.IsDynamic {
			// Comparison kinds find their "A vs B" parameter in the
			// question text itself.
			answer, err := s.answers.Compute(ctx, q.DynamicKind, q.Text)
			if err != nil {
				return fmt.Errorf("compute dynamic answer: %w", err)
			}
			if answer == "" {
				return domain.ErrDynamicUnavailable
			}
			calculated = &answer
		}

		session = &domain.Session{
			QuestionID:        q.ID,
			SessionDate:       now.Truncate(24 * time.Hour),
			Kind:              kind,
			QuestionSubmitter: q.SubmitterID,
			CalculatedAnswer:  calculated,
			Status:            domain.SessionActive,
			StartedAt:         now,
		}
		if err := tx.Sessions().Insert(ctx, session); err != nil {
			return err
		}
		return tx.Questions().MarkUsed(ctx, q.ID, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SessionsStarted.Inc()
	s.log.WithFields(logrus.Fields{"session": session.ID, "question": session.QuestionID}).Info("session started")
	return session, nil
}

// SubmitAnswer records one user's answer. Scoring is deferred to the
// completion engine so submission stays a cheap single-row write.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID int64, userID, text string) (domain.SubmissionResult, error) {
	session, err := s.store.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if session.Status != domain.SessionActive {
		s.metrics.AnswersRejected.WithLabelValues("closed").Inc()
		return domain.SubmissionResult{Reason: "session closed"}, nil
	}

	conflict := session.QuestionSubmitter != nil && *session.QuestionSubmitter == userID

	answer := &domain.Answer{
		SessionID:      sessionID,
		UserID:         userID,
		RawText:        text,
		NormalizedText: match.NormalizeAnswer(text),
		Conflict:       conflict,
		SubmittedAt:    s.clock(),
	}
	if err := s.store.Answers().Insert(ctx, answer); err != nil {
		if errors.Is(err, domain.ErrDuplicateSubmission) {
			s.metrics.AnswersRejected.WithLabelValues("duplicate").Inc()
			return domain.SubmissionResult{Reason: "duplicate"}, nil
		}
		return domain.SubmissionResult{}, fmt.Errorf("insert answer: %w", err)
	}

	s.metrics.AnswersAccepted.Inc()
	return domain.SubmissionResult{Accepted: true, AnswerID: answer.ID, Conflict: conflict}, nil
}

// CleanupHanging force-expires active sessions older than two hours. This
// is the crash-recovery path: the completion engine is not invoked and
// the question is deliberately left reusable.
func (s *SessionService) CleanupHanging(ctx context.Context) (int64, error) {
	now := s.clock()
	expired, err := s.store.Sessions().ExpireOlderThan(ctx, now.Add(-hangingSessionAge), now)
	if err != nil {
		return 0, fmt.Errorf("expire hanging sessions: %w", err)
	}
	if expired > 0 {
		s.metrics.SessionsExpired.Add(float64(expired))
		s.log.WithField("count", expired).Warn("hanging sessions expired")
	}
	return expired, nil
}

// Active returns the currently running session, if any.
func (s *SessionService) Active(ctx context.Context) (*domain.Session, error) {
	return s.store.Sessions().GetActive(ctx)
}
