package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"trivia-engine/internal/domain"
	"trivia-engine/internal/match"
	"trivia-engine/internal/metrics"
)

// CompletionOverrides lets the caller pin aggregates instead of having
// them derived from the scored answers.
type CompletionOverrides struct {
	FirstCorrectUserID *string
	TotalParticipants  *int
	CorrectCount       *int
}

// CompletionEngine finalizes a session: scores every submission, commits
// aggregates, and advances the question lifecycle, all inside a retried
// transaction.
type CompletionEngine struct {
	store   Store
	retry   RetryPolicy
	clock   func() time.Time
	log     *logrus.Entry
	metrics *metrics.Metrics
}

func NewCompletionEngine(store Store, m *metrics.Metrics, log *logrus.Entry) *CompletionEngine {
	return &CompletionEngine{
		store:   store,
		retry:   DefaultRetryPolicy(),
		clock:   time.Now,
		log:     log,
		metrics: m,
	}
}

// WithClock overrides the time source; test-only.
func (e *CompletionEngine) WithClock(now func() time.Time) *CompletionEngine {
	e.clock = now
	return e
}

// WithRetryPolicy overrides the retry curve; test-only.
func (e *CompletionEngine) WithRetryPolicy(p RetryPolicy) *CompletionEngine {
	e.retry = p
	return e
}

// Complete runs the completion transaction with retry. It is idempotent:
// completing an already-completed session returns its stored aggregates
// unchanged. Exhausting all retries leaves the session active for the
// hanging-session sweep.
func (e *CompletionEngine) Complete(ctx context.Context, sessionID int64, overrides *CompletionOverrides) (*domain.CompletionResult, error) {
	var result *domain.CompletionResult

	err := e.retry.Run(ctx,
		func(ctx context.Context) error {
			return e.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
				r, err := e.completeOnce(ctx, tx, sessionID, overrides)
				if err != nil {
					return err
				}
				result = r
				return nil
			})
		},
		func(err error) bool {
			// Only unknown (presumed transient) failures are retried.
			return !errors.Is(err, domain.ErrSessionNotFound) &&
				!errors.Is(err, domain.ErrQuestionNotFound) &&
				!errors.Is(err, domain.ErrNoAnswerKey) &&
				!errors.Is(err, domain.ErrInvalidTransition) &&
				!errors.Is(err, context.Canceled)
		},
		func(attempt int, err error) {
			e.metrics.CompletionRetries.Inc()
			e.log.WithError(err).WithField("attempt", attempt).Warn("completion attempt failed, retrying")
		},
	)
	if err != nil {
		e.log.WithError(err).WithField("session", sessionID).Error("session completion failed")
		return nil, err
	}

	e.metrics.SessionsCompleted.Inc()
	return result, nil
}

func (e *CompletionEngine) completeOnce(ctx context.Context, tx Store, sessionID int64, overrides *CompletionOverrides) (*domain.CompletionResult, error) {
	session, err := tx.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	question, err := tx.Questions().GetByID(ctx, session.QuestionID)
	if err != nil {
		return nil, err
	}

	if session.Status == domain.SessionCompleted {
		return resultFromSession(session, question), nil
	}
	// Expired is terminal: the hanging-session sweep already reclaimed
	// this round and left the question reusable. A late Complete must
	// not resurrect it.
	if session.Status == domain.SessionExpired {
		return nil, fmt.Errorf("%w: session %d is expired", domain.ErrInvalidTransition, sessionID)
	}

	key := session.AnswerKey(question)
	if key == "" {
		return nil, domain.ErrNoAnswerKey
	}

	// Conflict-flagged answers are excluded from scoring and tallies.
	answers, err := tx.Answers().ListBySession(ctx, sessionID, false)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	var correctIDs, closeIDs []int64
	var firstCorrect *domain.Answer
	for _, a := range answers {
		score, _ := match.Evaluate(a.RawText, key)
		if match.IsCorrect(score) {
			correctIDs = append(correctIDs, a.ID)
			if firstCorrect == nil {
				firstCorrect = a
			}
		} else if match.IsClose(score) {
			closeIDs = append(closeIDs, a.ID)
		}
	}
	if err := tx.Answers().MarkScored(ctx, correctIDs, closeIDs); err != nil {
		return nil, fmt.Errorf("mark scored: %w", err)
	}

	participants := len(answers)
	correctCount := len(correctIDs)
	var firstUser *string
	if firstCorrect != nil {
		firstUser = &firstCorrect.UserID
	}
	if overrides != nil {
		if overrides.TotalParticipants != nil {
			participants = *overrides.TotalParticipants
		}
		if overrides.CorrectCount != nil {
			correctCount = *overrides.CorrectCount
		}
		if overrides.FirstCorrectUserID != nil {
			firstUser = overrides.FirstCorrectUserID
		}
	}
	var markID int64
	if overrides != nil && overrides.FirstCorrectUserID != nil {
		// Keep the answer rows consistent with the overridden aggregate
		// when the pinned user actually submitted.
		for _, a := range answers {
			if a.UserID == *overrides.FirstCorrectUserID {
				markID = a.ID
				break
			}
		}
	} else if firstCorrect != nil {
		markID = firstCorrect.ID
	}
	if markID != 0 {
		if err := tx.Answers().MarkFirstCorrect(ctx, markID); err != nil {
			return nil, fmt.Errorf("mark first correct: %w", err)
		}
	}

	now := e.clock()
	session.Status = domain.SessionCompleted
	session.EndedAt = &now
	session.TotalParticipants = participants
	session.CorrectCount = correctCount
	session.FirstCorrectUserID = firstUser
	if err := tx.Sessions().Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	// Already answered since Start; re-affirmed in case of a prior
	// partial failure.
	if err := tx.Questions().UpdateStatus(ctx, question.ID, domain.QuestionAnswered); err != nil {
		return nil, fmt.Errorf("update question status: %w", err)
	}

	return resultFromSession(session, question), nil
}

func resultFromSession(s *domain.Session, q *domain.Question) *domain.CompletionResult {
	accuracy := 0.0
	if s.TotalParticipants > 0 {
		accuracy = float64(s.CorrectCount) / float64(s.TotalParticipants)
	}
	return &domain.CompletionResult{
		SessionID:          s.ID,
		CorrectAnswer:      s.AnswerKey(q),
		TotalParticipants:  s.TotalParticipants,
		CorrectCount:       s.CorrectCount,
		FirstCorrectUserID: s.FirstCorrectUserID,
		AccuracyRate:       accuracy,
	}
}
