package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"trivia-engine/internal/dedup"
	"trivia-engine/internal/domain"
	"trivia-engine/internal/metrics"
)

// Pool ageing windows for the three selection tiers and recycling.
const (
	communityReuseWindow = 4 * 7 * 24 * time.Hour
	insightReuseWindow   = 2 * 7 * 24 * time.Hour
	fallbackReuseWindow  = 7 * 24 * time.Hour
	recycleWindow        = 2 * 7 * 24 * time.Hour
)

// insightCategories mark system-authored questions built from catalog
// statistics; they share the second selection tier with dynamic questions.
var insightCategories = []string{"statistics", "insights", "records"}

// QuestionService owns the question pool: vetting, lifecycle, and
// priority-ordered selection.
type QuestionService struct {
	store    Store
	detector *dedup.Detector
	clock    func() time.Time
	log      *logrus.Entry
	metrics  *metrics.Metrics
}

func NewQuestionService(store Store, detector *dedup.Detector, m *metrics.Metrics, log *logrus.Entry) *QuestionService {
	return &QuestionService{
		store:    store,
		detector: detector,
		clock:    time.Now,
		log:      log,
		metrics:  m,
	}
}

// WithClock overrides the time source; test-only.
func (s *QuestionService) WithClock(now func() time.Time) *QuestionService {
	s.clock = now
	return s
}

// Add vets the candidate against the duplicate detector and inserts it as
// available. A blocking match rejects with domain.ErrDuplicateQuestion; a
// warning-level match is returned alongside the stored question so the
// caller can surface it.
func (s *QuestionService) Add(ctx context.Context, q *domain.Question) (*domain.DuplicateMatch, error) {
	hit, err := s.detector.Check(ctx, q.Text, q.CorrectAnswer)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if hit.Blocking() {
		return hit, domain.ErrDuplicateQuestion
	}

	q.Status = domain.QuestionAvailable
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.clock()
	}
	if q.Kind == "" {
		q.Kind = domain.QuestionSingle
	}
	if err := s.store.Questions().Insert(ctx, q); err != nil {
		return hit, fmt.Errorf("insert question: %w", err)
	}
	s.log.WithFields(logrus.Fields{"question": q.ID, "category": q.Category}).Info("question added to pool")
	return hit, nil
}

func (s *QuestionService) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	return s.store.Questions().GetByID(ctx, id)
}

// UpdateStatus applies an admin status change after validating the
// lifecycle transition.
func (s *QuestionService) UpdateStatus(ctx context.Context, id int64, to domain.QuestionStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTransition, to)
	}
	q, err := s.store.Questions().GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !q.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, q.Status, to)
	}
	return s.store.Questions().UpdateStatus(ctx, id, to)
}

// ResetAllStatus bulk-moves every question in one status to another;
// admin reset path.
func (s *QuestionService) ResetAllStatus(ctx context.Context, from, to domain.QuestionStatus) (int64, error) {
	if !from.Valid() || !to.Valid() {
		return 0, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return s.store.Questions().ResetAllStatus(ctx, from, to)
}

// SelectNext walks the three priority tiers and returns the first
// candidate. excludeSubmitter skips that user's questions at every tier.
func (s *QuestionService) SelectNext(ctx context.Context, excludeSubmitter string) (*domain.Question, error) {
	now := s.clock()
	tiers := []QuestionFilter{
		{
			Status:           domain.QuestionAvailable,
			CommunityOnly:    true,
			ExcludeSubmitter: excludeSubmitter,
			UnusedOrBefore:   now.Add(-communityReuseWindow),
			Order:            OrderNewestFirst,
			Limit:            1,
		},
		{
			Status:            domain.QuestionAvailable,
			SystemOnly:        true,
			ExcludeSubmitter:  excludeSubmitter,
			UnusedOrBefore:    now.Add(-insightReuseWindow),
			InsightCategories: insightCategories,
			Order:             OrderLeastUsedFirst,
			Limit:             1,
		},
		{
			Status:           domain.QuestionAvailable,
			ExcludeSubmitter: excludeSubmitter,
			UnusedOrBefore:   now.Add(-fallbackReuseWindow),
			Order:            OrderLeastUsedFirst,
			Limit:            1,
		},
	}

	for tier, f := range tiers {
		candidates, err := s.store.Questions().SelectCandidates(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("select tier %d: %w", tier+1, err)
		}
		if len(candidates) > 0 {
			s.log.WithFields(logrus.Fields{"question": candidates[0].ID, "tier": tier + 1}).Debug("question selected")
			return candidates[0], nil
		}
	}
	return nil, domain.ErrInsufficientPool
}

// EnsureMinimumPool recycles stale answered questions back to available
// when the pool is short, and reports what it did.
func (s *QuestionService) EnsureMinimumPool(ctx context.Context, minCount int) (domain.PoolReport, error) {
	available, err := s.store.Questions().CountByStatus(ctx, domain.QuestionAvailable)
	if err != nil {
		return domain.PoolReport{}, fmt.Errorf("count available: %w", err)
	}
	report := domain.PoolReport{Available: available}
	if available >= minCount {
		return report, nil
	}

	needed := minCount - available
	cutoff := s.clock().Add(-recycleWindow)
	recycled, err := s.store.Questions().RecycleStale(ctx, cutoff, needed)
	if err != nil {
		return report, fmt.Errorf("recycle stale: %w", err)
	}
	report.Recycled = int(recycled)
	report.StillNeeded = needed - int(recycled)
	if report.StillNeeded < 0 {
		report.StillNeeded = 0
	}
	s.metrics.PoolRecycled.Add(float64(recycled))
	if report.StillNeeded > 0 {
		s.log.WithFields(logrus.Fields{"recycled": recycled, "still_needed": report.StillNeeded}).Warn("question pool below minimum")
	}
	return report, nil
}
