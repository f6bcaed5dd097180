package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"trivia-engine/internal/app"
	"trivia-engine/internal/dedup"
	"trivia-engine/internal/domain"
)

type questionRepo struct {
	idb bun.IDB
}

func (r *questionRepo) Insert(ctx context.Context, q *domain.Question) error {
	if _, err := r.idb.NewInsert().Model(q).Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r *questionRepo) GetByID(ctx context.Context, id int64) (*domain.Question, error) {
	q := new(domain.Question)
	err := r.idb.NewSelect().Model(q).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (r *questionRepo) UpdateStatus(ctx context.Context, id int64, status domain.QuestionStatus) error {
	res, err := r.idb.NewUpdate().Model((*domain.Question)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *questionRepo) ResetAllStatus(ctx context.Context, from, to domain.QuestionStatus) (int64, error) {
	res, err := r.idb.NewUpdate().Model((*domain.Question)(nil)).
		Set("status = ?", to).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset question status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *questionRepo) SelectCandidates(ctx context.Context, f app.QuestionFilter) ([]*domain.Question, error) {
	var out []*domain.Question
	q := r.idb.NewSelect().Model(&out).Where("status = ?", f.Status)

	if f.CommunityOnly {
		q = q.Where("submitter_id IS NOT NULL AND submitter_id <> ''")
	}
	if f.SystemOnly {
		q = q.Where("submitter_id IS NULL OR submitter_id = ''")
	}
	if f.ExcludeSubmitter != "" {
		q = q.Where("submitter_id IS DISTINCT FROM ?", f.ExcludeSubmitter)
	}
	if !f.UnusedOrBefore.IsZero() {
		q = q.Where("last_used_at IS NULL OR last_used_at < ?", f.UnusedOrBefore)
	}
	if len(f.InsightCategories) > 0 {
		q = q.Where("category IN (?) OR is_dynamic", bun.In(f.InsightCategories))
	}

	switch f.Order {
	case app.OrderLeastUsedFirst:
		q = q.Order("usage_count ASC", "id ASC")
	default:
		q = q.Order("created_at DESC", "usage_count ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select candidates: %w", err)
	}
	return out, nil
}

func (r *questionRepo) CountByStatus(ctx context.Context, status domain.QuestionStatus) (int, error) {
	n, err := r.idb.NewSelect().Model((*domain.Question)(nil)).
		Where("status = ?", status).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (r *questionRepo) MarkUsed(ctx context.Context, id int64, now time.Time) error {
	res, err := r.idb.NewUpdate().Model((*domain.Question)(nil)).
		Set("status = ?", domain.QuestionAnswered).
		Set("usage_count = usage_count + 1").
		Set("last_used_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark question used: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *questionRepo) RecycleStale(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	// bun's UPDATE has no LIMIT; constrain by subquery instead.
	sub := r.idb.NewSelect().Model((*domain.Question)(nil)).
		Column("id").
		Where("status = ?", domain.QuestionAnswered).
		Where("last_used_at IS NOT NULL AND last_used_at < ?", cutoff).
		Order("last_used_at ASC")
	if limit > 0 {
		sub = sub.Limit(limit)
	}

	res, err := r.idb.NewUpdate().Model((*domain.Question)(nil)).
		Set("status = ?", domain.QuestionAvailable).
		Where("id IN (?)", sub).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("recycle stale questions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *questionRepo) DedupCandidates(ctx context.Context) ([]dedup.Candidate, error) {
	var rows []*domain.Question
	err := r.idb.NewSelect().Model(&rows).
		Column("id", "text", "correct_answer", "status").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("dedup candidates: %w", err)
	}
	return toCandidates(rows), nil
}

func (r *questionRepo) RecentlyAnswered(ctx context.Context, limit int) ([]dedup.Candidate, error) {
	var rows []*domain.Question
	q := r.idb.NewSelect().Model(&rows).
		Column("id", "text", "correct_answer", "status").
		Where("status = ?", domain.QuestionAnswered).
		Where("last_used_at IS NOT NULL").
		Order("last_used_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("recently answered: %w", err)
	}
	return toCandidates(rows), nil
}

func toCandidates(rows []*domain.Question) []dedup.Candidate {
	out := make([]dedup.Candidate, 0, len(rows))
	for _, q := range rows {
		out = append(out, dedup.Candidate{
			QuestionID: q.ID,
			Text:       q.Text,
			Answer:     q.CorrectAnswer,
			Status:     q.Status,
		})
	}
	return out
}
