package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"trivia-engine/internal/domain"
)

type answerRepo struct {
	idb bun.IDB
}

func (r *answerRepo) Insert(ctx context.Context, a *domain.Answer) error {
	if _, err := r.idb.NewInsert().Model(a).Exec(ctx); err != nil {
		if uniqueViolation(err, "answers_session_user_key") {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (r *answerRepo) ListBySession(ctx context.Context, sessionID int64, includeConflicts bool) ([]*domain.Answer, error) {
	var out []*domain.Answer
	q := r.idb.NewSelect().Model(&out).
		Where("session_id = ?", sessionID).
		Order("submitted_at ASC", "id ASC")
	if !includeConflicts {
		q = q.Where("NOT conflict_detected")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return out, nil
}

func (r *answerRepo) MarkScored(ctx context.Context, correctIDs, closeIDs []int64) error {
	if len(correctIDs) > 0 {
		_, err := r.idb.NewUpdate().Model((*domain.Answer)(nil)).
			Set("is_correct = TRUE").
			Where("id IN (?)", bun.In(correctIDs)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark correct: %w", err)
		}
	}
	if len(closeIDs) > 0 {
		_, err := r.idb.NewUpdate().Model((*domain.Answer)(nil)).
			Set("is_close = TRUE").
			Where("id IN (?)", bun.In(closeIDs)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("mark close: %w", err)
		}
	}
	return nil
}

func (r *answerRepo) MarkFirstCorrect(ctx context.Context, id int64) error {
	_, err := r.idb.NewUpdate().Model((*domain.Answer)(nil)).
		Set("is_first_correct = TRUE").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark first correct: %w", err)
	}
	return nil
}
