package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"trivia-engine/internal/domain"
)

type sessionRepo struct {
	idb bun.IDB
}

func (r *sessionRepo) Insert(ctx context.Context, s *domain.Session) error {
	if _, err := r.idb.NewInsert().Model(s).Exec(ctx); err != nil {
		// sessions_single_active_idx is a partial unique index over
		// status='active' rows.
		if uniqueViolation(err, "sessions_single_active_idx") {
			return domain.ErrActiveSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	s := new(domain.Session)
	err := r.idb.NewSelect().Model(s).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) GetActive(ctx context.Context) (*domain.Session, error) {
	s := new(domain.Session)
	err := r.idb.NewSelect().Model(s).
		Where("status = ?", domain.SessionActive).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return s, nil
}

func (r *sessionRepo) Update(ctx context.Context, s *domain.Session) error {
	res, err := r.idb.NewUpdate().Model(s).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepo) ExpireOlderThan(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := r.idb.NewUpdate().Model((*domain.Session)(nil)).
		Set("status = ?", domain.SessionExpired).
		Set("ended_at = ?", now).
		Where("status = ?", domain.SessionActive).
		Where("started_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
