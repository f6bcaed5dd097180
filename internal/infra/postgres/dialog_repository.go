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

var openDialogStatuses = []domain.DialogStatus{
	domain.DialogActive,
	domain.DialogPending,
}

type dialogRepo struct {
	idb bun.IDB
}

func (r *dialogRepo) Insert(ctx context.Context, d *domain.DialogSession) error {
	if _, err := r.idb.NewInsert().Model(d).Exec(ctx); err != nil {
		// A pkey collision means the id sequence fell behind the table,
		// typically after a data import. The service repairs and retries.
		if uniqueViolation(err, "dialog_sessions_pkey") {
			return domain.ErrSequenceConflict
		}
		return fmt.Errorf("insert dialog: %w", err)
	}
	return nil
}

func (r *dialogRepo) GetByID(ctx context.Context, id int64) (*domain.DialogSession, error) {
	d := new(domain.DialogSession)
	err := r.idb.NewSelect().Model(d).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDialogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dialog: %w", err)
	}
	return d, nil
}

func (r *dialogRepo) GetActive(ctx context.Context, userID string, kind domain.DialogKind) (*domain.DialogSession, error) {
	d := new(domain.DialogSession)
	err := r.idb.NewSelect().Model(d).
		Where("user_id = ?", userID).
		Where("kind = ?", kind).
		Where("status IN (?)", bun.In(openDialogStatuses)).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active dialog: %w", err)
	}
	return d, nil
}

func (r *dialogRepo) Update(ctx context.Context, d *domain.DialogSession) error {
	res, err := r.idb.NewUpdate().Model(d).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update dialog: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDialogNotFound
	}
	return nil
}

func (r *dialogRepo) ListOpen(ctx context.Context) ([]*domain.DialogSession, error) {
	var out []*domain.DialogSession
	err := r.idb.NewSelect().Model(&out).
		Where("status IN (?)", bun.In(openDialogStatuses)).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open dialogs: %w", err)
	}
	return out, nil
}

func (r *dialogRepo) ExpireOlderThan(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.idb.NewUpdate().Model((*domain.DialogSession)(nil)).
		Set("status = ?", domain.DialogExpired).
		Where("status IN (?)", bun.In(openDialogStatuses)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("expire dialogs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *dialogRepo) RepairSequence(ctx context.Context) error {
	_, err := r.idb.ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('dialog_sessions', 'id'), COALESCE((SELECT MAX(id) FROM dialog_sessions), 1))`)
	if err != nil {
		return fmt.Errorf("repair dialog sequence: %w", err)
	}
	return nil
}
