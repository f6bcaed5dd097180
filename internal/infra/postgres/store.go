package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"trivia-engine/internal/app"
)

// Store implements app.Store over Postgres via bun. The zero-argument
// repository accessors share the Store's IDB, which is either the root
// *bun.DB or a transaction handle inside RunInTx.
type Store struct {
	db  *bun.DB
	idb bun.IDB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, idb: db}
}

func (s *Store) Questions() app.QuestionRepository { return &questionRepo{idb: s.idb} }
func (s *Store) Sessions() app.SessionRepository   { return &sessionRepo{idb: s.idb} }
func (s *Store) Answers() app.AnswerRepository     { return &answerRepo{idb: s.idb} }
func (s *Store) Dialogs() app.DialogRepository     { return &dialogRepo{idb: s.idb} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Store) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Store{db: s.db, idb: tx})
	})
}

// uniqueViolation reports whether err is a Postgres unique violation,
// optionally on a specific constraint.
func uniqueViolation(err error, constraint string) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Field('C') != "23505" {
		return false
	}
	if constraint == "" {
		return true
	}
	return strings.Contains(pgErr.Field('n'), constraint)
}
