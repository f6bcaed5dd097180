package app

import (
	"context"
	"time"

	"trivia-engine/internal/dedup"
	"trivia-engine/internal/domain"
)

// QuestionOrder selects the ordering a candidate query returns rows in.
type QuestionOrder int

const (
	// OrderNewestFirst sorts by creation time descending, ties broken by
	// lowest usage count.
	OrderNewestFirst QuestionOrder = iota
	// OrderLeastUsedFirst sorts by usage count ascending.
	OrderLeastUsedFirst
)

// QuestionFilter describes one candidate pool for question selection.
type QuestionFilter struct {
	Status domain.QuestionStatus
	// CommunityOnly/SystemOnly split the pool by submitter presence.
	CommunityOnly bool
	SystemOnly    bool
	// ExcludeSubmitter skips questions submitted by this user.
	ExcludeSubmitter string
	// UnusedOrBefore admits questions never used, or last used before t.
	UnusedOrBefore time.Time
	// InsightCategories, when set, requires category IN (...) OR is_dynamic.
	InsightCategories []string
	Order             QuestionOrder
	Limit             int
}

// QuestionRepository is the question store's persistence contract. It also
// feeds the duplicate detector its candidate corpus.
type QuestionRepository interface {
	dedup.CandidateSource

	Insert(ctx context.Context, q *domain.Question) error
	GetByID(ctx context.Context, id int64) (*domain.Question, error)
	UpdateStatus(ctx context.Context, id int64, status domain.QuestionStatus) error
	ResetAllStatus(ctx context.Context, from, to domain.QuestionStatus) (int64, error)
	SelectCandidates(ctx context.Context, f QuestionFilter) ([]*domain.Question, error)
	CountByStatus(ctx context.Context, status domain.QuestionStatus) (int, error)
	// MarkUsed flips the question to answered and bumps usage bookkeeping.
	MarkUsed(ctx context.Context, id int64, now time.Time) error
	// RecycleStale returns answered questions older than cutoff to the
	// available pool, up to limit rows.
	RecycleStale(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// SessionRepository persists trivia sessions. Insert must surface
// domain.ErrActiveSessionExists when another active session holds the
// single-active guard.
type SessionRepository interface {
	Insert(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
	GetActive(ctx context.Context) (*domain.Session, error)
	Update(ctx context.Context, s *domain.Session) error
	// ExpireOlderThan force-expires active sessions started before cutoff.
	ExpireOlderThan(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// AnswerRepository persists submissions. Insert must surface
// domain.ErrDuplicateSubmission on a (session, user) uniqueness conflict.
type AnswerRepository interface {
	Insert(ctx context.Context, a *domain.Answer) error
	// ListBySession returns answers ordered by submission time, optionally
	// excluding conflict-flagged rows.
	ListBySession(ctx context.Context, sessionID int64, includeConflicts bool) ([]*domain.Answer, error)
	MarkScored(ctx context.Context, correctIDs, closeIDs []int64) error
	MarkFirstCorrect(ctx context.Context, id int64) error
}

// DialogRepository persists approval/review conversations. Insert must
// surface domain.ErrSequenceConflict on a primary-key collision so the
// service can run the one-shot sequence repair.
type DialogRepository interface {
	Insert(ctx context.Context, d *domain.DialogSession) error
	GetByID(ctx context.Context, id int64) (*domain.DialogSession, error)
	GetActive(ctx context.Context, userID string, kind domain.DialogKind) (*domain.DialogSession, error)
	Update(ctx context.Context, d *domain.DialogSession) error
	ListOpen(ctx context.Context) ([]*domain.DialogSession, error)
	ExpireOlderThan(ctx context.Context, now time.Time) (int64, error)
	RepairSequence(ctx context.Context) error
}

// Store bundles the repositories over one backing database and scopes
// them to a transaction when used inside RunInTx.
type Store interface {
	Questions() QuestionRepository
	Sessions() SessionRepository
	Answers() AnswerRepository
	Dialogs() DialogRepository
	// RunInTx executes fn inside a single transaction; the Store passed to
	// fn is bound to that transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
