package domain

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Question is a pool entry managed by the question store.
type Question struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int64          `bun:"id,pk,autoincrement"`
	Text          string         `bun:"text,notnull"`
	Kind          QuestionKind   `bun:"kind,notnull"`
	CorrectAnswer string         `bun:"correct_answer"`
	Options       []string       `bun:"options,array"`
	IsDynamic     bool           `bun:"is_dynamic"`
	DynamicKind   string         `bun:"dynamic_kind"`
	SubmitterID   *string        `bun:"submitter_id"` // nil means system authored
	Category      string         `bun:"category"`
	Difficulty    int            `bun:"difficulty"`
	UsageCount    int            `bun:"usage_count"`
	LastUsedAt    *time.Time     `bun:"last_used_at"`
	Status        QuestionStatus `bun:"status,notnull"`
	CreatedAt     time.Time      `bun:"created_at,notnull,default:now()"`
}

// CommunitySubmitted reports whether the question came from a user rather
// than the system author.
func (q *Question) CommunitySubmitted() bool {
	return q.SubmitterID != nil && *q.SubmitterID != ""
}

// Session is one timed trivia round over a single question.
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	ID                 int64         `bun:"id,pk,autoincrement"`
	QuestionID         int64         `bun:"question_id,notnull"`
	SessionDate        time.Time     `bun:"session_date,notnull"`
	Kind               string        `bun:"kind"`
	QuestionSubmitter  *string       `bun:"question_submitter_id"`
	CalculatedAnswer   *string       `bun:"calculated_answer"`
	Status             SessionStatus `bun:"status,notnull"`
	StartedAt          time.Time     `bun:"started_at,notnull"`
	EndedAt            *time.Time    `bun:"ended_at"`
	FirstCorrectUserID *string       `bun:"first_correct_user_id"`
	TotalParticipants  int           `bun:"total_participants"`
	CorrectCount       int           `bun:"correct_count"`
	MessageRefs        []string      `bun:"message_refs,array"`
}

// AnswerKey returns the text answers are graded against: the snapshotted
// dynamic answer when present, otherwise the question's static answer.
func (s *Session) AnswerKey(q *Question) string {
	if s.CalculatedAnswer != nil && *s.CalculatedAnswer != "" {
		return *s.CalculatedAnswer
	}
	if q != nil {
		return q.CorrectAnswer
	}
	return ""
}

// Answer is a single user submission inside a session.
type Answer struct {
	bun.BaseModel `bun:"table:answers"`

	ID             int64     `bun:"id,pk,autoincrement"`
	SessionID      int64     `bun:"session_id,notnull"`
	UserID         string    `bun:"user_id,notnull"`
	RawText        string    `bun:"raw_text,notnull"`
	NormalizedText string    `bun:"normalized_text"`
	IsCorrect      bool      `bun:"is_correct"`
	IsFirstCorrect bool      `bun:"is_first_correct"`
	IsClose        bool      `bun:"is_close"`
	Conflict       bool      `bun:"conflict_detected"`
	SubmittedAt    time.Time `bun:"submitted_at,notnull"`
}

// DialogSession is restart-durable conversational state for the moderator
// approval and low-confidence review workflows.
type DialogSession struct {
	bun.BaseModel `bun:"table:dialog_sessions"`

	ID           int64           `bun:"id,pk,autoincrement"`
	UserID       string          `bun:"user_id,notnull"`
	Kind         DialogKind      `bun:"kind,notnull"`
	Step         string          `bun:"step"`
	Payload      json.RawMessage `bun:"payload,type:jsonb"`
	Status       DialogStatus    `bun:"status,notnull"`
	CreatedAt    time.Time       `bun:"created_at,notnull"`
	LastActivity time.Time       `bun:"last_activity,notnull"`
	ExpiresAt    time.Time       `bun:"expires_at,notnull"`
}

// Expired reports whether the dialog's TTL has elapsed at the given time.
func (d *DialogSession) Expired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// CompletionResult is handed to the presentation layer after a session is
// finalized.
type CompletionResult struct {
	SessionID          int64
	CorrectAnswer      string
	TotalParticipants  int
	CorrectCount       int
	FirstCorrectUserID *string
	AccuracyRate       float64
}

// SubmissionResult reports the outcome of one answer submission.
type SubmissionResult struct {
	Accepted bool
	AnswerID int64
	Conflict bool
	Reason   string
}

// PoolReport summarizes an ensure-minimum-pool pass.
type PoolReport struct {
	Available   int
	Recycled    int
	StillNeeded int
}

// DuplicateMatch describes a detected near-duplicate question.
type DuplicateMatch struct {
	QuestionID int64
	Score      float64
	Kind       string
	Retired    bool
}

// Blocking reports whether the match must reject the candidate outright
// rather than just warn the submitter.
func (m *DuplicateMatch) Blocking() bool {
	return m != nil && (m.Retired || m.Score >= 1.0)
}
