package domain

import "fmt"

// QuestionStatus is the lifecycle state of a pool question.
type QuestionStatus string

const (
	QuestionAvailable QuestionStatus = "available"
	QuestionAnswered  QuestionStatus = "answered"
	QuestionRetired   QuestionStatus = "retired"
)

func (s QuestionStatus) String() string { return string(s) }

func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionAvailable, QuestionAnswered, QuestionRetired:
		return true
	}
	return false
}

// CanTransition reports whether moving to the given status is a legal
// lifecycle step. Available questions are consumed by session creation,
// answered questions can only be reset or retired by an admin.
func (s QuestionStatus) CanTransition(to QuestionStatus) bool {
	switch s {
	case QuestionAvailable:
		return to == QuestionAnswered || to == QuestionRetired
	case QuestionAnswered:
		return to == QuestionAvailable || to == QuestionRetired
	case QuestionRetired:
		return false
	}
	return false
}

// SessionStatus is the lifecycle state of a trivia session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

func (s SessionStatus) String() string { return string(s) }

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionExpired:
		return true
	}
	return false
}

// DialogStatus is the state of an approval or review conversation.
type DialogStatus string

const (
	DialogActive    DialogStatus = "active"
	DialogPending   DialogStatus = "pending"
	DialogCompleted DialogStatus = "completed"
	DialogApproved  DialogStatus = "approved"
	DialogRejected  DialogStatus = "rejected"
	DialogCancelled DialogStatus = "cancelled"
	DialogExpired   DialogStatus = "expired"
)

func (s DialogStatus) String() string { return string(s) }

func (s DialogStatus) Valid() bool {
	switch s {
	case DialogActive, DialogPending, DialogCompleted, DialogApproved,
		DialogRejected, DialogCancelled, DialogExpired:
		return true
	}
	return false
}

// Open reports whether the dialog still accepts workflow updates.
func (s DialogStatus) Open() bool {
	return s == DialogActive || s == DialogPending
}

// QuestionKind distinguishes free-text questions from multiple choice.
type QuestionKind string

const (
	QuestionSingle         QuestionKind = "single"
	QuestionMultipleChoice QuestionKind = "multiple_choice"
)

// DialogKind names the conversational workflow a dialog belongs to.
type DialogKind string

const (
	DialogApproval DialogKind = "approval"
	DialogReview   DialogKind = "review"
)

// ParseQuestionStatus converts a stored string into a QuestionStatus.
func ParseQuestionStatus(raw string) (QuestionStatus, error) {
	s := QuestionStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid question status %q", raw)
	}
	return s, nil
}
