package domain

import "errors"

var (
	// ErrQuestionNotFound indicates a question ID that is not in the pool.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionNotFound indicates a session ID that does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrActiveSessionExists is returned when starting a session while one is running.
	ErrActiveSessionExists = errors.New("an active session already exists")
	// ErrDuplicateSubmission is returned on a second answer from the same user.
	ErrDuplicateSubmission = errors.New("duplicate submission for session")
	// ErrInsufficientPool means no eligible question was found at any priority tier.
	ErrInsufficientPool = errors.New("no eligible question available")
	// ErrNoAnswerKey means a session has neither a calculated nor a static answer.
	ErrNoAnswerKey = errors.New("session has no answer to grade against")
	// ErrDynamicUnavailable means the dynamic answer could not be computed right now.
	ErrDynamicUnavailable = errors.New("dynamic answer unavailable")
	// ErrDialogNotFound indicates a missing or expired dialog session.
	ErrDialogNotFound = errors.New("dialog session not found")
	// ErrDuplicateQuestion is returned when the duplicate detector blocks a candidate.
	ErrDuplicateQuestion = errors.New("question duplicates an existing one")
	// ErrInvalidTransition is returned for illegal question status changes.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSequenceConflict signals a primary-key/sequence collision, a
	// schema-consistency symptom repaired once before surfacing.
	ErrSequenceConflict = errors.New("primary key sequence conflict")
)
