package app_test

import (
	"context"
	"time"

	"trivia-engine/internal/app"
	"trivia-engine/internal/dedup"
	"trivia-engine/internal/domain"
	"trivia-engine/internal/infra/memory"
	"trivia-engine/internal/logger"
	"trivia-engine/internal/metrics"
)

// testEnv wires every service over one in-memory store with a settable
// clock.
type testEnv struct {
	store      *memory.Store
	questions  *app.QuestionService
	sessions   *app.SessionService
	completion *app.CompletionEngine
	dialogs    *app.DialogService
	answers    *fakeAnswerSource
	now        time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:   memory.NewStore(),
		answers: &fakeAnswerSource{},
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	log := logger.Discard()
	m := metrics.Nop()

	detector := dedup.New(env.store.Questions(), 0.75, log)
	env.questions = app.NewQuestionService(env.store, detector, m, log).WithClock(clock)
	env.sessions = app.NewSessionService(env.store, env.answers, m, log).WithClock(clock)
	env.completion = app.NewCompletionEngine(env.store, m, log).
		WithClock(clock).
		WithRetryPolicy(app.RetryPolicy{Attempts: 3, Sleep: func(time.Duration) {}})
	env.dialogs = app.NewDialogService(env.store, m, log).WithClock(clock)
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.now = env.now.Add(d)
}

// seedQuestion inserts directly, bypassing duplicate vetting.
func (env *testEnv) seedQuestion(q *domain.Question) *domain.Question {
	if q.Status == "" {
		q.Status = domain.QuestionAvailable
	}
	if q.Kind == "" {
		q.Kind = domain.QuestionSingle
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = env.now
	}
	if err := env.store.Questions().Insert(context.Background(), q); err != nil {
		panic(err)
	}
	return q
}

func strptr(s string) *string { return &s }

type fakeAnswerSource struct {
	answer string
	err    error
	calls  int
}

func (f *fakeAnswerSource) Compute(ctx context.Context, kind, param string) (string, error) {
	f.calls++
	return f.answer, f.err
}
