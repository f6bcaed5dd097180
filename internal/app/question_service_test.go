package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-engine/internal/domain"
)

func TestAddRejectsRetiredAnswerDuplicate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	seeded := env.seedQuestion(&domain.Question{
		Text:          "What is the best selling game of all time?",
		CorrectAnswer: "Minecraft",
	})
	require.NoError(t, env.questions.UpdateStatus(ctx, seeded.ID, domain.QuestionRetired))

	hit, err := env.questions.Add(ctx, &domain.Question{
		Text:          "Which game sold the most copies ever?",
		CorrectAnswer: "minecraft",
	})
	require.ErrorIs(t, err, domain.ErrDuplicateQuestion)
	require.NotNil(t, hit)
	assert.True(t, hit.Retired)
	assert.Equal(t, seeded.ID, hit.QuestionID)
}

func TestAddWarnsOnRecentAnswerButAccepts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	used := env.now.Add(-24 * time.Hour)
	env.seedQuestion(&domain.Question{
		Text:          "What engine powers Half-Life?",
		CorrectAnswer: "Source",
		Status:        domain.QuestionAnswered,
		LastUsedAt:    &used,
	})

	q := &domain.Question{
		Text:          "Name the engine behind Counter-Strike.",
		CorrectAnswer: "Source",
	}
	hit, err := env.questions.Add(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.False(t, hit.Blocking())
	assert.InDelta(t, 0.9, hit.Score, 0.001)

	stored, err := env.questions.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionAvailable, stored.Status)
}

func TestSelectNextPrefersCommunityTier(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	community := env.seedQuestion(&domain.Question{
		Text:          "Who composed the Skyrim theme?",
		CorrectAnswer: "Jeremy Soule",
		SubmitterID:   strptr("mod1"),
		CreatedAt:     env.now.Add(-5 * 7 * 24 * time.Hour),
	})
	env.seedQuestion(&domain.Question{
		Text:        "Which game has the most views?",
		IsDynamic:   true,
		DynamicKind: "most_viewed",
		CreatedAt:   env.now.Add(-7 * 24 * time.Hour),
	})

	got, err := env.questions.SelectNext(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, community.ID, got.ID)
}

func TestSelectNextExcludesSubmitterAndFallsThrough(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.seedQuestion(&domain.Question{
		Text:          "Who composed the Skyrim theme?",
		CorrectAnswer: "Jeremy Soule",
		SubmitterID:   strptr("mod1"),
	})
	dynamic := env.seedQuestion(&domain.Question{
		Text:        "Which game has the most plays?",
		IsDynamic:   true,
		DynamicKind: "most_played",
	})

	got, err := env.questions.SelectNext(ctx, "mod1")
	require.NoError(t, err)
	assert.Equal(t, dynamic.ID, got.ID)
}

func TestSelectNextSkipsConsumedStatuses(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.seedQuestion(&domain.Question{
		Text:   "retired one",
		Status: domain.QuestionRetired,
	})
	env.seedQuestion(&domain.Question{
		Text:   "answered one",
		Status: domain.QuestionAnswered,
	})

	_, err := env.questions.SelectNext(ctx, "")
	require.ErrorIs(t, err, domain.ErrInsufficientPool)
}

func TestSelectNextEmptyPool(t *testing.T) {
	env := newTestEnv()
	_, err := env.questions.SelectNext(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrInsufficientPool)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	q := env.seedQuestion(&domain.Question{Text: "to retire"})
	require.NoError(t, env.questions.UpdateStatus(ctx, q.ID, domain.QuestionRetired))

	err := env.questions.UpdateStatus(ctx, q.ID, domain.QuestionAvailable)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = env.questions.UpdateStatus(ctx, q.ID, "bogus")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestEnsureMinimumPoolRecyclesStale(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.seedQuestion(&domain.Question{Text: "fresh available"})
	stale := env.now.Add(-3 * 7 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		env.seedQuestion(&domain.Question{
			Text:       "stale answered",
			Status:     domain.QuestionAnswered,
			LastUsedAt: &stale,
		})
	}

	report, err := env.questions.EnsureMinimumPool(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Available)
	assert.Equal(t, 3, report.Recycled)
	assert.Equal(t, 1, report.StillNeeded)

	n, err := env.store.Questions().CountByStatus(ctx, domain.QuestionAvailable)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestEnsureMinimumPoolNoopWhenHealthy(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.seedQuestion(&domain.Question{Text: "a"})
	env.seedQuestion(&domain.Question{Text: "b"})

	report, err := env.questions.EnsureMinimumPool(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Recycled)
	assert.Equal(t, 0, report.StillNeeded)
}
