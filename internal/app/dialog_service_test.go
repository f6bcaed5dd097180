package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-engine/internal/app"
	"trivia-engine/internal/domain"
)

func TestDialogCreateDefaultTTLs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	approval, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "await_decision", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(app.DefaultApprovalTTL), approval.ExpiresAt)
	assert.Equal(t, domain.DialogActive, approval.Status)

	review, err := env.dialogs.Create(ctx, "mod2", domain.DialogReview, "await_verdict", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(app.DefaultReviewTTL), review.ExpiresAt)
}

func TestDialogConfiguredTTLs(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.dialogs.WithTTLs(30*time.Minute, 2*time.Hour)

	approval, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "s1", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(30*time.Minute), approval.ExpiresAt)

	review, err := env.dialogs.Create(ctx, "mod2", domain.DialogReview, "s1", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(2*time.Hour), review.ExpiresAt)

	// An explicit ttl still wins.
	explicit, err := env.dialogs.Create(ctx, "mod3", domain.DialogApproval, "s1", nil, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(time.Minute), explicit.ExpiresAt)
}

func TestDialogGetActiveExpiresOnRead(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	d, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "await_decision", nil, time.Hour)
	require.NoError(t, err)

	got, err := env.dialogs.GetActive(ctx, "mod1", domain.DialogApproval)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	env.advance(2 * time.Hour)
	_, err = env.dialogs.GetActive(ctx, "mod1", domain.DialogApproval)
	require.ErrorIs(t, err, domain.ErrDialogNotFound)

	// Flipped, not deleted.
	stored, err := env.store.Dialogs().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DialogExpired, stored.Status)
}

func TestDialogCreateRepairsSequence(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.store.FailNextDialogInserts(1)
	d, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "s1", nil, 0)
	require.NoError(t, err)
	assert.NotZero(t, d.ID)

	// Only one repair attempt per create.
	env.store.FailNextDialogInserts(2)
	_, err = env.dialogs.Create(ctx, "mod2", domain.DialogApproval, "s1", nil, 0)
	require.ErrorIs(t, err, domain.ErrSequenceConflict)
}

func TestDialogUpdateAdvancesStep(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	d, err := env.dialogs.Create(ctx, "mod1", domain.DialogReview, "collect_votes",
		json.RawMessage(`{"question_id":7}`), 0)
	require.NoError(t, err)

	env.advance(time.Minute)
	step := "tally"
	require.NoError(t, env.dialogs.Update(ctx, d.ID, &step, json.RawMessage(`{"question_id":7,"votes":3}`)))

	stored, err := env.store.Dialogs().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "tally", stored.Step)
	assert.JSONEq(t, `{"question_id":7,"votes":3}`, string(stored.Payload))
	assert.Equal(t, env.now, stored.LastActivity)
}

func TestDialogUpdateRejectsClosedOrExpired(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	d, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "s1", nil, time.Hour)
	require.NoError(t, err)
	require.NoError(t, env.dialogs.Complete(ctx, d.ID, domain.DialogApproved))

	step := "s2"
	err = env.dialogs.Update(ctx, d.ID, &step, nil)
	require.ErrorIs(t, err, domain.ErrDialogNotFound)

	d2, err := env.dialogs.Create(ctx, "mod2", domain.DialogApproval, "s1", nil, time.Hour)
	require.NoError(t, err)
	env.advance(2 * time.Hour)
	err = env.dialogs.Update(ctx, d2.ID, &step, nil)
	require.ErrorIs(t, err, domain.ErrDialogNotFound)
}

func TestDialogCompleteValidatesFinalStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	d, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "s1", nil, 0)
	require.NoError(t, err)

	require.Error(t, env.dialogs.Complete(ctx, d.ID, domain.DialogActive))
	require.Error(t, env.dialogs.Complete(ctx, d.ID, "bogus"))

	require.NoError(t, env.dialogs.Complete(ctx, d.ID, domain.DialogRejected))
	stored, err := env.store.Dialogs().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DialogRejected, stored.Status)
}

func TestDialogListActiveSkipsExpired(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	short, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "s1", nil, time.Hour)
	require.NoError(t, err)
	long, err := env.dialogs.Create(ctx, "mod2", domain.DialogReview, "s1", nil, 0)
	require.NoError(t, err)

	env.advance(90 * time.Minute)
	alive, err := env.dialogs.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, alive, 1)
	assert.Equal(t, long.ID, alive[0].ID)
	_ = short
}

func TestDialogCleanupExpired(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	d, err := env.dialogs.Create(ctx, "mod1", domain.DialogApproval, "s1", nil, time.Hour)
	require.NoError(t, err)
	_, err = env.dialogs.Create(ctx, "mod2", domain.DialogReview, "s1", nil, 0)
	require.NoError(t, err)

	env.advance(2 * time.Hour)
	n, err := env.dialogs.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := env.store.Dialogs().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DialogExpired, stored.Status)
}
