package store_test

import (
	"context"
	"testing"
	"time"

	"goalcoach/internal/database"
	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(db)
}

func seedGoal(t *testing.T, s *store.Store) *models.Goal {
	t.Helper()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "runner", "x")
	require.NoError(t, err)
	g, err := s.CreateGoal(ctx, u.ID, "Run a marathon", "", "")
	require.NoError(t, err)
	return g
}

func TestTaskCompletedAtFollowsCompletion(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	g := seedGoal(t, s)

	task, err := s.CreateTask(ctx, models.Task{GoalID: g.ID, Title: "Buy shoes", Priority: "urgent"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Nil(t, task.CompletedAt)

	done := true
	task, err = s.UpdateTask(ctx, task.ID, models.TaskUpdate{IsCompleted: &done})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)

	undone := false
	task, err = s.UpdateTask(ctx, task.ID, models.TaskUpdate{IsCompleted: &undone})
	require.NoError(t, err)
	assert.False(t, task.IsCompleted)
	assert.Nil(t, task.CompletedAt)
}

func TestTransitionAgreementIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	g := seedGoal(t, s)

	a, err := s.CreateAgreement(ctx, g.ID, nil, "Run 5k", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.AgreementPending, a.Status)

	a, err = s.TransitionAgreement(ctx, a.ID, models.AgreementCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.AgreementCompleted, a.Status)
	assert.NotNil(t, a.CompletedAt)

	_, err = s.TransitionAgreement(ctx, a.ID, models.AgreementMissed)
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.TransitionAgreement(ctx, 9999, models.AgreementMissed)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.TransitionAgreement(ctx, a.ID, models.AgreementPending)
	assert.Error(t, err)
}

func TestAgreementFlagsAreMonotonic(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	g := seedGoal(t, s)

	a, err := s.CreateAgreement(ctx, g.ID, nil, "Stretch", time.Now())
	require.NoError(t, err)

	require.NoError(t, s.MarkReminderSent(ctx, a.ID))
	assert.ErrorIs(t, s.MarkReminderSent(ctx, a.ID), store.ErrConflict)

	require.NoError(t, s.MarkChecklistSent(ctx, a.ID))
	got, err := s.GetAgreement(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
	assert.True(t, got.ChecklistSent)
	assert.NotNil(t, got.ChecklistSentAt)
}

func TestDeleteGoalCascades(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	g := seedGoal(t, s)

	m, err := s.CreateMilestone(ctx, g.ID, "Base mileage", "", nil)
	require.NoError(t, err)
	c, err := s.CreateChat(ctx, g.ID, "Coach")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c.ID, models.SenderUser, "hi")
	require.NoError(t, err)

	require.NoError(t, s.DeleteGoal(ctx, g.ID))

	_, err = s.GetMilestone(ctx, m.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetChat(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListMessagesReturnsNewestWindowInOrder(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	g := seedGoal(t, s)
	c, err := s.CreateChat(ctx, g.ID, "Coach")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.AppendMessage(ctx, c.ID, models.SenderUser, text)
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)

	last, err := s.LastMessageAt(ctx, c.ID, models.SenderAI)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestClaimPendingActionsOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	g := seedGoal(t, s)
	c, err := s.CreateChat(ctx, g.ID, "Coach")
	require.NoError(t, err)
	m, err := s.AppendMessage(ctx, c.ID, models.SenderAI, "plan")
	require.NoError(t, err)

	require.NoError(t, s.ClaimPendingActions(ctx, m.ID))
	assert.ErrorIs(t, s.ClaimPendingActions(ctx, m.ID), store.ErrConflict)
}

func TestProactiveLogUpserts(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	g := seedGoal(t, s)
	c, err := s.CreateChat(ctx, g.ID, "Coach")
	require.NoError(t, err)

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordProactive(ctx, c.ID, "morning", first))
	require.NoError(t, s.RecordProactive(ctx, c.ID, "morning", first.Add(24*time.Hour)))

	at, err := s.LastProactiveAt(ctx, c.ID, "morning")
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.True(t, at.Equal(first.Add(24*time.Hour)))
}

func TestRefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	u, err := s.CreateUser(ctx, "alice", "x")
	require.NoError(t, err)

	require.NoError(t, s.StoreRefreshToken(ctx, u.ID, "tok", time.Now().Add(time.Hour), 7))
	uid, ttl, err := s.ValidateRefreshToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
	assert.Equal(t, 7, ttl)

	require.NoError(t, s.RevokeRefreshToken(ctx, "tok"))
	_, _, err = s.ValidateRefreshToken(ctx, "tok")
	assert.ErrorIs(t, err, store.ErrTokenRevoked)

	_, _, err = s.ValidateRefreshToken(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
