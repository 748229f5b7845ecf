package coach_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"goalcoach/internal/coach"
	"goalcoach/internal/database"
	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *store.Store
	user  *models.User
	goal  *models.Goal
	chat  *models.Chat
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.New(db)
	u, err := s.CreateUser(ctx, "student", "x")
	require.NoError(t, err)
	g, err := s.CreateGoal(ctx, u.ID, "Learn guitar", "", "")
	require.NoError(t, err)
	c, err := s.CreateChat(ctx, g.ID, "Coach")
	require.NoError(t, err)
	return &fixture{store: s, user: u, goal: g, chat: c}
}

func action(kind string, data map[string]any) map[string]any {
	return map[string]any{"type": kind, "data": data}
}

func (f *fixture) milestones(t *testing.T, goalID int) []models.Milestone {
	t.Helper()
	ms, err := f.store.ListMilestones(context.Background(), goalID)
	require.NoError(t, err)
	return ms
}

func TestExecuteCarriesNewGoalForward(t *testing.T) {
	f := setup(t)
	exec := coach.NewExecutor(f.store, time.UTC)

	out := exec.Execute(context.Background(), []any{
		action("create_milestone", map[string]any{"title": "Too early"}),
		action("create_goal", map[string]any{"title": "Run a marathon"}),
		action("create_milestone", map[string]any{"title": "Run 10k"}),
	}, coach.Batch{UserID: f.user.ID})

	require.Len(t, out.Results, 3)
	assert.True(t, strings.HasPrefix(out.Results[0], "❌"), out.Results[0])
	assert.True(t, strings.HasPrefix(out.Results[1], "✅"), out.Results[1])
	assert.True(t, strings.HasPrefix(out.Results[2], "✅"), out.Results[2])
	require.NotZero(t, out.GoalID)
	assert.NotEqual(t, f.goal.ID, out.GoalID)

	ms := f.milestones(t, out.GoalID)
	require.Len(t, ms, 1)
	assert.Equal(t, "Run 10k", ms[0].Title)
	assert.Empty(t, f.milestones(t, f.goal.ID))
}

func TestExecuteGoalIDMustBelongToUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	other, err := f.store.CreateUser(ctx, "other", "x")
	require.NoError(t, err)
	theirs, err := f.store.CreateGoal(ctx, other.ID, "Not yours", "", "")
	require.NoError(t, err)
	mine, err := f.store.CreateGoal(ctx, f.user.ID, "Second goal", "", "")
	require.NoError(t, err)
	exec := coach.NewExecutor(f.store, time.UTC)

	out := exec.Execute(ctx, []any{
		action("create_milestone", map[string]any{"title": "Sneaky", "goal_id": theirs.ID}),
		action("create_milestone", map[string]any{"title": "Mine", "goal_id": mine.ID}),
	}, coach.Batch{GoalID: f.goal.ID, UserID: f.user.ID})

	require.Len(t, out.Results, 2)
	assert.Contains(t, out.Results[0], "not found")
	assert.True(t, strings.HasPrefix(out.Results[1], "✅"), out.Results[1])
	assert.Equal(t, mine.ID, out.GoalID)
	assert.Empty(t, f.milestones(t, theirs.ID))
	assert.Len(t, f.milestones(t, mine.ID), 1)
}

func TestExecuteCreateGoalNeedsUser(t *testing.T) {
	f := setup(t)
	out := coach.NewExecutor(f.store, nil).Execute(context.Background(), []any{
		action("create_goal", map[string]any{"title": "Orphan"}),
	}, coach.Batch{GoalID: f.goal.ID})

	require.Len(t, out.Results, 1)
	assert.Contains(t, out.Results[0], "❌")
	assert.Contains(t, out.Results[0], "user")
}

func TestExecuteDeleteByCountStopsAtAvailable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, title := range []string{"A", "B", "C"} {
		_, err := f.store.CreateMilestone(ctx, f.goal.ID, title, "", nil)
		require.NoError(t, err)
	}

	out := coach.NewExecutor(f.store, nil).Execute(ctx, []any{
		action("delete_milestone", map[string]any{"count": 5}),
	}, coach.Batch{GoalID: f.goal.ID, UserID: f.user.ID})

	assert.Equal(t, []string{"✅ Deleted 3 milestone(s)"}, out.Results)
	assert.Empty(t, f.milestones(t, f.goal.ID))
}

func TestExecuteDeleteByCountRemovesHighestIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, title := range []string{"A", "B", "C", "D"} {
		_, err := f.store.CreateMilestone(ctx, f.goal.ID, title, "", nil)
		require.NoError(t, err)
	}

	coach.NewExecutor(f.store, nil).Execute(ctx, []any{
		action("delete_milestone", map[string]any{"count": 2}),
	}, coach.Batch{GoalID: f.goal.ID})

	ms := f.milestones(t, f.goal.ID)
	require.Len(t, ms, 2)
	assert.Equal(t, "A", ms[0].Title)
	assert.Equal(t, "B", ms[1].Title)
}

func TestExecuteFailureDoesNotAbortBatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	out := coach.NewExecutor(f.store, time.UTC).Execute(ctx, []any{
		action("create_agreement", map[string]any{"description": "Practice", "deadline": "someday"}),
		action("create_agreement", map[string]any{"description": "Practice scales", "deadline": "2026-05-01 19:00"}),
		"not an object",
	}, coach.Batch{GoalID: f.goal.ID, ChatID: f.chat.ID})

	require.Len(t, out.Results, 3)
	assert.Contains(t, out.Results[0], "❌")
	assert.Contains(t, out.Results[0], "someday")
	assert.Equal(t, "✅ Agreement recorded: Practice scales (until 01.05.2026 19:00)", out.Results[1])
	assert.Contains(t, out.Results[2], "❌")

	agreements, err := f.store.ListPendingAgreements(ctx, f.goal.ID)
	require.NoError(t, err)
	require.Len(t, agreements, 1)
	require.NotNil(t, agreements[0].ChatID)
	assert.Equal(t, f.chat.ID, *agreements[0].ChatID)
}

func TestExecuteTruncatesTitles(t *testing.T) {
	f := setup(t)
	long := strings.Repeat("ж", 120)

	coach.NewExecutor(f.store, nil).Execute(context.Background(), []any{
		action("create_milestone", map[string]any{"title": long}),
	}, coach.Batch{GoalID: f.goal.ID})

	ms := f.milestones(t, f.goal.ID)
	require.Len(t, ms, 1)
	assert.Equal(t, strings.Repeat("ж", 80), ms[0].Title)
}

func TestExecuteSetDeadlineByTitleTakesFirstMatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	first, err := f.store.CreateMilestone(ctx, f.goal.ID, "Learn basic chords", "", nil)
	require.NoError(t, err)
	_, err = f.store.CreateMilestone(ctx, f.goal.ID, "Learn barre chords", "", nil)
	require.NoError(t, err)

	out := coach.NewExecutor(f.store, time.UTC).Execute(ctx, []any{
		action("set_deadline", map[string]any{"milestone_title": "CHORDS", "deadline": "2026-06-15T10:00:00Z"}),
		action("set_deadline", map[string]any{"milestone_title": "drums", "deadline": "2026-06-15"}),
	}, coach.Batch{GoalID: f.goal.ID})

	assert.Contains(t, out.Results[0], "✅")
	assert.Contains(t, out.Results[1], "❌")

	m, err := f.store.GetMilestone(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, m.TargetDate)
	assert.Equal(t, "2026-06-15", m.TargetDate.Format("2006-01-02"))
}

func TestExecuteCompleteMilestone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m, err := f.store.CreateMilestone(ctx, f.goal.ID, "Tune the guitar", "", nil)
	require.NoError(t, err)

	other, err := f.store.CreateGoal(ctx, f.user.ID, "Other", "", "")
	require.NoError(t, err)
	foreign, err := f.store.CreateMilestone(ctx, other.ID, "Not yours", "", nil)
	require.NoError(t, err)

	out := coach.NewExecutor(f.store, nil).Execute(ctx, []any{
		action("complete_milestone", map[string]any{"milestone_id": m.ID}),
		action("complete_milestone", map[string]any{}),
		action("complete_milestone", map[string]any{"milestone_id": foreign.ID}),
	}, coach.Batch{GoalID: f.goal.ID})

	require.Len(t, out.Results, 3)
	assert.Contains(t, out.Results[0], "✅")
	assert.NotContains(t, out.Results[1], "❌")
	assert.Contains(t, out.Results[2], "not found")

	got, err := f.store.GetMilestone(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	got, err = f.store.GetMilestone(ctx, foreign.ID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
}

func TestExecuteCreateTaskAndUpdateGoal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m, err := f.store.CreateMilestone(ctx, f.goal.ID, "Chords", "", nil)
	require.NoError(t, err)

	out := coach.NewExecutor(f.store, time.UTC).Execute(ctx, []any{
		action("create_task", map[string]any{"title": "Practice G", "deadline": "02.05.2026 18:00", "milestone_id": m.ID, "priority": "high"}),
		action("update_goal", map[string]any{"title": "Play guitar", "progress": 150}),
		action("update_goal", map[string]any{}),
	}, coach.Batch{GoalID: f.goal.ID})

	assert.Contains(t, out.Results[0], "✅")
	assert.Equal(t, "✅ Goal updated: title, progress", out.Results[1])
	assert.NotContains(t, out.Results[2], "❌")

	tasks, err := f.store.ListTasks(ctx, f.goal.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].DueDate)
	assert.True(t, time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC).Equal(*tasks[0].DueDate))
	require.NotNil(t, tasks[0].MilestoneID)
	assert.Equal(t, m.ID, *tasks[0].MilestoneID)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)

	g, err := f.store.GetGoal(ctx, f.goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Play guitar", g.Title)
	assert.Equal(t, 100.0, g.Progress)
}
