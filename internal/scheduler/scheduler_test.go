package scheduler_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"goalcoach/internal/database"
	"goalcoach/internal/models"
	"goalcoach/internal/scheduler"
	"goalcoach/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushed struct {
	userID int
	title  string
	body   string
}

type recorder struct{ sent []pushed }

func (r *recorder) Notify(_ context.Context, userID int, title, body string) {
	r.sent = append(r.sent, pushed{userID, title, body})
}

type env struct {
	now   time.Time
	store *store.Store
	user  *models.User
	goal  *models.Goal
	chat  *models.Chat
	push  *recorder
}

// 14:00 UTC keeps the morning window out of the way unless a test moves it.
var base = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e := &env{now: base, push: &recorder{}}
	e.store = store.New(db).WithClock(func() time.Time { return e.now })
	e.user, err = e.store.CreateUser(ctx, "sam", "x")
	require.NoError(t, err)
	e.goal, err = e.store.CreateGoal(ctx, e.user.ID, "Learn guitar", "", "")
	require.NoError(t, err)
	e.chat, err = e.store.CreateChat(ctx, e.goal.ID, "Coach")
	require.NoError(t, err)
	return e
}

func (e *env) scheduler(state *scheduler.State) *scheduler.Scheduler {
	return scheduler.New(e.store, e.push, state, scheduler.Config{Location: time.UTC, MorningHourStart: 8, MorningHourEnd: 11})
}

func (e *env) tickAt(s *scheduler.Scheduler, at time.Time) {
	e.now = at
	s.Tick(context.Background(), at)
}

func (e *env) aiMessages(t *testing.T, contains string) int {
	t.Helper()
	msgs, err := e.store.ListMessages(context.Background(), e.chat.ID, 0)
	require.NoError(t, err)
	n := 0
	for _, m := range msgs {
		if m.Sender == models.SenderAI && strings.Contains(m.Content, contains) {
			n++
		}
	}
	return n
}

func TestReminderIsSentOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, err := e.store.CreateAgreement(ctx, e.goal.ID, &e.chat.ID, "Practice 30 minutes", base.Add(2*time.Hour))
	require.NoError(t, err)

	s := e.scheduler(nil)
	for i := 0; i < 10; i++ {
		e.tickAt(s, base.Add(time.Duration(i)*5*time.Minute))
	}

	assert.Equal(t, 1, e.aiMessages(t, "Reminder"))
	assert.Equal(t, 1, e.aiMessages(t, "<!--SUGGESTIONS:"))
	got, err := e.store.GetAgreement(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)

	require.Len(t, e.push.sent, 1)
	assert.Equal(t, e.user.ID, e.push.sent[0].userID)
	assert.NotContains(t, e.push.sent[0].body, "<!--")
}

func TestReminderIgnoresFarDeadlines(t *testing.T) {
	e := newEnv(t)
	_, err := e.store.CreateAgreement(context.Background(), e.goal.ID, nil, "Record a song", base.Add(48*time.Hour))
	require.NoError(t, err)

	e.tickAt(e.scheduler(nil), base)
	assert.Equal(t, 0, e.aiMessages(t, "Reminder"))
}

func TestChecklistThenMissedAfterADay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, err := e.store.CreateAgreement(ctx, e.goal.ID, nil, "Learn the C chord", base.Add(-time.Minute))
	require.NoError(t, err)

	s := e.scheduler(nil)
	e.tickAt(s, base)
	assert.Equal(t, 1, e.aiMessages(t, "<!--CHECKLIST:"))
	assert.Equal(t, 0, e.aiMessages(t, "Reminder"))

	got, err := e.store.GetAgreement(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.ChecklistSent)
	require.NotNil(t, got.ChecklistSentAt)

	e.tickAt(s, base.Add(23*time.Hour))
	got, err = e.store.GetAgreement(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgreementPending, got.Status)
	assert.Equal(t, 1, e.aiMessages(t, "<!--CHECKLIST:"))

	e.tickAt(s, base.Add(24*time.Hour))
	got, err = e.store.GetAgreement(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgreementMissed, got.Status)
	assert.Equal(t, 1, e.aiMessages(t, "marked it as missed"))

	e.tickAt(s, base.Add(25*time.Hour))
	assert.Equal(t, 1, e.aiMessages(t, "marked it as missed"))
}

type racingStore struct {
	*store.Store
	beforeReturn func()
}

func (r *racingStore) ListAllPendingAgreements(ctx context.Context) ([]models.Agreement, error) {
	list, err := r.Store.ListAllPendingAgreements(ctx)
	r.beforeReturn()
	return list, err
}

func TestMissedLosesToConcurrentCompletion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, err := e.store.CreateAgreement(ctx, e.goal.ID, nil, "Play scales", base.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, e.store.MarkChecklistSent(ctx, a.ID))

	rs := &racingStore{Store: e.store, beforeReturn: func() {
		_, _ = e.store.TransitionAgreement(ctx, a.ID, models.AgreementCompleted)
	}}
	s := scheduler.New(rs, e.push, nil, scheduler.Config{Location: time.UTC})
	e.tickAt(s, base.Add(25*time.Hour))

	got, err := e.store.GetAgreement(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AgreementCompleted, got.Status)
	assert.Equal(t, 0, e.aiMessages(t, "marked it as missed"))
}

func TestMissedDaySurvivesRestart(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.now = base.Add(-30 * time.Hour)
	_, err := e.store.AppendMessage(ctx, e.chat.ID, models.SenderUser, "I'll practice tonight")
	require.NoError(t, err)

	e.tickAt(e.scheduler(nil), base)
	assert.Equal(t, 1, e.aiMessages(t, "It's been 1 day(s)"))

	// A fresh state stands in for a process restart.
	e.tickAt(e.scheduler(scheduler.NewState(0)), base.Add(35*time.Minute))
	assert.Equal(t, 1, e.aiMessages(t, "It's been"))
}

func TestMissedDaySkipsActiveChats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.now = base.Add(-48 * time.Hour)
	_, err := e.store.AppendMessage(ctx, e.chat.ID, models.SenderUser, "hello")
	require.NoError(t, err)

	state := scheduler.NewState(0)
	state.Touch(e.chat.ID, base.Add(-10*time.Minute))
	e.tickAt(e.scheduler(state), base)
	assert.Equal(t, 0, e.aiMessages(t, "It's been"))
}

func TestMissedDayNeedsEarlierUserMessages(t *testing.T) {
	e := newEnv(t)
	e.tickAt(e.scheduler(nil), base)
	assert.Equal(t, 0, e.aiMessages(t, "It's been"))
}

func TestMorningOncePerDay(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.store.CreateAgreement(ctx, e.goal.ID, nil, "Practice barre", base.Add(72*time.Hour))
	require.NoError(t, err)

	morning := time.Date(2026, 3, 3, 8, 30, 0, 0, time.UTC)
	s := e.scheduler(nil)
	e.tickAt(s, morning)
	assert.Equal(t, 1, e.aiMessages(t, "Good morning"))
	assert.Equal(t, 1, e.aiMessages(t, "Practice barre"))

	e.tickAt(s, morning.Add(65*time.Minute))
	e.tickAt(s, morning.Add(130*time.Minute))
	assert.Equal(t, 1, e.aiMessages(t, "Good morning"))

	e.tickAt(s, morning.Add(24*time.Hour))
	assert.Equal(t, 2, e.aiMessages(t, "Good morning"))
}

func TestMorningOutsideWindow(t *testing.T) {
	e := newEnv(t)
	e.tickAt(e.scheduler(nil), time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC))
	assert.Equal(t, 0, e.aiMessages(t, "Good morning"))
}

func TestActivityRegistry(t *testing.T) {
	state := scheduler.NewState(2)
	state.Touch(1, base)
	state.Touch(1, base.Add(-time.Hour))
	assert.True(t, state.ActiveSince(1, base))

	state.Touch(2, base)
	state.Touch(3, base)
	assert.False(t, state.ActiveSince(1, base.Add(-time.Hour)), "oldest chat is evicted")
	assert.True(t, state.ActiveSince(3, base))
}
