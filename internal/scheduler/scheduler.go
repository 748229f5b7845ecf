// Package scheduler sends the coach's proactive messages: deadline
// reminders, check-in checklists, missed-agreement notes, nudges after a
// silent day and morning motivation.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"goalcoach/internal/coach"
	"goalcoach/internal/models"
	"goalcoach/internal/store"
)

const (
	reminderWindow   = 24 * time.Hour
	missedAfter      = 24 * time.Hour
	silentDay        = 24 * time.Hour
	activeWindow     = 30 * time.Minute
	missedDayEvery   = 30 * time.Minute
	morningEvery     = 60 * time.Minute
	defaultInterval  = 5 * time.Minute
	defaultMorningAt = 8
	defaultMorningTo = 11
)

type Store interface {
	ListAllPendingAgreements(ctx context.Context) ([]models.Agreement, error)
	ListPendingAgreements(ctx context.Context, goalID int) ([]models.Agreement, error)
	ListActiveGoals(ctx context.Context) ([]models.Goal, error)
	GetGoal(ctx context.Context, id int) (*models.Goal, error)
	PrimaryChat(ctx context.Context, goalID int) (*models.Chat, error)
	AppendMessage(ctx context.Context, chatID int, sender, content string) (*models.Message, error)
	LastMessageAt(ctx context.Context, chatID int, sender string) (*time.Time, error)
	LastProactiveAt(ctx context.Context, chatID int, category string) (*time.Time, error)
	RecordProactive(ctx context.Context, chatID int, category string, at time.Time) error
	MarkReminderSent(ctx context.Context, id int) error
	MarkChecklistSent(ctx context.Context, id int) error
	TransitionAgreement(ctx context.Context, id int, status string) (*models.Agreement, error)
}

// Notifier forwards a proactive message outside the chat. Delivery is best
// effort.
type Notifier interface {
	Notify(ctx context.Context, userID int, title, body string)
}

type Config struct {
	Interval         time.Duration
	Location         *time.Location
	MorningHourStart int
	MorningHourEnd   int
	Now              func() time.Time
}

type Scheduler struct {
	store  Store
	notify Notifier
	state  *State
	cfg    Config
}

func New(s Store, n Notifier, state *State, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MorningHourStart == 0 && cfg.MorningHourEnd == 0 {
		cfg.MorningHourStart, cfg.MorningHourEnd = defaultMorningAt, defaultMorningTo
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if state == nil {
		state = NewState(0)
	}
	return &Scheduler{store: s, notify: n, state: state, cfg: cfg}
}

func (s *Scheduler) State() *State { return s.state }

// Run ticks immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("[scheduler] started, interval %s", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Tick(ctx, s.cfg.Now())
	for {
		select {
		case <-ctx.Done():
			log.Println("[scheduler] stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx, s.cfg.Now())
		}
	}
}

// Tick runs every check that is due at now. Errors are logged; one failing
// chat never stops the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	agreements, err := s.store.ListAllPendingAgreements(ctx)
	if err != nil {
		log.Printf("[scheduler] list agreements: %v", err)
	} else {
		s.sendReminders(ctx, agreements, now)
		s.sendChecklists(ctx, agreements, now)
		s.markMissed(ctx, agreements, now)
	}

	if s.state.due(&s.state.lastMissedDayCheck, missedDayEvery, now) {
		s.sendMissedDay(ctx, now)
	}
	if s.state.due(&s.state.lastMorningCheck, morningEvery, now) {
		s.sendMorning(ctx, now)
	}
}

func (s *Scheduler) sendReminders(ctx context.Context, agreements []models.Agreement, now time.Time) {
	for _, a := range agreements {
		if a.ReminderSent || !a.Deadline.After(now) || a.Deadline.After(now.Add(reminderWindow)) {
			continue
		}
		target, ok := s.resolve(ctx, a)
		if !ok || !s.allowed(ctx, target.chatID, CategoryReminder, now) {
			continue
		}
		if !s.claim(s.store.MarkReminderSent(ctx, a.ID), "reminder", a.ID) {
			continue
		}
		s.send(ctx, target, CategoryReminder, reminderMessage(a, s.cfg.Location), now)
	}
}

func (s *Scheduler) sendChecklists(ctx context.Context, agreements []models.Agreement, now time.Time) {
	for _, a := range agreements {
		if a.ChecklistSent || a.Deadline.After(now) {
			continue
		}
		target, ok := s.resolve(ctx, a)
		if !ok || !s.allowed(ctx, target.chatID, CategoryChecklist, now) {
			continue
		}
		if !s.claim(s.store.MarkChecklistSent(ctx, a.ID), "checklist", a.ID) {
			continue
		}
		s.send(ctx, target, CategoryChecklist, checklistMessage(a), now)
	}
}

func (s *Scheduler) markMissed(ctx context.Context, agreements []models.Agreement, now time.Time) {
	for _, a := range agreements {
		if !a.ChecklistSent || a.ChecklistSentAt == nil || a.ChecklistSentAt.After(now.Add(-missedAfter)) {
			continue
		}
		if _, err := s.store.TransitionAgreement(ctx, a.ID, models.AgreementMissed); err != nil {
			if !errors.Is(err, store.ErrConflict) {
				log.Printf("[scheduler] mark agreement %d missed: %v", a.ID, err)
			}
			continue
		}
		log.Printf("[scheduler] agreement %d marked missed", a.ID)
		if target, ok := s.resolve(ctx, a); ok && s.allowed(ctx, target.chatID, CategoryMissed, now) {
			s.send(ctx, target, CategoryMissed, missedMessage(a), now)
		}
	}
}

func (s *Scheduler) sendMissedDay(ctx context.Context, now time.Time) {
	goals, err := s.store.ListActiveGoals(ctx)
	if err != nil {
		log.Printf("[scheduler] list goals: %v", err)
		return
	}
	for _, g := range goals {
		chat, err := s.store.PrimaryChat(ctx, g.ID)
		if err != nil {
			continue
		}
		if s.state.ActiveSince(chat.ID, now.Add(-activeWindow)) {
			continue
		}
		last, err := s.store.LastMessageAt(ctx, chat.ID, models.SenderUser)
		if err != nil || last == nil || now.Sub(*last) < silentDay {
			continue
		}
		if s.sentToday(ctx, chat.ID, CategoryMissedDay, now) || !s.allowed(ctx, chat.ID, CategoryMissedDay, now) {
			continue
		}
		s.send(ctx, target{chatID: chat.ID, goal: g}, CategoryMissedDay, missedDayMessage(g, now.Sub(*last)), now)
	}
}

func (s *Scheduler) sendMorning(ctx context.Context, now time.Time) {
	hour := now.In(s.cfg.Location).Hour()
	if hour < s.cfg.MorningHourStart || hour >= s.cfg.MorningHourEnd {
		return
	}
	goals, err := s.store.ListActiveGoals(ctx)
	if err != nil {
		log.Printf("[scheduler] list goals: %v", err)
		return
	}
	for _, g := range goals {
		chat, err := s.store.PrimaryChat(ctx, g.ID)
		if err != nil {
			continue
		}
		if s.sentToday(ctx, chat.ID, CategoryMorning, now) || !s.allowed(ctx, chat.ID, CategoryMorning, now) {
			continue
		}
		pending, err := s.store.ListPendingAgreements(ctx, g.ID)
		if err != nil {
			log.Printf("[scheduler] pending agreements for goal %d: %v", g.ID, err)
			continue
		}
		s.send(ctx, target{chatID: chat.ID, goal: g}, CategoryMorning, morningMessage(g, pending, s.cfg.Location), now)
	}
}

type target struct {
	chatID int
	goal   models.Goal
}

// resolve finds where an agreement's messages go: its own chat, or the
// goal's first chat.
func (s *Scheduler) resolve(ctx context.Context, a models.Agreement) (target, bool) {
	g, err := s.store.GetGoal(ctx, a.GoalID)
	if err != nil {
		log.Printf("[scheduler] goal %d for agreement %d: %v", a.GoalID, a.ID, err)
		return target{}, false
	}
	if a.ChatID != nil {
		return target{chatID: *a.ChatID, goal: *g}, true
	}
	chat, err := s.store.PrimaryChat(ctx, g.ID)
	if err != nil {
		return target{}, false
	}
	return target{chatID: chat.ID, goal: *g}, true
}

// claim turns the result of a compare-and-set flag update into a go/no-go.
func (s *Scheduler) claim(err error, what string, id int) bool {
	if err == nil {
		return true
	}
	if !errors.Is(err, store.ErrConflict) {
		log.Printf("[scheduler] claim %s for agreement %d: %v", what, id, err)
	}
	return false
}

func (s *Scheduler) lastSent(ctx context.Context, chatID int, c Category) (time.Time, bool) {
	if at, ok := s.state.sent(chatID, c); ok {
		return at, true
	}
	at, err := s.store.LastProactiveAt(ctx, chatID, string(c))
	if err != nil || at == nil {
		return time.Time{}, false
	}
	s.state.recordSent(chatID, c, *at)
	return *at, true
}

func (s *Scheduler) allowed(ctx context.Context, chatID int, c Category, now time.Time) bool {
	gap := minInterval[c]
	if gap == 0 {
		return true
	}
	last, ok := s.lastSent(ctx, chatID, c)
	return !ok || now.Sub(last) >= gap
}

func (s *Scheduler) sentToday(ctx context.Context, chatID int, c Category, now time.Time) bool {
	last, ok := s.lastSent(ctx, chatID, c)
	if !ok {
		return false
	}
	ly, lm, ld := last.In(s.cfg.Location).Date()
	ny, nm, nd := now.In(s.cfg.Location).Date()
	return ly == ny && lm == nm && ld == nd
}

func (s *Scheduler) send(ctx context.Context, t target, c Category, content string, now time.Time) {
	if _, err := s.store.AppendMessage(ctx, t.chatID, models.SenderAI, content); err != nil {
		log.Printf("[scheduler] %s message to chat %d: %v", c, t.chatID, err)
		return
	}
	s.state.recordSent(t.chatID, c, now)
	if err := s.store.RecordProactive(ctx, t.chatID, string(c), now); err != nil {
		log.Printf("[scheduler] record %s for chat %d: %v", c, t.chatID, err)
	}
	log.Printf("[scheduler] sent %s to chat %d", c, t.chatID)
	if s.notify != nil {
		s.notify.Notify(ctx, t.goal.UserID, titles[c], coach.StripMarkers(content))
	}
}
