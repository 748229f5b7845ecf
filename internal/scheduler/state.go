package scheduler

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultStateSize = 4096

type sentKey struct {
	chatID   int
	category Category
}

// State is the scheduler's memory between ticks: when each chat last saw a
// user message, when each proactive category was last sent, and when the
// slower checks last ran. Last-sent times are a cache over the store.
type State struct {
	mu       sync.Mutex
	active   *lru.Cache[int, time.Time]
	lastSent *lru.Cache[sentKey, time.Time]

	lastMissedDayCheck time.Time
	lastMorningCheck   time.Time
}

func NewState(size int) *State {
	if size <= 0 {
		size = defaultStateSize
	}
	active, err := lru.New[int, time.Time](size)
	if err != nil {
		panic(err)
	}
	sent, err := lru.New[sentKey, time.Time](size)
	if err != nil {
		panic(err)
	}
	return &State{active: active, lastSent: sent}
}

// Touch records user activity in a chat.
func (s *State) Touch(chatID int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.active.Get(chatID); ok && prev.After(at) {
		return
	}
	s.active.Add(chatID, at)
}

// ActiveSince reports whether the chat saw user activity at or after since.
func (s *State) ActiveSince(chatID int, since time.Time) bool {
	at, ok := s.active.Get(chatID)
	return ok && !at.Before(since)
}

func (s *State) sent(chatID int, c Category) (time.Time, bool) {
	return s.lastSent.Get(sentKey{chatID, c})
}

func (s *State) recordSent(chatID int, c Category, at time.Time) {
	s.lastSent.Add(sentKey{chatID, c}, at)
}

// due reports whether a gated check should run at now, and if so marks it
// as run.
func (s *State) due(last *time.Time, every time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !last.IsZero() && now.Sub(*last) < every {
		return false
	}
	*last = now
	return true
}
