package llm

import (
	"context"
	"sync"
)

// Script replays canned replies in order and records what it was asked.
// After the last reply it keeps returning the final one.
type Script struct {
	mu      sync.Mutex
	replies []string
	calls   [][]Message
}

func NewScript(replies ...string) *Script {
	return &Script{replies: replies}
}

func (s *Script) Complete(_ context.Context, messages []Message, _ float64, _ int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]Message, len(messages))
	copy(cp, messages)
	s.calls = append(s.calls, cp)

	if len(s.replies) == 0 {
		return ""
	}
	i := len(s.calls) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i]
}

// Calls returns the message lists passed to each Complete call.
func (s *Script) Calls() [][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Message, len(s.calls))
	copy(out, s.calls)
	return out
}
