// Package llm is the outbound model call. Failures never surface as errors:
// every Complete returns text, and an apology string stands in for transport
// problems so callers can treat it like any other model output.
package llm

import (
	"context"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int) string
}

const (
	ReplyNotConfigured = "AI service is not configured. Set LLM_API_KEY in the environment."
	ReplyUnavailable   = "I'm having trouble connecting to the AI service. Please try again later."
	ReplyEmpty         = "I'm sorry, I didn't get a response."
)

// wantsJSON reports whether the system prompt asks for structured output, in
// which case providers that support it are switched to JSON mode.
func wantsJSON(messages []Message) bool {
	for _, m := range messages {
		if m.Role != RoleSystem {
			continue
		}
		upper := strings.ToUpper(m.Content)
		for _, kw := range []string{"JSON", "ФОРМАТ", "ACTIONS", "CHECKLIST"} {
			if strings.Contains(upper, kw) {
				return true
			}
		}
	}
	return false
}
